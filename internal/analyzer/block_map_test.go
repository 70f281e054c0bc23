package analyzer_test

import (
	"image/color"
	"testing"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
	"github.com/anime-shed/ai-detector-go/internal/analyzer/analyzertest"
)

func TestBuildBlockMap_SolidBuffer(t *testing.T) {
	bm, err := analyzer.BuildBlockMap(analyzertest.Solid(50, 50, color.NRGBA{40, 40, 40, 255}))
	if err != nil {
		t.Fatalf("BuildBlockMap failed: %v", err)
	}

	// 50 = 3 full tiles + one 2-pixel edge tile per axis
	if len(bm.Blocks) != 16 {
		t.Fatalf("Expected 16 blocks, got %d", len(bm.Blocks))
	}
	last := bm.Blocks[len(bm.Blocks)-1]
	if last.X != 48 || last.Y != 48 || last.Width != 2 || last.Height != 2 {
		t.Errorf("Unexpected edge block %+v", last)
	}
	for _, b := range bm.Blocks {
		if b.Colors != 1 || b.Suspicion != 40 {
			t.Errorf("Expected one color and suspicion 40, got %+v", b)
		}
	}
	if len(bm.JPEGBlocks) != 0 {
		t.Errorf("Expected no JPEG cells, got %d", len(bm.JPEGBlocks))
	}
	// 3x3 full tiles share one signature
	if len(bm.RepeatedBlocks) != 9 {
		t.Errorf("Expected 9 repeated blocks, got %d", len(bm.RepeatedBlocks))
	}
}

func TestBuildBlockMap_Checkerboard(t *testing.T) {
	bm, err := analyzer.BuildBlockMap(analyzertest.Checkerboard(64, 64))
	if err != nil {
		t.Fatalf("BuildBlockMap failed: %v", err)
	}

	for _, b := range bm.Blocks {
		// 15 edges per row * 16 rows = 240 > 32, and two colors < 10
		if b.SharpEdges != 240 || b.Suspicion != 70 {
			t.Errorf("Unexpected block %+v", b)
		}
	}
	// Every cell except the origin has a boundary to check
	if len(bm.JPEGBlocks) != 63 {
		t.Errorf("Expected 63 JPEG cells, got %d", len(bm.JPEGBlocks))
	}
}

func TestBuildBlockMap_NoiseIsNotSuspicious(t *testing.T) {
	bm, err := analyzer.BuildBlockMap(analyzertest.Noise(64, 64, 5))
	if err != nil {
		t.Fatalf("BuildBlockMap failed: %v", err)
	}
	for _, b := range bm.Blocks {
		if b.Suspicion < 0 || b.Suspicion > 100 {
			t.Errorf("Suspicion out of range: %+v", b)
		}
		if b.Colors <= 50 {
			t.Errorf("Expected a busy palette in random noise, got %d colors", b.Colors)
		}
	}
}

func TestBuildBlockMap_RejectsInvalid(t *testing.T) {
	if _, err := analyzer.BuildBlockMap(&analyzer.PixelBuffer{Width: 10, Height: 10, Pix: make([]byte, 400)}); err == nil {
		t.Error("Expected validation error")
	}
}
