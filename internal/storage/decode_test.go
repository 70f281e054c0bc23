package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"io"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestDecode_Formats(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 60, 50))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	src.Set(0, 0, color.NRGBA{A: 255})

	encoders := map[string]func(w io.Writer, img image.Image) error{
		"png":  func(w io.Writer, img image.Image) error { return encodePNG(w, img) },
		"jpeg": func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) },
		"gif":  func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) },
		"bmp":  bmp.Encode,
		"tiff": func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) },
	}

	for format, encode := range encoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encode(&buf, src); err != nil {
				t.Fatalf("encode: %v", err)
			}

			cfg, gotFormat, err := DecodeConfig(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeConfig: %v", err)
			}
			if gotFormat != format || cfg.Width != 60 || cfg.Height != 50 {
				t.Errorf("Expected %s 60x50, got %s %dx%d", format, gotFormat, cfg.Width, cfg.Height)
			}

			img, _, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 50 {
				t.Errorf("Unexpected bounds %v", img.Bounds())
			}
		})
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Expected error for garbage input")
	}
}
