package analyzer

import "strconv"

const (
	heatmapBlockSize      = 16
	heatmapShift          = 5 // 32-level quantization
	heatmapFewColors      = 10
	heatmapManyColors     = 50
	jpegCellBoundaryLimit = 5
	signatureStep         = 4
	repeatedSignatureMin  = 3
)

// BlockSuspicion is the heatmap value of one 16x16 tile. Tiles on the right
// and bottom edges may be smaller.
type BlockSuspicion struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Colors     int     `json:"colors"`
	SharpEdges int     `json:"sharpEdges"`
	Suspicion  float64 `json:"suspicion"`
}

type BlockPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BlockMap exposes block-granularity values for overlays.
type BlockMap struct {
	BlockSize      int              `json:"blockSize"`
	Blocks         []BlockSuspicion `json:"blocks"`
	JPEGBlocks     []BlockPoint     `json:"jpegBlocks"`
	RepeatedBlocks []BlockPoint     `json:"repeatedBlocks"`
}

// BuildBlockMap validates buf and computes its block map.
func BuildBlockMap(buf *PixelBuffer) (*BlockMap, error) {
	if err := ValidateBuffer(buf); err != nil {
		return nil, err
	}
	return &BlockMap{
		BlockSize:      heatmapBlockSize,
		Blocks:         heatmapBlocks(buf),
		JPEGBlocks:     jpegGridCells(buf),
		RepeatedBlocks: repeatedBlocks(buf),
	}, nil
}

func heatmapBlocks(b *PixelBuffer) []BlockSuspicion {
	var out []BlockSuspicion
	colors := make(map[int]struct{}, heatmapBlockSize*heatmapBlockSize)

	for y := 0; y < b.Height; y += heatmapBlockSize {
		for x := 0; x < b.Width; x += heatmapBlockSize {
			bw := min(heatmapBlockSize, b.Width-x)
			bh := min(heatmapBlockSize, b.Height-y)
			clear(colors)
			edges := 0

			for dy := 0; dy < bh; dy++ {
				for dx := 0; dx < bw; dx++ {
					i := b.offset(x+dx, y+dy)
					colors[coarseColor(b, i)] = struct{}{}
					if dx < bw-1 && b.rgbDelta(i, i+4) > sharpEdgeDelta {
						edges++
					}
				}
			}

			out = append(out, BlockSuspicion{
				X: x, Y: y, Width: bw, Height: bh,
				Colors:     len(colors),
				SharpEdges: edges,
				Suspicion:  blockSuspicion(len(colors), edges),
			})
		}
	}
	return out
}

// coarseColor packs the 32-level quantized RGB of the pixel at offset i.
func coarseColor(b *PixelBuffer, i int) int {
	return int(b.Pix[i]>>heatmapShift)<<6 | int(b.Pix[i+1]>>heatmapShift)<<3 | int(b.Pix[i+2]>>heatmapShift)
}

func blockSuspicion(colors, edges int) float64 {
	s := 0.0
	if colors < heatmapFewColors {
		s += 40
	}
	if edges > heatmapBlockSize*2 {
		s += 30
	}
	if colors > heatmapManyColors {
		s -= 20
	}
	return clampScore(s)
}

// jpegGridCells flags 8x8 cells whose top and left boundaries show more than
// five visible steps.
func jpegGridCells(b *PixelBuffer) []BlockPoint {
	var out []BlockPoint
	for y := 0; y < b.Height; y += blockSize {
		for x := 0; x < b.Width; x += blockSize {
			crossings := 0
			if y > 0 {
				for dx := 0; dx < blockSize && x+dx < b.Width; dx++ {
					if b.rgbDelta(b.offset(x+dx, y), b.offset(x+dx, y-1)) > jpegBoundaryDelta {
						crossings++
					}
				}
			}
			if x > 0 {
				for dy := 0; dy < blockSize && y+dy < b.Height; dy++ {
					if b.rgbDelta(b.offset(x, y+dy), b.offset(x-1, y+dy)) > jpegBoundaryDelta {
						crossings++
					}
				}
			}
			if crossings > jpegCellBoundaryLimit {
				out = append(out, BlockPoint{X: x, Y: y})
			}
		}
	}
	return out
}

// repeatedBlocks samples every full 16x16 tile on a 4-pixel lattice and
// returns tiles whose coarse signature occurs at least three times.
func repeatedBlocks(b *PixelBuffer) []BlockPoint {
	bySignature := make(map[string][]BlockPoint)
	var order []string
	sig := make([]byte, 0, 64)

	for y := 0; y+heatmapBlockSize <= b.Height; y += heatmapBlockSize {
		for x := 0; x+heatmapBlockSize <= b.Width; x += heatmapBlockSize {
			sig = sig[:0]
			for dy := 0; dy < heatmapBlockSize; dy += signatureStep {
				for dx := 0; dx < heatmapBlockSize; dx += signatureStep {
					i := b.offset(x+dx, y+dy)
					sig = strconv.AppendInt(sig, int64(coarseColor(b, i)), 10)
					sig = append(sig, ';')
				}
			}
			key := string(sig)
			if _, ok := bySignature[key]; !ok {
				order = append(order, key)
			}
			bySignature[key] = append(bySignature[key], BlockPoint{X: x, Y: y})
		}
	}

	var out []BlockPoint
	for _, key := range order {
		if locs := bySignature[key]; len(locs) >= repeatedSignatureMin {
			out = append(out, locs...)
		}
	}
	return out
}
