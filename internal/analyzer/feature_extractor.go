package analyzer

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Scan constants. Deltas are summed absolute R+G+B differences unless noted.
const (
	sharpEdgeDelta        = 100
	blockSize             = 8
	repeatingColorLimit   = 32
	uniformVariation      = 50
	complexVariation      = 200
	gradientBandMax       = 10
	unnaturalGradientMin  = 3
	bandingDeltaMax       = 5
	symmetryDeltaMax      = 10
	artificialNoiseMax    = 8
	naturalNoiseMax       = 20
	blockVariationMin     = 100
	perfectEdgeDelta      = 100
	jpegBoundaryDelta     = 15
	highFrequencyDelta    = 30.0
	lowFrequencyDelta     = 5.0
	quantizationShift     = 3
	quantizedColorBuckets = 1 << 15
)

// FeatureExtractor turns a pixel buffer into a FeatureSet.
type FeatureExtractor interface {
	Extract(buf *PixelBuffer) (FeatureSet, error)
}

// featureExtractor is stateless apart from its options and safe for
// concurrent use on distinct or shared buffers.
type featureExtractor struct {
	auxiliary bool
	parallel  bool
	workers   int
}

// NewFeatureExtractor creates an extractor configured by opts.
func NewFeatureExtractor(opts DetectorOptions) FeatureExtractor {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &featureExtractor{
		auxiliary: opts.AuxiliaryFeatures,
		parallel:  opts.ParallelExtraction,
		workers:   workers,
	}
}

// Extract validates buf and runs every category scan over it.
func (fe *featureExtractor) Extract(buf *PixelBuffer) (FeatureSet, error) {
	if err := ValidateBuffer(buf); err != nil {
		return FeatureSet{}, err
	}

	var fs FeatureSet
	scans := []func(){
		func() { fs.Patterns = detectPatterns(buf) },
		func() { fs.Textures = fe.analyzeTextures(buf) },
		func() { fs.Colors = analyzeColors(buf) },
		func() { fs.Symmetry = analyzeSymmetry(buf) },
		func() { fs.Noise = analyzeNoise(buf) },
		func() { fs.Artifacts = fe.detectArtifacts(buf) },
	}
	if fe.auxiliary {
		scans = append(scans,
			func() { fs.JPEGBlocks = detectJPEGBlocks(buf) },
			func() { fs.Frequency = fe.analyzeFrequency(buf) },
		)
	}

	if !fe.parallel {
		for _, scan := range scans {
			scan()
		}
		return fs, nil
	}

	// Each scan writes a distinct field of fs.
	var wg sync.WaitGroup
	for _, scan := range scans {
		wg.Add(1)
		go func(scan func()) {
			defer wg.Done()
			scan()
		}(scan)
	}
	wg.Wait()
	return fs, nil
}

// countRows splits [startY, endY) into horizontal strips, runs count on each
// and sums the per-strip counters. Strips run concurrently when parallel is set.
func (fe *featureExtractor) countRows(startY, endY int, count func(y0, y1 int) [3]int) [3]int {
	rows := endY - startY
	numWorkers := fe.workers
	if !fe.parallel || rows < numWorkers*4 {
		numWorkers = 1
	}
	if numWorkers <= 1 {
		return count(startY, endY)
	}
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers

	results := make(chan [3]int, numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		y0 := startY + i*rowsPerWorker
		if y0 >= endY {
			break
		}
		y1 := y0 + rowsPerWorker
		if y1 > endY {
			y1 = endY
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			results <- count(y0, y1)
		}(y0, y1)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var total [3]int
	for r := range results {
		total[0] += r[0]
		total[1] += r[1]
		total[2] += r[2]
	}
	return total
}

func detectPatterns(b *PixelBuffer) PatternFeatures {
	sharp := 0
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width-1; x++ {
			i := b.offset(x, y)
			if b.rgbDelta(i, i+4) > sharpEdgeDelta {
				sharp++
			}
		}
	}

	blocks, repeating := 0, 0
	distinct := make(map[uint32]struct{}, blockSize*blockSize)
	for by := 0; by+blockSize <= b.Height; by += blockSize {
		for bx := 0; bx+blockSize <= b.Width; bx += blockSize {
			clear(distinct)
			for dy := 0; dy < blockSize; dy++ {
				for dx := 0; dx < blockSize; dx++ {
					i := b.offset(bx+dx, by+dy)
					distinct[uint32(b.Pix[i])<<16|uint32(b.Pix[i+1])<<8|uint32(b.Pix[i+2])] = struct{}{}
				}
			}
			if len(distinct) < repeatingColorLimit {
				repeating++
			}
			blocks++
		}
	}

	return PatternFeatures{
		SharpEdges:        float64(sharp) / float64(b.PixelCount()),
		RepeatingPatterns: ratio(repeating, blocks),
	}
}

func (fe *featureExtractor) analyzeTextures(b *PixelBuffer) TextureFeatures {
	w := b.Width
	counts := fe.countRows(1, b.Height-1, func(y0, y1 int) [3]int {
		var c [3]int
		for y := y0; y < y1; y++ {
			for x := 1; x < w-1; x++ {
				i := b.offset(x, y)
				variation, gradients := 0, 0
				for _, n := range [4]int{i - w*4, i + w*4, i - 4, i + 4} {
					d := b.rgbDelta(i, n)
					variation += d
					if d > 0 && d < gradientBandMax {
						gradients++
					}
				}
				if variation < uniformVariation {
					c[0]++
				}
				if variation > complexVariation {
					c[1]++
				}
				if gradients >= unnaturalGradientMin {
					c[2]++
				}
			}
		}
		return c
	})

	interior := (b.Width - 2) * (b.Height - 2)
	return TextureFeatures{
		Uniformity:         ratio(counts[0], interior),
		Complexity:         ratio(counts[1], interior),
		UnnaturalGradients: ratio(counts[2], interior),
	}
}

func analyzeColors(b *PixelBuffer) ColorFeatures {
	n := b.PixelCount()
	var seen [quantizedColorBuckets]bool
	unique, banding := 0, 0
	saturations := make([]float64, n)
	luminances := make([]float64, n)

	for p := 0; p < n; p++ {
		i := p * 4
		r, g, bl := b.Pix[i], b.Pix[i+1], b.Pix[i+2]

		bucket := int(r>>quantizationShift)<<10 | int(g>>quantizationShift)<<5 | int(bl>>quantizationShift)
		if !seen[bucket] {
			seen[bucket] = true
			unique++
		}

		hi, lo := max(r, g, bl), min(r, g, bl)
		if hi > 0 {
			saturations[p] = float64(hi-lo) / float64(hi)
		}
		luminances[p] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)

		if p > 0 {
			if d := b.rgbDelta(i-4, i); d > 0 && d < bandingDeltaMax {
				banding++
			}
		}
	}

	return ColorFeatures{
		UniqueColors:       float64(unique),
		SaturationVariance: stat.PopVariance(saturations, nil),
		ColorBanding:       ratio(banding, n),
		AverageSaturation:  stat.Mean(saturations, nil),
		LuminanceVariance:  stat.PopVariance(luminances, nil),
	}
}

// analyzeSymmetry compares mirrored pixel pairs. The middle column or row of
// an odd dimension mirrors onto itself and is left out.
func analyzeSymmetry(b *PixelBuffer) SymmetryFeatures {
	w, h := b.Width, b.Height

	horizontal := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			if b.rgbDelta(b.offset(x, y), b.offset(w-1-x, y)) < symmetryDeltaMax {
				horizontal++
			}
		}
	}

	vertical := 0
	for y := 0; y < h/2; y++ {
		for x := 0; x < w; x++ {
			if b.rgbDelta(b.offset(x, y), b.offset(x, h-1-y)) < symmetryDeltaMax {
				vertical++
			}
		}
	}

	return SymmetryFeatures{
		HorizontalSymmetry: ratio(horizontal, h*(w/2)),
		VerticalSymmetry:   ratio(vertical, w*(h/2)),
	}
}

// analyzeNoise classifies every raster-order predecessor delta.
// A delta of exactly 8 counts as neither kind.
func analyzeNoise(b *PixelBuffer) NoiseFeatures {
	n := b.PixelCount()
	artificial, natural := 0, 0
	for p := 1; p < n; p++ {
		d := b.rgbDelta((p-1)*4, p*4)
		switch {
		case d > 0 && d < artificialNoiseMax:
			artificial++
		case d > artificialNoiseMax && d < naturalNoiseMax:
			natural++
		}
	}
	return NoiseFeatures{
		ArtificialNoise: ratio(artificial, n),
		NaturalNoise:    ratio(natural, n),
	}
}

func (fe *featureExtractor) detectArtifacts(b *PixelBuffer) ArtifactFeatures {
	blocks, flagged := 0, 0
	for by := 0; by+blockSize <= b.Height; by += blockSize {
		for bx := 0; bx+blockSize <= b.Width; bx += blockSize {
			variation := 0
			for dy := 0; dy < blockSize; dy++ {
				for dx := 0; dx < blockSize-1; dx++ {
					i := b.offset(bx+dx, by+dy)
					variation += absDiff(b.Pix[i], b.Pix[i+4])
				}
			}
			if variation < blockVariationMin {
				flagged++
			}
			blocks++
		}
	}

	// Perfect edges compare the red channel only.
	w := b.Width
	counts := fe.countRows(1, b.Height-1, func(y0, y1 int) [3]int {
		var c [3]int
		for y := y0; y < y1; y++ {
			for x := 1; x < w-1; x++ {
				i := b.offset(x, y)
				hi, lo := 0, 255
				for _, n := range [4]int{i - w*4, i + w*4, i - 4, i + 4} {
					d := absDiff(b.Pix[i], b.Pix[n])
					hi, lo = max(hi, d), min(lo, d)
				}
				if hi > perfectEdgeDelta && lo == 0 {
					c[0]++
				}
			}
		}
		return c
	})

	return ArtifactFeatures{
		CompressionArtifacts: ratio(flagged, blocks),
		PerfectEdges:         ratio(counts[0], b.PixelCount()),
	}
}

// detectJPEGBlocks measures how often the 8-pixel grid lines carry a visible step.
func detectJPEGBlocks(b *PixelBuffer) *JPEGBlockFeatures {
	boundaries, total := 0, 0
	for y := blockSize; y < b.Height; y += blockSize {
		for x := 0; x < b.Width-1; x++ {
			if b.rgbDelta(b.offset(x, y), b.offset(x, y-1)) > jpegBoundaryDelta {
				boundaries++
			}
			total++
		}
	}
	for x := blockSize; x < b.Width; x += blockSize {
		for y := 0; y < b.Height-1; y++ {
			if b.rgbDelta(b.offset(x, y), b.offset(x-1, y)) > jpegBoundaryDelta {
				boundaries++
			}
			total++
		}
	}
	return &JPEGBlockFeatures{Blockiness: ratio(boundaries, total)}
}

// analyzeFrequency buckets interior pixels by their mean neighbour delta.
// It is a spatial proxy, not a Fourier transform.
func (fe *featureExtractor) analyzeFrequency(b *PixelBuffer) *FrequencyFeatures {
	w := b.Width
	counts := fe.countRows(1, b.Height-1, func(y0, y1 int) [3]int {
		var c [3]int
		for y := y0; y < y1; y++ {
			for x := 1; x < w-1; x++ {
				i := b.offset(x, y)
				total := 0
				for _, n := range [4]int{i - w*4, i + w*4, i - 4, i + 4} {
					total += b.rgbDelta(i, n)
				}
				avg := float64(total) / 4
				if avg > highFrequencyDelta {
					c[0]++
				} else if avg < lowFrequencyDelta {
					c[1]++
				}
			}
		}
		return c
	})

	interior := (b.Width - 2) * (b.Height - 2)
	high, low := counts[0], counts[1]
	return &FrequencyFeatures{
		HighFrequency: ratio(high, interior),
		LowFrequency:  ratio(low, interior),
		Balance:       float64(high) / float64(high+low+1),
	}
}

func ratio(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total)
}
