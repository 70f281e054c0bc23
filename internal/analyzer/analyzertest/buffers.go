// Package analyzertest builds synthetic pixel buffers for tests.
package analyzertest

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/anime-shed/ai-detector-go/internal/analyzer"
)

// Solid returns a buffer with every pixel set to c.
func Solid(width, height int, c color.NRGBA) *analyzer.PixelBuffer {
	return Fill(width, height, func(x, y int) color.NRGBA { return c })
}

// Checkerboard alternates black and white single pixels, white at (0,0).
func Checkerboard(width, height int) *analyzer.PixelBuffer {
	return Fill(width, height, func(x, y int) color.NRGBA {
		if (x+y)%2 == 0 {
			return color.NRGBA{255, 255, 255, 255}
		}
		return color.NRGBA{0, 0, 0, 255}
	})
}

// DiagonalGradient sets the red channel to (x+y) mod 256.
func DiagonalGradient(width, height int) *analyzer.PixelBuffer {
	return Fill(width, height, func(x, y int) color.NRGBA {
		return color.NRGBA{uint8((x + y) % 256), 0, 0, 255}
	})
}

// Noise fills every channel with seeded pseudo-random bytes.
func Noise(width, height int, seed int64) *analyzer.PixelBuffer {
	rng := rand.New(rand.NewSource(seed))
	return Fill(width, height, func(x, y int) color.NRGBA {
		return color.NRGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}
	})
}

// Fill builds a buffer from a per-pixel color function, called in raster order.
func Fill(width, height int, at func(x, y int) color.NRGBA) *analyzer.PixelBuffer {
	pix := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := at(x, y)
			i := (y*width + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return &analyzer.PixelBuffer{Width: width, Height: height, Pix: pix}
}

// Image renders a buffer as an *image.NRGBA.
func Image(buf *analyzer.PixelBuffer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	copy(img.Pix, buf.Pix)
	return img
}
