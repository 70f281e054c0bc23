package analyzer

import (
	"fmt"
	"image"
	"image/draw"

	apperrors "github.com/anime-shed/ai-detector-go/internal/errors"
)

// Accepted image dimensions, inclusive, on each axis.
const (
	MinDimension = 50
	MaxDimension = 4096
)

// PixelBuffer is a read-only RGBA view of a decoded image.
// Pix holds Width*Height pixels in raster order, 4 bytes each (R, G, B, A).
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixelBuffer wraps raw RGBA samples and validates them.
func NewPixelBuffer(width, height int, pix []byte) (*PixelBuffer, error) {
	buf := &PixelBuffer{Width: width, Height: height, Pix: pix}
	if err := ValidateBuffer(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// FromImage converts a decoded image into a non-premultiplied RGBA buffer.
// The result is not validated.
func FromImage(img image.Image) *PixelBuffer {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == 4*b.Dx() && len(nrgba.Pix) == 4*b.Dx()*b.Dy() {
		pix := make([]byte, len(nrgba.Pix))
		copy(pix, nrgba.Pix)
		return &PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: pix}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// ValidateBuffer checks the buffer is present, within the accepted
// dimensions and exactly Width*Height*4 bytes long.
func ValidateBuffer(buf *PixelBuffer) error {
	if buf == nil || buf.Pix == nil {
		return apperrors.NewValidationError("missing pixel data", nil).WithDetails("missing_data")
	}
	if buf.Width < MinDimension || buf.Width > MaxDimension ||
		buf.Height < MinDimension || buf.Height > MaxDimension {
		return apperrors.NewValidationError(
			fmt.Sprintf("image dimensions %dx%d outside [%d, %d]", buf.Width, buf.Height, MinDimension, MaxDimension),
			nil,
		).WithDetails("dimensions")
	}
	if want := buf.Width * buf.Height * 4; len(buf.Pix) != want {
		return apperrors.NewValidationError(
			fmt.Sprintf("buffer holds %d bytes, expected %d", len(buf.Pix), want),
			nil,
		).WithDetails("buffer_length")
	}
	return nil
}

// PixelCount returns Width*Height.
func (b *PixelBuffer) PixelCount() int {
	return b.Width * b.Height
}

func (b *PixelBuffer) offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// rgbDelta is the summed absolute R+G+B difference between two pixel offsets.
func (b *PixelBuffer) rgbDelta(i, j int) int {
	return absDiff(b.Pix[i], b.Pix[j]) + absDiff(b.Pix[i+1], b.Pix[j+1]) + absDiff(b.Pix[i+2], b.Pix[j+2])
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
