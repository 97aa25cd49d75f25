package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Frame wraps a decoded still image or video frame. The zero value is an
// empty frame with no pixels.
type Frame struct {
	Img image.Image
}

// NewFrame wraps an already-decoded image.
func NewFrame(img image.Image) Frame {
	return Frame{Img: img}
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Img == nil {
		return 0
	}
	return f.Img.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Img == nil {
		return 0
	}
	return f.Img.Bounds().Dy()
}

// PixelRect returns the source-pixel rectangle covered by the normalized rect.
func (f Frame) PixelRect(r Rect) image.Rectangle {
	if f.Img == nil {
		return image.Rectangle{}
	}
	b := f.Img.Bounds()
	r = r.Clamp()
	w := float64(b.Dx())
	h := float64(b.Dy())
	return image.Rect(
		b.Min.X+int(r.XMin*w),
		b.Min.Y+int(r.YMin*h),
		b.Min.X+int(r.XMax*w),
		b.Min.Y+int(r.YMax*h),
	)
}

// Patch resamples the region of the frame covered by the normalized rect into
// a size×size square. The same sampling path serves training crops and runtime
// query crops, which keeps their embeddings comparable.
func (f Frame) Patch(r Rect, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if f.Img == nil {
		return dst
	}
	src := f.PixelRect(r)
	if src.Empty() {
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), f.Img, src, draw.Src, nil)
	return dst
}

// DecodeFrame decodes an encoded raster (JPEG, PNG, or GIF) into a Frame.
func DecodeFrame(data []byte) (Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("decoding image: %w", err)
	}
	return Frame{Img: img}, nil
}

// EncodeJPEG encodes an image as JPEG with display-grade quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
