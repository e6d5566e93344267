package render

import (
	"fmt"
	"image"
)

// Frame is a top-down 32bpp pixel buffer in premultiplied BGRA order, the
// layout UpdateLayeredWindow consumes.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

func newFrame(size image.Point) *Frame {
	return &Frame{
		Pix:    make([]byte, size.X*size.Y*4),
		Width:  size.X,
		Height: size.Y,
		Stride: size.X * 4,
	}
}

// Size returns the frame dimensions.
func (f *Frame) Size() image.Point {
	return image.Pt(f.Width, f.Height)
}

// Image converts the frame back into a premultiplied RGBA image.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+f.Width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for i := 0; i < len(src); i += 4 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
		}
	}
	return img
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame(%dx%d)", f.Width, f.Height)
}

// copyFrom swizzles a premultiplied RGBA canvas of the same size into f.
func (f *Frame) copyFrom(img *image.RGBA) {
	for y := 0; y < f.Height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		dst := f.Pix[y*f.Stride : y*f.Stride+f.Width*4]
		for i := 0; i < len(src); i += 4 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
		}
	}
}
