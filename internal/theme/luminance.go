package theme

import "image"

// Rec. 709 luma coefficients.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// areaThreshold splits light from dark backgrounds on average luminance.
const areaThreshold = 0.5

// Luminance returns the average relative luminance of img in [0, 1]. Alpha
// is ignored; captured screen pixels are opaque.
func Luminance(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum += lumaR*float64(r>>8) + lumaG*float64(g>>8) + lumaB*float64(bl>>8)
		}
	}
	return sum / float64(b.Dx()*b.Dy()*255)
}

// VariantForLuminance maps an average luminance onto a Variant.
func VariantForLuminance(l float64) Variant {
	if l > areaThreshold {
		return Light
	}
	return Dark
}
