package vision

import (
	"fmt"
	"image"
)

// Variant names in the order Variants returns them.
const (
	VariantIdentity          = "identity"
	VariantBinarized         = "binarized"
	VariantAdaptiveThreshold = "adaptive-threshold"
	VariantContrastStretched = "contrast-stretched"
)

// VariantNames lists every variant, identity first.
var VariantNames = []string{
	VariantIdentity,
	VariantBinarized,
	VariantAdaptiveThreshold,
	VariantContrastStretched,
}

// Tuning for the threshold variants.
const (
	FixedThreshold  = 128
	AdaptiveRadius  = 15
	AdaptiveScale   = 0.9
	MinNeighbourInk = 3
	contrastCutoff  = 128
)

const (
	foreground uint8 = 0
	background uint8 = 255
)

// ImageVariant is one named rendering of a source image. The pixel buffer is
// owned by the variant.
type ImageVariant struct {
	Name  string
	Image image.Image
}

// Variants builds every variant of src in VariantNames order.
func Variants(src image.Image) ([]ImageVariant, error) {
	out := make([]ImageVariant, 0, len(VariantNames))
	for _, name := range VariantNames {
		v, err := BuildVariant(name, src)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// BuildVariant renders a single named variant.
func BuildVariant(name string, src image.Image) (ImageVariant, error) {
	switch name {
	case VariantIdentity:
		return ImageVariant{Name: name, Image: Clone(src)}, nil
	case VariantBinarized:
		return ImageVariant{Name: name, Image: Binarize(src)}, nil
	case VariantAdaptiveThreshold:
		return ImageVariant{Name: name, Image: AdaptiveThreshold(src)}, nil
	case VariantContrastStretched:
		return ImageVariant{Name: name, Image: ContrastStretch(src)}, nil
	default:
		return ImageVariant{}, fmt.Errorf("vision: unknown variant %q", name)
	}
}

// Binarize applies a fixed threshold and then clears isolated ink pixels:
// any foreground pixel with fewer than MinNeighbourInk foreground neighbours
// (of 8) becomes background. Glyph edges are left intact.
// This is a pure function with no side effects.
func Binarize(src image.Image) *image.Gray {
	gray := Grayscale(src)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	thresholded := image.NewGray(gray.Rect)
	for i, v := range gray.Pix {
		if v < FixedThreshold {
			thresholded.Pix[i] = foreground
		} else {
			thresholded.Pix[i] = background
		}
	}

	out := image.NewGray(gray.Rect)
	copy(out.Pix, thresholded.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if thresholded.Pix[y*thresholded.Stride+x] != foreground {
				continue
			}
			if inkNeighbours(thresholded, x, y) < MinNeighbourInk {
				out.Pix[y*out.Stride+x] = background
			}
		}
	}
	return out
}

func inkNeighbours(img *image.Gray, x, y int) int {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if img.Pix[ny*img.Stride+nx] == foreground {
				n++
			}
		}
	}
	return n
}

// AdaptiveThreshold marks a pixel as ink when it is darker than AdaptiveScale
// times the mean of its (2*AdaptiveRadius+1)^2 window, clipped at the edges.
// Window sums come from an integral image so the cost is independent of the
// radius.
func AdaptiveThreshold(src image.Image) *image.Gray {
	gray := Grayscale(src)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	// integral has a zero row and column in front.
	stride := w + 1
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(gray.Pix[y*gray.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	out := image.NewGray(gray.Rect)
	for y := 0; y < h; y++ {
		y0, y1 := clamp(y-AdaptiveRadius, 0, h-1), clamp(y+AdaptiveRadius, 0, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := clamp(x-AdaptiveRadius, 0, w-1), clamp(x+AdaptiveRadius, 0, w-1)
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			count := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			mean := float64(sum) / float64(count)

			if float64(gray.Pix[y*gray.Stride+x]) < mean*AdaptiveScale {
				out.Pix[y*out.Stride+x] = foreground
			} else {
				out.Pix[y*out.Stride+x] = background
			}
		}
	}
	return out
}

// ContrastStretch remaps the observed grey range [min,max] onto [0,255] and
// cuts at the midpoint. A flat image has no ink and comes back blank.
func ContrastStretch(src image.Image) *image.Gray {
	gray := Grayscale(src)
	out := image.NewGray(gray.Rect)

	lo, hi := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range out.Pix {
			out.Pix[i] = background
		}
		return out
	}

	span := int(hi) - int(lo)
	for i, v := range gray.Pix {
		stretched := (int(v) - int(lo)) * 255 / span
		if stretched < contrastCutoff {
			out.Pix[i] = foreground
		} else {
			out.Pix[i] = background
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
