package vision

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrEmptyRegion is returned when a region contains no pixels.
var ErrEmptyRegion = errors.New("vision: region is empty")

// Complexity returns the visual busyness of img: the mean over the R, G and B
// channels of the population standard deviation of that channel, on a 0-255
// scale. A flat image scores 0.
func Complexity(img image.Image) (float64, error) {
	if img == nil || img.Bounds().Empty() {
		return 0, ErrEmptyRegion
	}

	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	n := float64(w * h)

	var sum, sumSq [3]float64
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				v := float64(px[c])
				sum[c] += v
				sumSq[c] += v * v
			}
		}
	}

	var total float64
	for c := 0; c < 3; c++ {
		mean := sum[c] / n
		variance := sumSq[c]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		total += math.Sqrt(variance)
	}
	return total / 3, nil
}

// RegionComplexity scores the part of img inside rect.
func RegionComplexity(img image.Image, rect image.Rectangle) (float64, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return 0, ErrEmptyRegion
	}
	return Complexity(imaging.Crop(img, rect))
}

// toNRGBA returns img as an *image.NRGBA whose Rect starts at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
