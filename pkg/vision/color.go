package vision

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/face-meme/pkg/types"
)

// ContrastLuminance is the relative luminance at and above which black text
// is used.
const ContrastLuminance = 0.7

// ColorConfig holds configuration for dominant color extraction
type ColorConfig struct {
	CornerFraction float64 // corner side as a fraction of the shorter image side
	CornerMaxSide  int     // corners are downsampled to at most this many pixels per side
	Clusters       int
	Iterations     int
}

// DefaultColorConfig samples 30% corners downsampled to 200px with a single cluster.
func DefaultColorConfig() ColorConfig {
	return ColorConfig{
		CornerFraction: 0.3,
		CornerMaxSide:  200,
		Clusters:       1,
		Iterations:     10,
	}
}

// ColorResolver picks background and foreground colors for a region.
type ColorResolver struct {
	config ColorConfig
}

// NewColorResolver creates a ColorResolver with default configuration
func NewColorResolver() *ColorResolver {
	return &ColorResolver{config: DefaultColorConfig()}
}

// NewColorResolverWithConfig creates a ColorResolver with custom configuration
func NewColorResolverWithConfig(config ColorConfig) *ColorResolver {
	if config.Clusters < 1 {
		config.Clusters = 1
	}
	if config.Iterations < 1 {
		config.Iterations = 1
	}
	return &ColorResolver{config: config}
}

// DominantColor returns the representative background color of img, sampled
// from its four corners. Images too small to yield corner pixels get mid-gray.
func (r *ColorResolver) DominantColor(img image.Image) types.RGB {
	pixels := r.cornerPixels(img)
	if len(pixels) == 0 {
		return types.Gray
	}
	return kmeans(pixels, r.config.Clusters, r.config.Iterations)
}

// Colors returns the dominant color of img and the text color that contrasts with it.
func (r *ColorResolver) Colors(img image.Image) (background, text types.RGB) {
	background = r.DominantColor(img)
	return background, ContrastColor(background)
}

func (r *ColorResolver) cornerPixels(img image.Image) [][3]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	side := int(float64(min(w, h)) * r.config.CornerFraction)
	if side <= 0 {
		return nil
	}

	corners := []image.Rectangle{
		image.Rect(0, 0, side, side),
		image.Rect(w-side, 0, w, side),
		image.Rect(0, h-side, side, h),
		image.Rect(w-side, h-side, w, h),
	}

	var pixels [][3]float64
	for _, c := range corners {
		corner := imaging.Crop(img, c.Add(b.Min))
		if r.config.CornerMaxSide > 0 && side > r.config.CornerMaxSide {
			corner = imaging.Fit(corner, r.config.CornerMaxSide, r.config.CornerMaxSide, imaging.Linear)
		}
		cw, ch := corner.Rect.Dx(), corner.Rect.Dy()
		for y := 0; y < ch; y++ {
			for x := 0; x < cw; x++ {
				i := y*corner.Stride + x*4
				pixels = append(pixels, [3]float64{
					float64(corner.Pix[i]),
					float64(corner.Pix[i+1]),
					float64(corner.Pix[i+2]),
				})
			}
		}
	}
	return pixels
}

// kmeans clusters pixels and returns the center of the most populated
// cluster. Initial centers are spread evenly over the pixel slice so results
// are reproducible. With k == 1 this is the plain mean.
func kmeans(pixels [][3]float64, k, iterations int) types.RGB {
	if k > len(pixels) {
		k = len(pixels)
	}
	if k <= 1 {
		return toRGB(mean(pixels))
	}

	centers := make([][3]float64, k)
	for i := range centers {
		centers[i] = pixels[i*len(pixels)/k]
	}

	assign := make([]int, len(pixels))
	for iter := 0; iter < iterations; iter++ {
		changed := iter == 0
		for i, p := range pixels {
			best, bestDist := 0, distSq(p, centers[0])
			for c := 1; c < k; c++ {
				if d := distSq(p, centers[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][3]float64, k)
		counts := make([]int, k)
		for i, p := range pixels {
			c := assign[i]
			counts[c]++
			for ch := 0; ch < 3; ch++ {
				sums[c][ch] += p[ch]
			}
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				centers[c][ch] = sums[c][ch] / float64(counts[c])
			}
		}
	}

	counts := make([]int, k)
	for _, c := range assign {
		counts[c]++
	}
	largest := 0
	for c := 1; c < k; c++ {
		if counts[c] > counts[largest] {
			largest = c
		}
	}
	return toRGB(centers[largest])
}

func mean(pixels [][3]float64) [3]float64 {
	var m [3]float64
	for _, p := range pixels {
		for ch := 0; ch < 3; ch++ {
			m[ch] += p[ch]
		}
	}
	for ch := 0; ch < 3; ch++ {
		m[ch] /= float64(len(pixels))
	}
	return m
}

func distSq(a, b [3]float64) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dr*dr + dg*dg + db*db
}

// toRGB truncates a float center to 8-bit channels.
func toRGB(c [3]float64) types.RGB {
	return types.RGB{R: clampByte(c[0]), G: clampByte(c[1]), B: clampByte(c[2])}
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// Luminance returns the relative luminance of c in [0,1].
func Luminance(c types.RGB) float64 {
	return 0.2126*float64(c.R)/255 + 0.7152*float64(c.G)/255 + 0.0722*float64(c.B)/255
}

// ContrastColor returns a readable text color for background bg: black on
// light backgrounds, otherwise the channel-wise inverse.
func ContrastColor(bg types.RGB) types.RGB {
	if Luminance(bg) >= ContrastLuminance {
		return types.Black
	}
	return bg.Inverse()
}
