package cropper

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Cropper produces the final meme frame and the classifier input crops.
type Cropper struct {
	config CropConfig
}

// CropConfig holds configuration for cropping and enhancement
type CropConfig struct {
	Contrast   float64 // error meme contrast factor, 1 keeps the image
	Brightness float64 // error meme brightness factor, 1 keeps the image
}

// DefaultCropConfig returns the error meme enhancement used by default.
func DefaultCropConfig() CropConfig {
	return CropConfig{
		Contrast:   1.2,
		Brightness: 1.1,
	}
}

// New creates a new Cropper with default configuration
func New() *Cropper {
	return &Cropper{config: DefaultCropConfig()}
}

// NewWithConfig creates a new Cropper with custom configuration
func NewWithConfig(config CropConfig) *Cropper {
	return &Cropper{config: config}
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image  *image.NRGBA
	Region image.Rectangle // in source image coordinates
}

// CropToWindow crops img to window clipped to the image bounds.
func (c *Cropper) CropToWindow(img image.Image, window image.Rectangle) (CropResult, error) {
	rect := window.Intersect(img.Bounds())
	if rect.Empty() {
		return CropResult{}, fmt.Errorf("crop window %v is outside image bounds %v", window, img.Bounds())
	}
	return CropResult{Image: imaging.Crop(img, rect), Region: rect}, nil
}

// CropSquare crops the largest centered square out of img.
func (c *Cropper) CropSquare(img image.Image) (CropResult, error) {
	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy())
	if side <= 0 {
		return CropResult{}, fmt.Errorf("invalid image dimensions")
	}
	left := bounds.Min.X + (bounds.Dx()-side)/2
	top := bounds.Min.Y + (bounds.Dy()-side)/2
	return c.CropToWindow(img, image.Rect(left, top, left+side, top+side))
}

// CropFace crops the face rectangle clipped to the image and shrinks it to
// fit within maxSide pixels. A maxSide of 0 keeps the original size.
func (c *Cropper) CropFace(img image.Image, face image.Rectangle, maxSide int) (*image.NRGBA, error) {
	res, err := c.CropToWindow(img, face)
	if err != nil {
		return nil, fmt.Errorf("failed to crop face: %w", err)
	}
	if maxSide > 0 && (res.Image.Rect.Dx() > maxSide || res.Image.Rect.Dy() > maxSide) {
		return imaging.Fit(res.Image, maxSide, maxSide, imaging.Lanczos), nil
	}
	return res.Image, nil
}

// Enhance applies the configured contrast and then brightness factors.
//
// Contrast blends every pixel with the mean gray level of the image,
// brightness scales every channel.
func (c *Cropper) Enhance(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	if c.config.Contrast != 1 {
		out = adjustContrast(out, c.config.Contrast)
	}
	if c.config.Brightness != 1 {
		f := c.config.Brightness
		out = imaging.AdjustFunc(out, func(px color.NRGBA) color.NRGBA {
			return color.NRGBA{
				R: clamp(float64(px.R) * f),
				G: clamp(float64(px.G) * f),
				B: clamp(float64(px.B) * f),
				A: px.A,
			}
		})
	}
	return out
}

func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	gray := meanGray(img)
	return imaging.AdjustFunc(img, func(px color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(gray + factor*(float64(px.R)-gray)),
			G: clamp(gray + factor*(float64(px.G)-gray)),
			B: clamp(gray + factor*(float64(px.B)-gray)),
			A: px.A,
		}
	})
}

// meanGray is the rounded mean luma of img.
func meanGray(img *image.NRGBA) float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			sum += (299*float64(img.Pix[i]) + 587*float64(img.Pix[i+1]) + 114*float64(img.Pix[i+2])) / 1000
		}
	}
	return float64(int(sum/float64(w*h) + 0.5))
}

func clamp(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
