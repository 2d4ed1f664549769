package cropper

import (
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	// bright square in the middle third over a dark background
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.SetNRGBA(x, y, color.NRGBA{200, 200, 200, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{64, 64, 64, 255})
			}
		}
	}

	return img
}

func TestNew(t *testing.T) {
	c := New()
	if c.config.Contrast != 1.2 || c.config.Brightness != 1.1 {
		t.Errorf("Unexpected default config %+v", c.config)
	}
}

func TestCropSquare(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		want   image.Rectangle
	}{
		{"landscape", 600, 400, image.Rect(100, 0, 500, 400)},
		{"portrait", 300, 500, image.Rect(0, 100, 300, 400)},
		{"square", 500, 500, image.Rect(0, 0, 500, 500)},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.CropSquare(createTestImage(tt.width, tt.height))
			if err != nil {
				t.Fatalf("CropSquare failed: %v", err)
			}
			if res.Region != tt.want {
				t.Errorf("Expected region %v, got %v", tt.want, res.Region)
			}
			b := res.Image.Bounds()
			if b.Dx() != b.Dy() || b.Dx() != tt.want.Dx() {
				t.Errorf("Expected %dx%d square, got %v", tt.want.Dx(), tt.want.Dx(), b)
			}
		})
	}

	if _, err := c.CropSquare(image.NewNRGBA(image.Rectangle{})); err == nil {
		t.Error("Expected error for an empty image")
	}
}

func TestCropToWindow(t *testing.T) {
	c := New()
	img := createTestImage(200, 100)

	res, err := c.CropToWindow(img, image.Rect(150, 50, 250, 150))
	if err != nil {
		t.Fatalf("CropToWindow failed: %v", err)
	}
	if res.Region != image.Rect(150, 50, 200, 100) {
		t.Errorf("Expected window clipped to image, got %v", res.Region)
	}
	if res.Image.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Errorf("Expected origin-based 50x50 image, got %v", res.Image.Bounds())
	}

	if _, err := c.CropToWindow(img, image.Rect(300, 300, 400, 400)); err == nil {
		t.Error("Expected error for a window outside the image")
	}
}

func TestCropFace(t *testing.T) {
	c := New()
	img := createTestImage(1000, 800)

	face, err := c.CropFace(img, image.Rect(100, 100, 700, 400), 300)
	if err != nil {
		t.Fatalf("CropFace failed: %v", err)
	}
	if face.Bounds().Dx() != 300 || face.Bounds().Dy() != 150 {
		t.Errorf("Expected face scaled to 300x150, got %v", face.Bounds())
	}

	small, err := c.CropFace(img, image.Rect(-20, -20, 50, 50), 300)
	if err != nil {
		t.Fatalf("CropFace failed: %v", err)
	}
	if small.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Errorf("Expected clipped 50x50 face, got %v", small.Bounds())
	}
}

func TestEnhance(t *testing.T) {
	img := createTestImage(90, 90)
	out := New().Enhance(img)

	dark := out.NRGBAAt(0, 0)
	bright := out.NRGBAAt(45, 45)
	if int(bright.R)-int(dark.R) <= 200-64 {
		t.Errorf("Expected contrast to widen the gap, got %d to %d", dark.R, bright.R)
	}
	if bright.R <= 200 {
		t.Errorf("Expected the bright square to get brighter, got %d", bright.R)
	}
	if dark.A != 255 || bright.A != 255 {
		t.Error("Enhance must keep alpha")
	}
	if img.NRGBAAt(0, 0).R != 64 {
		t.Error("Enhance must not modify its input")
	}

	same := NewWithConfig(CropConfig{Contrast: 1, Brightness: 1}).Enhance(img)
	if same.NRGBAAt(45, 45) != img.NRGBAAt(45, 45) {
		t.Error("Identity factors should leave pixels unchanged")
	}
}

func BenchmarkEnhance(b *testing.B) {
	c := New()
	img := createTestImage(800, 800)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Enhance(img)
	}
}
