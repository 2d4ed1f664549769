package vision

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/menta2k/face-meme/pkg/types"
)

// createTestImage creates a checkerboard image whose rows from calmFrom
// downwards are flat gray.
func createTestImage(width, height, calmFrom int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			switch {
			case y >= calmFrom:
				img.Set(x, y, color.NRGBA{128, 128, 128, 255})
			case (x+y)%2 == 0:
				img.Set(x, y, color.NRGBA{255, 255, 255, 255})
			default:
				img.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func fill(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestComplexity(t *testing.T) {
	flat, err := Complexity(fill(20, 20, color.NRGBA{10, 200, 30, 255}))
	if err != nil {
		t.Fatalf("Complexity failed: %v", err)
	}
	if flat != 0 {
		t.Errorf("Expected flat image complexity 0, got %f", flat)
	}

	busy, err := Complexity(createTestImage(20, 20, 20))
	if err != nil {
		t.Fatalf("Complexity failed: %v", err)
	}
	if math.Abs(busy-127.5) > 1e-9 {
		t.Errorf("Expected checkerboard complexity 127.5, got %f", busy)
	}

	if _, err := Complexity(image.NewNRGBA(image.Rectangle{})); err != ErrEmptyRegion {
		t.Errorf("Expected ErrEmptyRegion, got %v", err)
	}
}

func TestRegionComplexity(t *testing.T) {
	img := createTestImage(40, 40, 20)
	calm, err := RegionComplexity(img, image.Rect(0, 20, 40, 40))
	if err != nil {
		t.Fatalf("RegionComplexity failed: %v", err)
	}
	if calm != 0 {
		t.Errorf("Expected calm half to score 0, got %f", calm)
	}
	if _, err := RegionComplexity(img, image.Rect(50, 50, 60, 60)); err != ErrEmptyRegion {
		t.Errorf("Expected ErrEmptyRegion outside bounds, got %v", err)
	}
}

func TestDominantColor(t *testing.T) {
	r := NewColorResolver()

	got := r.DominantColor(fill(50, 40, color.NRGBA{200, 10, 20, 255}))
	if got != (types.RGB{R: 200, G: 10, B: 20}) {
		t.Errorf("Expected flat color, got %+v", got)
	}

	// large corners are downsampled before clustering
	got = r.DominantColor(fill(1000, 800, color.NRGBA{0, 0, 255, 255}))
	if got != (types.RGB{B: 255}) {
		t.Errorf("Expected blue, got %+v", got)
	}

	if got := r.DominantColor(fill(2, 2, color.NRGBA{255, 0, 0, 255})); got != types.Gray {
		t.Errorf("Expected gray for an image without corner pixels, got %+v", got)
	}
}

func TestDominantColorSamplesCornersOnly(t *testing.T) {
	img := fill(100, 100, color.NRGBA{255, 255, 255, 255})
	for y := 30; y < 70; y++ {
		for x := 30; x < 70; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	if got := NewColorResolver().DominantColor(img); got != types.White {
		t.Errorf("Center pixels should not affect the dominant color, got %+v", got)
	}
}

func TestDominantColorLargestCluster(t *testing.T) {
	img := fill(100, 100, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}

	cfg := DefaultColorConfig()
	cfg.Clusters = 2
	if got := NewColorResolverWithConfig(cfg).DominantColor(img); got != types.White {
		t.Errorf("Expected the larger white cluster, got %+v", got)
	}

	// a single cluster averages the corners: 3/4 white, 1/4 black
	if got := NewColorResolver().DominantColor(img); got != (types.RGB{R: 191, G: 191, B: 191}) {
		t.Errorf("Expected mean gray, got %+v", got)
	}
}

func TestContrastColor(t *testing.T) {
	tests := []struct {
		bg   types.RGB
		want types.RGB
	}{
		{types.White, types.Black},
		{types.Black, types.White},
		{types.RGB{R: 179, G: 179, B: 179}, types.Black},
		{types.RGB{R: 178, G: 178, B: 178}, types.RGB{R: 77, G: 77, B: 77}},
		{types.RGB{R: 255, G: 0, B: 0}, types.RGB{R: 0, G: 255, B: 255}},
	}
	for _, tt := range tests {
		if got := ContrastColor(tt.bg); got != tt.want {
			t.Errorf("ContrastColor(%+v) = %+v, want %+v", tt.bg, got, tt.want)
		}
	}
}

func TestSafeZone(t *testing.T) {
	tests := []struct {
		name   string
		face   image.Rectangle
		bounds image.Rectangle
		want   image.Rectangle
	}{
		{"centered", image.Rect(150, 150, 250, 250), image.Rect(0, 0, 400, 400), image.Rect(100, 100, 300, 300)},
		{"clipped at origin", image.Rect(0, 0, 50, 50), image.Rect(0, 0, 400, 300), image.Rect(0, 0, 100, 100)},
		{"limited by image", image.Rect(50, 50, 450, 450), image.Rect(0, 0, 500, 500), image.Rect(0, 0, 500, 500)},
		{"clipped at far edge", image.Rect(350, 0, 400, 50), image.Rect(0, 0, 400, 400), image.Rect(325, 0, 400, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeZone(tt.face, tt.bounds, 2)
			if got != tt.want {
				t.Errorf("SafeZone = %v, want %v", got, tt.want)
			}
			if !tt.face.Intersect(tt.bounds).In(got) {
				t.Errorf("SafeZone %v does not contain face %v", got, tt.face)
			}
		})
	}
}

func TestSelectPrefersCalmRegion(t *testing.T) {
	img := createTestImage(400, 400, 250)
	face := image.Rect(150, 150, 250, 250)
	s := NewSelector()
	safe := s.SafeZone(face, img.Bounds())

	got := s.Select(img, face, safe, nil, false)
	if got.Name != RegionBottom {
		t.Fatalf("Expected bottom region, got %s", got.Name)
	}
	if got.Rect != image.Rect(100, 250, 300, 325) {
		t.Errorf("Unexpected bottom rect %v", got.Rect)
	}
	if got.Window != image.Rect(100, 125, 300, 325) {
		t.Errorf("Unexpected crop window %v", got.Window)
	}
	if got.Complexity != 0 || got.Score != 1 {
		t.Errorf("Expected complexity 0 and score 1, got %f and %f", got.Complexity, got.Score)
	}
	if got.Distance <= 0 {
		t.Errorf("Expected a positive distance to the face center, got %f", got.Distance)
	}
}

func TestSelectEdgeExpansion(t *testing.T) {
	img := createTestImage(400, 400, 400)
	face := image.Rect(150, 150, 250, 250)
	safe := image.Rect(100, 100, 300, 300)

	want := map[RegionName]image.Rectangle{
		RegionTop:    image.Rect(100, 75, 300, 150),
		RegionBottom: image.Rect(100, 250, 300, 325),
		RegionLeft:   image.Rect(75, 100, 150, 300),
		RegionRight:  image.Rect(250, 100, 325, 300),
	}
	cands := NewSelector().Candidates(img, face, safe, nil, false)
	if len(cands) != 4 {
		t.Fatalf("Expected 4 candidates, got %d", len(cands))
	}
	for _, c := range cands {
		if c.Rect != want[c.Name] {
			t.Errorf("%s: rect %v, want %v", c.Name, c.Rect, want[c.Name])
		}
		if c.Image.Bounds().Dx() != c.Rect.Dx() || c.Image.Bounds().Dy() != c.Rect.Dy() {
			t.Errorf("%s: sub-image size %v does not match rect %v", c.Name, c.Image.Bounds(), c.Rect)
		}
	}
}

func TestSelectTieKeepsFirst(t *testing.T) {
	img := fill(400, 400, color.NRGBA{90, 90, 90, 255})
	face := image.Rect(150, 150, 250, 250)
	got := NewSelector().Select(img, face, image.Rect(100, 100, 300, 300), nil, false)
	if got.Name != RegionTop {
		t.Errorf("Expected first candidate on a tie, got %s", got.Name)
	}
}

func TestBestPrefersLowerComplexity(t *testing.T) {
	cands := []Candidate{
		{Name: RegionTop, Complexity: 90, Score: Score(90)},
		{Name: RegionBottom, Complexity: 10, Score: Score(10)},
	}
	got, ok := Best(cands)
	if !ok || got.Name != RegionBottom {
		t.Errorf("Expected complexity 10 to win, got %+v", got)
	}
	if math.Abs(Score(10)-1.0/11) > 1e-12 || math.Abs(Score(90)-1.0/91) > 1e-12 {
		t.Errorf("Unexpected scores %f %f", Score(10), Score(90))
	}
	if _, ok := Best(nil); ok {
		t.Error("Best of no candidates should report false")
	}
}

func testLandmarks() types.Landmarks {
	lm := make(types.Landmarks, types.LandmarkCount)
	for i := range lm {
		lm[i] = image.Pt(200, 200)
	}
	lm[types.RightEyeOuter] = image.Pt(170, 190)
	lm[types.LeftEyeOuter] = image.Pt(230, 190)
	lm[types.MouthLeftCorner] = image.Pt(180, 230)
	lm[types.MouthRightCorner] = image.Pt(220, 230)
	return lm
}

func TestCornerCandidates(t *testing.T) {
	img := createTestImage(400, 400, 400)
	face := image.Rect(150, 150, 250, 250)
	safe := image.Rect(100, 100, 300, 300)
	s := NewSelector()

	cands := s.Candidates(img, face, safe, testLandmarks(), true)
	var names []RegionName
	for _, c := range cands {
		names = append(names, c.Name)
	}
	want := []RegionName{RegionTop, RegionBottom, RegionLeftBottom, RegionLeftTop, RegionRightBottom, RegionRightTop}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("Expected corner candidates %v, got %v", want, names)
	}

	// left_top ends at landmark 36 and right_top starts at landmark 45, so
	// neither spans the width of the face. The bottom strip lies below the
	// face and the left corners grow leftward.
	wantRects := []image.Rectangle{
		image.Rect(100, 75, 300, 150),
		image.Rect(100, 250, 300, 325),
		image.Rect(75, 230, 180, 300),
		image.Rect(75, 100, 170, 190),
		image.Rect(220, 230, 325, 300),
		image.Rect(230, 100, 325, 190),
	}
	for i, c := range cands {
		if c.Rect != wantRects[i] {
			t.Errorf("Unexpected %s rect %v, want %v", c.Name, c.Rect, wantRects[i])
		}
	}

	// without landmarks a short caption falls back to the edges
	if got := s.Candidates(img, face, safe, nil, true); len(got) != 4 {
		t.Errorf("Expected 4 edge candidates without landmarks, got %d", len(got))
	}
}

func TestSelectDegenerateUsesDefault(t *testing.T) {
	img := createTestImage(100, 100, 100)
	face := img.Bounds()
	safe := NewSelector().SafeZone(face, img.Bounds())

	got := NewSelector().Select(img, face, safe, nil, false)
	if got.Name != RegionDefaultBottom {
		t.Fatalf("Expected default region, got %s", got.Name)
	}
	if got.Rect != image.Rect(0, 70, 100, 100) || got.Center != image.Pt(50, 85) {
		t.Errorf("Unexpected default region %v center %v", got.Rect, got.Center)
	}
	if got.Window != safe {
		t.Errorf("Expected default window to be the safe zone, got %v", got.Window)
	}
}

func TestIsShort(t *testing.T) {
	s := NewSelector()
	if !s.IsShort("呕") || !s.IsShort("ok") {
		t.Error("One and two rune captions should be short")
	}
	if s.IsShort("nope") {
		t.Error("Four rune caption should not be short")
	}
}

func TestRegionNameText(t *testing.T) {
	b, err := RegionRightBottom.MarshalText()
	if err != nil || string(b) != "right_bottom" {
		t.Errorf("Unexpected text %q, %v", b, err)
	}
}

func BenchmarkSelect(b *testing.B) {
	img := createTestImage(800, 800, 500)
	face := image.Rect(300, 300, 500, 500)
	s := NewSelector()
	safe := s.SafeZone(face, img.Bounds())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Select(img, face, safe, nil, false)
	}
}
