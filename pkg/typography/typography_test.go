package typography

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/face-meme/pkg/types"
	"github.com/menta2k/face-meme/pkg/vision"
)

func fill(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var white = color.NRGBA{255, 255, 255, 255}

func candidate(rect image.Rectangle, complexity float64) vision.Candidate {
	return vision.Candidate{
		Name:       vision.RegionBottom,
		Rect:       rect,
		Center:     image.Pt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2),
		Complexity: complexity,
	}
}

func TestLoadFontFallback(t *testing.T) {
	if f := LoadFont(""); f.Source() != BuiltinFont {
		t.Errorf("Expected built-in font for empty path, got %s", f.Source())
	}
	if f := LoadFont(filepath.Join(t.TempDir(), "missing.ttf")); f.Source() != BuiltinFont {
		t.Errorf("Expected built-in font for missing file, got %s", f.Source())
	}

	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0644); err != nil {
		t.Fatalf("Failed to write font file: %v", err)
	}
	if f := LoadFont(bad); f.Source() != BuiltinFont {
		t.Errorf("Expected built-in font for unparsable file, got %s", f.Source())
	}
}

func TestMeasureGrowsWithSize(t *testing.T) {
	f := Builtin()
	small, err := f.Measure("meme", 10)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	large, err := f.Measure("meme", 40)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if small <= 0 || large <= small {
		t.Errorf("Expected width to grow with size, got %d and %d", small, large)
	}

	widest, err := f.MeasureWidest("mil", 40)
	if err != nil {
		t.Fatalf("MeasureWidest failed: %v", err)
	}
	m, _ := f.Measure("m", 40)
	if widest != m {
		t.Errorf("Expected widest rune to be m (%d), got %d", m, widest)
	}
}

func TestPlanHorizontal(t *testing.T) {
	p := NewPlanner(nil, nil)
	rect := image.Rect(50, 300, 450, 400)

	plan, err := p.Plan(fill(400, 100, white), candidate(rect, 0), "  hello world ")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Text != "hello world" {
		t.Errorf("Expected trimmed caption, got %q", plan.Text)
	}
	if plan.Orientation != Horizontal {
		t.Errorf("Expected horizontal text in a wide region")
	}
	if plan.TextColor != types.Black || plan.Background != types.White {
		t.Errorf("Expected black on white, got %+v on %+v", plan.TextColor, plan.Background)
	}
	if plan.Style != StylePlain {
		t.Errorf("Expected plain style, got %s", plan.Style)
	}

	f := p.Font()
	prev, _ := f.Measure(plan.Text, plan.FontSize-1)
	if float64(prev) >= 0.9*400 || float64(plan.FontSize-1) >= 0.9*100 {
		t.Errorf("Size %d is more than one step past the fit bound", plan.FontSize)
	}
	width, _ := f.Measure(plan.Text, plan.FontSize)
	if float64(width) < 0.9*400 && float64(plan.FontSize) < 0.9*100 {
		t.Errorf("Growth stopped early at %d", plan.FontSize)
	}
	if plan.Anchor.X != 250-width/2 || plan.Anchor.Y != 300+(100-plan.FontSize)/2 {
		t.Errorf("Unexpected anchor %v", plan.Anchor)
	}
}

func TestPlanVertical(t *testing.T) {
	p := NewPlanner(nil, nil)
	rect := image.Rect(0, 0, 60, 400)

	plan, err := p.Plan(fill(60, 400, white), candidate(rect, 0), "wow")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Orientation != Vertical {
		t.Fatalf("Expected vertical text in a tall region")
	}
	if plan.Spacing != p.Config().VerticalSpacing {
		t.Errorf("Expected spacing %d, got %d", p.Config().VerticalSpacing, plan.Spacing)
	}

	prevW, _ := p.Font().MeasureWidest(plan.Text, plan.FontSize-1)
	prevH := StackHeight(3, plan.FontSize-1, plan.Spacing)
	if float64(prevW) >= 0.9*60 || float64(prevH) >= 0.9*400 {
		t.Errorf("Size %d is more than one step past the fit bound", plan.FontSize)
	}
	height := StackHeight(3, plan.FontSize, plan.Spacing)
	if plan.Anchor.Y != (400-height)/2 {
		t.Errorf("Expected vertically centered stack, got anchor %v", plan.Anchor)
	}
}

func TestPlanStyle(t *testing.T) {
	tests := []struct {
		name       string
		bg         color.NRGBA
		complexity float64
		style      Style
		effect     color.NRGBA
	}{
		{"calm", white, 60, StylePlain, color.NRGBA{}},
		{"busy on white", white, 70, StyleShadow, color.NRGBA{255, 255, 255, 128}},
		{"busy on black", color.NRGBA{0, 0, 0, 255}, 70, StyleShadow, color.NRGBA{0, 0, 0, 128}},
		{"very busy on white", white, 80.5, StyleOutline, color.NRGBA{255, 255, 255, 255}},
		{"very busy on black", color.NRGBA{0, 0, 0, 255}, 95, StyleOutline, color.NRGBA{0, 0, 0, 255}},
	}

	p := NewPlanner(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.Plan(fill(200, 50, tt.bg), candidate(image.Rect(0, 0, 200, 50), tt.complexity), "caption")
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			if plan.Style != tt.style || plan.EffectColor != tt.effect {
				t.Errorf("Got %s %v, want %s %v", plan.Style, plan.EffectColor, tt.style, tt.effect)
			}
		})
	}
}

func TestPlanErrors(t *testing.T) {
	p := NewPlanner(nil, nil)
	if _, err := p.Plan(fill(10, 10, white), candidate(image.Rect(0, 0, 10, 10), 0), "   "); err != ErrEmptyCaption {
		t.Errorf("Expected ErrEmptyCaption, got %v", err)
	}
	_, err := p.Plan(fill(10, 10, white), candidate(image.Rectangle{}, 0), "hi")
	if !errors.Is(err, vision.ErrEmptyRegion) {
		t.Errorf("Expected ErrEmptyRegion, got %v", err)
	}
}

func TestPlanTinyRegionKeepsStartSize(t *testing.T) {
	p := NewPlanner(nil, nil)
	plan, err := p.Plan(fill(5, 5, white), candidate(image.Rect(0, 0, 5, 5), 0), "hi")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.FontSize != p.Config().StartFontSize {
		t.Errorf("Expected start size %d, got %d", p.Config().StartFontSize, plan.FontSize)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	bad := DefaultConfig()
	bad.FitFraction = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("Fit fraction above 1 should fail validation")
	}
	bad = DefaultConfig()
	bad.OutlineThreshold = 50
	if err := bad.Validate(); err == nil {
		t.Error("Outline threshold below shadow threshold should fail validation")
	}
}

func countDiffering(img *image.NRGBA, c color.NRGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y) != c {
				n++
			}
		}
	}
	return n
}

func TestRendererDraw(t *testing.T) {
	p := NewPlanner(nil, nil)
	r := NewRenderer(p.Font())

	for _, complexity := range []float64{0, 70, 90} {
		img := fill(300, 80, white)
		plan, err := p.Plan(img, candidate(img.Bounds(), complexity), "draw me")
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if err := r.Draw(img, plan); err != nil {
			t.Fatalf("Draw failed: %v", err)
		}
		if countDiffering(img, white) == 0 {
			t.Errorf("complexity %.0f: expected text pixels to be drawn", complexity)
		}
	}

	if err := r.Draw(fill(10, 10, white), Plan{}); err != ErrEmptyCaption {
		t.Errorf("Expected ErrEmptyCaption for an empty plan, got %v", err)
	}
}

func TestRendererVertical(t *testing.T) {
	p := NewPlanner(nil, nil)
	img := fill(60, 300, white)
	plan, err := p.Plan(img, candidate(img.Bounds(), 0), "abc")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if err := NewRenderer(nil).Draw(img, plan); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	// the last character sits in the lower half of the stack
	lower := img.SubImage(image.Rect(0, 150, 60, 300)).(*image.NRGBA)
	if countDiffering(lower, white) == 0 {
		t.Error("Expected stacked characters to reach the lower half")
	}
}

func TestOutlineOffsets(t *testing.T) {
	offs := outlineOffsets()
	if len(offs) != 8 {
		t.Fatalf("Expected 8 outline offsets, got %d", len(offs))
	}
	for _, o := range offs {
		if o == (image.Point{}) {
			t.Error("Outline offsets must not include the origin")
		}
	}
}

func BenchmarkPlan(b *testing.B) {
	p := NewPlanner(nil, nil)
	img := fill(400, 120, white)
	cand := candidate(img.Bounds(), 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Plan(img, cand, "benchmark caption")
	}
}
