package typography

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"github.com/menta2k/face-meme/pkg/types"
	"github.com/menta2k/face-meme/pkg/vision"
)

// ErrEmptyCaption is returned when there is no text to lay out.
var ErrEmptyCaption = errors.New("typography: caption is empty")

// Orientation is the text direction.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Style is the text effect used to keep the caption legible.
type Style int

const (
	StylePlain Style = iota
	StyleShadow
	StyleOutline
)

func (s Style) String() string {
	switch s {
	case StyleShadow:
		return "shadow"
	case StyleOutline:
		return "outline"
	default:
		return "plain"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Plan describes how and where a caption is drawn. It has no side effects.
type Plan struct {
	Text        string          `json:"text"`
	FontSize    int             `json:"font_size"`
	Orientation Orientation     `json:"orientation"`
	Anchor      image.Point     `json:"anchor"`  // top-left of the text block
	Spacing     int             `json:"spacing"` // extra gap between stacked vertical characters
	Background  types.RGB       `json:"background"`
	TextColor   types.RGB       `json:"text_color"`
	Style       Style           `json:"style"`
	EffectColor color.NRGBA     `json:"effect_color"` // outline or shadow color
	Region      image.Rectangle `json:"region"`
}

// Config holds configuration for typography planning
type Config struct {
	FitFraction      float64 // share of the region the text may fill
	StartFontSize    int
	MaxFontSize      int
	VerticalSpacing  int
	ShadowThreshold  float64 // complexity above which text gets a shadow
	OutlineThreshold float64 // complexity above which text gets an outline
}

// DefaultConfig returns the default typography parameters.
func DefaultConfig() Config {
	return Config{
		FitFraction:      0.9,
		StartFontSize:    10,
		MaxFontSize:      512,
		VerticalSpacing:  10,
		ShadowThreshold:  60,
		OutlineThreshold: 80,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FitFraction <= 0 || c.FitFraction > 1 {
		return fmt.Errorf("fit fraction must be in (0, 1], got %.2f", c.FitFraction)
	}
	if c.StartFontSize < 1 || c.MaxFontSize < c.StartFontSize {
		return fmt.Errorf("font sizes must satisfy 1 <= start (%d) <= max (%d)", c.StartFontSize, c.MaxFontSize)
	}
	if c.VerticalSpacing < 0 {
		return fmt.Errorf("vertical spacing must be non-negative")
	}
	if c.OutlineThreshold < c.ShadowThreshold {
		return fmt.Errorf("outline threshold %.1f is below shadow threshold %.1f", c.OutlineThreshold, c.ShadowThreshold)
	}
	return nil
}

// Planner computes typography plans for a selected region.
type Planner struct {
	config Config
	font   *Font
	colors *vision.ColorResolver
}

// NewPlanner creates a Planner with default configuration. Nil collaborators
// get the built-in font and the default color resolver.
func NewPlanner(f *Font, colors *vision.ColorResolver) *Planner {
	return NewPlannerWithConfig(DefaultConfig(), f, colors)
}

// NewPlannerWithConfig creates a Planner with custom configuration
func NewPlannerWithConfig(config Config, f *Font, colors *vision.ColorResolver) *Planner {
	if f == nil {
		f = Builtin()
	}
	if colors == nil {
		colors = vision.NewColorResolver()
	}
	return &Planner{config: config, font: f, colors: colors}
}

// Config returns the planner configuration.
func (p *Planner) Config() Config {
	return p.config
}

// Font returns the font used for measuring.
func (p *Planner) Font() *Font {
	return p.font
}

// Plan lays out caption inside region. regionImg is the region's pixels and
// is used to choose the colors.
func (p *Planner) Plan(regionImg image.Image, region vision.Candidate, caption string) (Plan, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return Plan{}, ErrEmptyCaption
	}
	rect := region.Rect
	if rect.Empty() {
		return Plan{}, fmt.Errorf("typography: plan %s: %w", region.Name, vision.ErrEmptyRegion)
	}

	bg, fg := p.colors.Colors(regionImg)
	plan := Plan{
		Text:       caption,
		Background: bg,
		TextColor:  fg,
		Region:     rect,
	}
	if rect.Dy() > rect.Dx() {
		plan.Orientation = Vertical
		plan.Spacing = p.config.VerticalSpacing
	}

	size, err := p.fit(caption, plan.Orientation, rect.Dx(), rect.Dy())
	if err != nil {
		return Plan{}, err
	}
	plan.FontSize = size

	switch plan.Orientation {
	case Vertical:
		widest, err := p.font.MeasureWidest(caption, size)
		if err != nil {
			return Plan{}, err
		}
		height := StackHeight(utf8.RuneCountInString(caption), size, plan.Spacing)
		plan.Anchor = image.Pt(rect.Min.X+(rect.Dx()-widest)/2, rect.Min.Y+(rect.Dy()-height)/2)
	default:
		width, err := p.font.Measure(caption, size)
		if err != nil {
			return Plan{}, err
		}
		plan.Anchor = image.Pt(region.Center.X-width/2, rect.Min.Y+(rect.Dy()-size)/2)
	}

	plan.Style, plan.EffectColor = p.style(region.Complexity, fg)
	return plan, nil
}

// fit grows the font from StartFontSize while the text stays strictly inside
// both bounds and returns the size at which growth stopped.
func (p *Planner) fit(caption string, o Orientation, width, height int) (int, error) {
	maxW := float64(width) * p.config.FitFraction
	maxH := float64(height) * p.config.FitFraction
	runes := utf8.RuneCountInString(caption)

	size := p.config.StartFontSize
	for ; size < p.config.MaxFontSize; size++ {
		var w, h int
		var err error
		if o == Vertical {
			w, err = p.font.MeasureWidest(caption, size)
			h = StackHeight(runes, size, p.config.VerticalSpacing)
		} else {
			w, err = p.font.Measure(caption, size)
			h = size
		}
		if err != nil {
			return 0, fmt.Errorf("typography: measure at %dpx: %w", size, err)
		}
		if float64(w) >= maxW || float64(h) >= maxH {
			break
		}
	}
	return size, nil
}

func (p *Planner) style(complexity float64, text types.RGB) (Style, color.NRGBA) {
	switch {
	case complexity > p.config.OutlineThreshold:
		return StyleOutline, OutlineColor(text)
	case complexity > p.config.ShadowThreshold:
		return StyleShadow, ShadowColor(text)
	default:
		return StylePlain, color.NRGBA{}
	}
}

// StackHeight is the height of n characters stacked at size with spacing
// between them.
func StackHeight(n, size, spacing int) int {
	if n <= 0 {
		return 0
	}
	return n*size + (n-1)*spacing
}

// OutlineColor is white around black text and black around anything else.
func OutlineColor(text types.RGB) color.NRGBA {
	if text == types.Black {
		return types.White.NRGBA(255)
	}
	return types.Black.NRGBA(255)
}

// ShadowColor is translucent black under white text and translucent white
// under anything else.
func ShadowColor(text types.RGB) color.NRGBA {
	if text == types.White {
		return types.Black.NRGBA(128)
	}
	return types.White.NRGBA(128)
}
