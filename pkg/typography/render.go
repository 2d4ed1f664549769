package typography

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// StrokeOffset is the pixel offset of outline strokes and of the drop shadow.
const StrokeOffset = 2

// Renderer draws typography plans.
type Renderer struct {
	font *Font
}

// NewRenderer creates a Renderer drawing with f, or the built-in font when f is nil.
func NewRenderer(f *Font) *Renderer {
	if f == nil {
		f = Builtin()
	}
	return &Renderer{font: f}
}

// Draw renders plan onto dst.
func (r *Renderer) Draw(dst draw.Image, plan Plan) error {
	if plan.Text == "" {
		return ErrEmptyCaption
	}
	face, err := r.font.Face(plan.FontSize)
	if err != nil {
		return fmt.Errorf("typography: face at %dpx: %w", plan.FontSize, err)
	}
	defer face.Close()

	text := plan.TextColor.NRGBA(255)
	switch plan.Style {
	case StyleOutline:
		for _, off := range outlineOffsets() {
			r.drawText(dst, face, plan, plan.Anchor.Add(off), plan.EffectColor)
		}
	case StyleShadow:
		r.drawText(dst, face, plan, plan.Anchor.Add(image.Pt(StrokeOffset, StrokeOffset)), plan.EffectColor)
	}
	r.drawText(dst, face, plan, plan.Anchor, text)
	return nil
}

// outlineOffsets returns the eight neighbours at StrokeOffset around the origin.
func outlineOffsets() []image.Point {
	offsets := make([]image.Point, 0, 8)
	for _, dx := range []int{-StrokeOffset, 0, StrokeOffset} {
		for _, dy := range []int{-StrokeOffset, 0, StrokeOffset} {
			if dx == 0 && dy == 0 {
				continue
			}
			offsets = append(offsets, image.Pt(dx, dy))
		}
	}
	return offsets
}

func (r *Renderer) drawText(dst draw.Image, face font.Face, plan Plan, at image.Point, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	ascent := face.Metrics().Ascent

	if plan.Orientation == Horizontal {
		d.Dot = fixed.Point26_6{X: fixed.I(at.X), Y: fixed.I(at.Y) + ascent}
		d.DrawString(plan.Text)
		return
	}

	y := at.Y
	for _, ch := range plan.Text {
		d.Dot = fixed.Point26_6{X: fixed.I(at.X), Y: fixed.I(y) + ascent}
		d.DrawString(string(ch))
		y += plan.FontSize + plan.Spacing
	}
}
