package vision

import (
	"fmt"
	"image"
	"log"
	"math"
	"unicode/utf8"

	"github.com/disintegration/imaging"

	"github.com/menta2k/face-meme/pkg/types"
)

// RegionName identifies a text placement candidate.
type RegionName int

const (
	RegionTop RegionName = iota
	RegionBottom
	RegionLeft
	RegionRight
	RegionLeftTop
	RegionLeftBottom
	RegionRightTop
	RegionRightBottom
	RegionDefaultBottom
)

func (n RegionName) String() string {
	switch n {
	case RegionTop:
		return "top"
	case RegionBottom:
		return "bottom"
	case RegionLeft:
		return "left"
	case RegionRight:
		return "right"
	case RegionLeftTop:
		return "left_top"
	case RegionLeftBottom:
		return "left_bottom"
	case RegionRightTop:
		return "right_top"
	case RegionRightBottom:
		return "right_bottom"
	case RegionDefaultBottom:
		return "default_bottom"
	default:
		return fmt.Sprintf("region(%d)", int(n))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n RegionName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

type growth int

const (
	growUp growth = iota
	growDown
	growLeft
	growRight
	growNone
)

// growth is the direction in which a candidate is pushed away from the face.
func (n RegionName) growth() growth {
	switch n {
	case RegionTop:
		return growUp
	case RegionBottom:
		return growDown
	case RegionLeft, RegionLeftTop, RegionLeftBottom:
		return growLeft
	case RegionRight, RegionRightTop, RegionRightBottom:
		return growRight
	default:
		return growNone
	}
}

// Candidate is a scored text placement region.
type Candidate struct {
	Name       RegionName      `json:"name"`
	Rect       image.Rectangle `json:"rect"`
	Center     image.Point     `json:"center"`
	Complexity float64         `json:"complexity"`
	Distance   float64         `json:"distance"` // to the face center; reported only
	Score      float64         `json:"score"`
	Window     image.Rectangle `json:"window"` // final crop, the safe zone shifted with the candidate
	Image      image.Image     `json:"-"`
}

// RegionConfig holds configuration for region selection
type RegionConfig struct {
	SafeZoneScale     float64 // safe zone side as a multiple of the larger face side
	ShortCaptionRunes int     // captions up to this length use corner candidates
}

// DefaultRegionConfig returns the default region selection parameters.
func DefaultRegionConfig() RegionConfig {
	return RegionConfig{
		SafeZoneScale:     2.0,
		ShortCaptionRunes: 2,
	}
}

// Selector picks the least busy region around a face for the caption.
type Selector struct {
	config RegionConfig
}

// NewSelector creates a Selector with default configuration
func NewSelector() *Selector {
	return &Selector{config: DefaultRegionConfig()}
}

// NewSelectorWithConfig creates a Selector with custom configuration
func NewSelectorWithConfig(config RegionConfig) *Selector {
	if config.SafeZoneScale <= 0 {
		config.SafeZoneScale = DefaultRegionConfig().SafeZoneScale
	}
	return &Selector{config: config}
}

// Config returns the selector configuration.
func (s *Selector) Config() RegionConfig {
	return s.config
}

// IsShort reports whether caption is short enough for corner placement.
func (s *Selector) IsShort(caption string) bool {
	return utf8.RuneCountInString(caption) <= s.config.ShortCaptionRunes
}

// SafeZone returns the square of side min(shorter image side, scale * larger
// face side) centered on face, clipped to bounds and grown to cover the
// visible part of the face.
func SafeZone(face, bounds image.Rectangle, scale float64) image.Rectangle {
	space := max(face.Dx(), face.Dy())
	side := min(min(bounds.Dx(), bounds.Dy()), int(float64(space)*scale))

	cx := face.Min.X + face.Dx()/2
	cy := face.Min.Y + face.Dy()/2
	x0 := max(bounds.Min.X, cx-side/2)
	y0 := max(bounds.Min.Y, cy-side/2)
	zone := image.Rectangle{
		Min: image.Pt(x0, y0),
		Max: image.Pt(min(bounds.Max.X, x0+side), min(bounds.Max.Y, y0+side)),
	}
	return zone.Union(face.Intersect(bounds)).Intersect(bounds)
}

// SafeZone computes the safe zone of face inside bounds using the configured scale.
func (s *Selector) SafeZone(face, bounds image.Rectangle) image.Rectangle {
	return SafeZone(face, bounds, s.config.SafeZoneScale)
}

// Score turns a complexity into a selection score; calmer regions score higher.
func Score(complexity float64) float64 {
	return 1 / (complexity + 1)
}

// Best returns the highest scoring candidate. Ties keep the earliest one.
func Best(candidates []Candidate) (Candidate, bool) {
	best := -1
	for i, c := range candidates {
		if best < 0 || c.Score > candidates[best].Score {
			best = i
		}
	}
	if best < 0 {
		return Candidate{}, false
	}
	return candidates[best], true
}

// Select scores every candidate region around face and returns the best one,
// or the default bottom region when no candidate has any area.
func (s *Selector) Select(img image.Image, face, safe image.Rectangle, landmarks types.Landmarks, short bool) Candidate {
	candidates := s.Candidates(img, face, safe, landmarks, short)
	if best, ok := Best(candidates); ok {
		return best
	}
	log.Printf("region: no usable candidate, using default bottom region")
	return DefaultRegion(img, safe)
}

// Candidates builds and scores the candidate regions. Candidates without
// area are left out.
func (s *Selector) Candidates(img image.Image, face, safe image.Rectangle, landmarks types.Landmarks, short bool) []Candidate {
	bounds := img.Bounds()
	face = face.Intersect(bounds)

	var anchors []anchor
	switch {
	case short && landmarks.Complete():
		anchors = cornerAnchors(face, safe, landmarks)
	case short:
		log.Printf("region: short caption without landmarks, using edge regions")
		anchors = edgeAnchors(face, safe)
	default:
		anchors = edgeAnchors(face, safe)
	}

	center := types.Face{Rect: face}.Center()
	out := make([]Candidate, 0, len(anchors))
	for _, a := range anchors {
		rect, window := expand(a, face, safe, bounds)
		if rect.Empty() {
			continue
		}
		sub := imaging.Crop(img, rect)
		complexity, err := Complexity(sub)
		if err != nil {
			continue
		}
		c := Candidate{
			Name:       a.name,
			Rect:       rect,
			Center:     image.Pt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2),
			Complexity: complexity,
			Score:      Score(complexity),
			Window:     window,
			Image:      sub,
		}
		c.Distance = math.Hypot(float64(center.X-c.Center.X), float64(center.Y-c.Center.Y))
		out = append(out, c)
	}
	return out
}

// DefaultRegion is the bottom 30% of the safe zone, spanning its full width.
func DefaultRegion(img image.Image, safe image.Rectangle) Candidate {
	safe = safe.Intersect(img.Bounds())
	h := safe.Dy()
	rect := image.Rect(safe.Min.X, safe.Min.Y+int(float64(h)*0.7), safe.Max.X, safe.Max.Y)
	c := Candidate{
		Name:   RegionDefaultBottom,
		Rect:   rect,
		Center: image.Pt((safe.Min.X+safe.Max.X)/2, safe.Min.Y+int(float64(h)*0.85)),
		Window: safe,
	}
	if !rect.Empty() {
		c.Image = imaging.Crop(img, rect)
		c.Complexity, _ = Complexity(c.Image)
	}
	c.Score = Score(c.Complexity)
	return c
}

type anchor struct {
	name RegionName
	rect image.Rectangle
}

// box builds a rectangle without canonicalizing it, so inverted corners
// stay empty.
func box(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rectangle{Min: image.Pt(x0, y0), Max: image.Pt(x1, y1)}
}

func edgeAnchors(face, safe image.Rectangle) []anchor {
	return []anchor{
		{RegionTop, box(safe.Min.X, safe.Min.Y, safe.Max.X, face.Min.Y)},
		{RegionBottom, box(safe.Min.X, face.Max.Y, safe.Max.X, safe.Max.Y)},
		{RegionLeft, box(safe.Min.X, safe.Min.Y, face.Min.X, safe.Max.Y)},
		{RegionRight, box(face.Max.X, safe.Min.Y, safe.Max.X, safe.Max.Y)},
	}
}

// cornerAnchors keeps every corner on its own side of the face: left corners
// end at the landmark nearest the left edge and grow leftward.
func cornerAnchors(face, safe image.Rectangle, lm types.Landmarks) []anchor {
	rightEye := lm[types.RightEyeOuter]
	leftEye := lm[types.LeftEyeOuter]
	mouthL := lm[types.MouthLeftCorner]
	mouthR := lm[types.MouthRightCorner]
	return []anchor{
		{RegionTop, box(safe.Min.X, safe.Min.Y, safe.Max.X, face.Min.Y)},
		{RegionBottom, box(safe.Min.X, face.Max.Y, safe.Max.X, safe.Max.Y)},
		{RegionLeftBottom, box(safe.Min.X, mouthL.Y, mouthL.X, safe.Max.Y)},
		{RegionLeftTop, box(safe.Min.X, safe.Min.Y, rightEye.X, rightEye.Y)},
		{RegionRightBottom, box(mouthR.X, mouthR.Y, safe.Max.X, safe.Max.Y)},
		{RegionRightTop, box(leftEye.X, safe.Min.Y, safe.Max.X, leftEye.Y)},
	}
}

// expand pushes the anchor away from the face by half the margin on the
// opposite side of the face and shifts the crop window along with it.
func expand(a anchor, face, safe, bounds image.Rectangle) (image.Rectangle, image.Rectangle) {
	r := a.rect
	w := safe
	switch a.name.growth() {
	case growUp:
		r.Min.Y = max(bounds.Min.Y, r.Min.Y-max(0, safe.Max.Y-face.Max.Y)/2)
		w.Min.Y = r.Min.Y
		w.Max.Y = w.Min.Y + safe.Dy()
	case growDown:
		r.Max.Y = min(bounds.Max.Y, r.Max.Y+max(0, face.Min.Y-safe.Min.Y)/2)
		w.Max.Y = r.Max.Y
		w.Min.Y = w.Max.Y - safe.Dy()
	case growLeft:
		r.Min.X = max(bounds.Min.X, r.Min.X-max(0, safe.Max.X-face.Max.X)/2)
		w.Min.X = r.Min.X
		w.Max.X = w.Min.X + safe.Dx()
	case growRight:
		r.Max.X = min(bounds.Max.X, r.Max.X+max(0, face.Min.X-safe.Min.X)/2)
		w.Max.X = r.Max.X
		w.Min.X = w.Max.X - safe.Dx()
	}
	if r.Empty() {
		return image.Rectangle{}, image.Rectangle{}
	}
	return r.Intersect(bounds), w.Intersect(bounds)
}
