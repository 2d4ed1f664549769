package types

import (
	"image"
	"image/color"
)

// Indices into the 68-point landmark layout used for corner placement.
const (
	LandmarkCount = 68

	RightEyeOuter    = 36
	LeftEyeOuter     = 45
	MouthLeftCorner  = 48
	MouthRightCorner = 54
)

// Landmarks is an ordered sequence of facial landmark points in image pixels.
type Landmarks []image.Point

// Complete reports whether the full 68-point layout is available.
func (l Landmarks) Complete() bool {
	return len(l) >= LandmarkCount
}

// Face is a single detection returned by the face detector collaborator.
type Face struct {
	Rect      image.Rectangle `json:"rect"`
	Landmarks Landmarks       `json:"landmarks,omitempty"`
	Score     float64         `json:"score"`
}

// Center returns the center point of the face rectangle.
func (f Face) Center() image.Point {
	return image.Pt((f.Rect.Min.X+f.Rect.Max.X)/2, (f.Rect.Min.Y+f.Rect.Max.Y)/2)
}

// RGB is an opaque 8-bit color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
	Gray  = RGB{128, 128, 128}
)

// NRGBA converts the color to a color.NRGBA with the given alpha.
func (c RGB) NRGBA(alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

// Inverse returns the channel-wise inverse color.
func (c RGB) Inverse() RGB {
	return RGB{255 - c.R, 255 - c.G, 255 - c.B}
}
