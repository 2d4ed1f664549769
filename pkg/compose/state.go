package compose

import "fmt"

// State is a step of the composition state machine.
type State int

const (
	Start State = iota
	FaceDetected
	NoFace
	ErrorMeme
	EmotionFused
	CaptionReady
	RegionSelected
	TypographyPlanned
	Rendered
	Done
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case FaceDetected:
		return "face_detected"
	case NoFace:
		return "no_face"
	case ErrorMeme:
		return "error_meme"
	case EmotionFused:
		return "emotion_fused"
	case CaptionReady:
		return "caption_ready"
	case RegionSelected:
		return "region_selected"
	case TypographyPlanned:
		return "typography_planned"
	case Rendered:
		return "rendered"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// next lists the legal transitions.
var next = map[State][]State{
	Start:             {FaceDetected, NoFace},
	FaceDetected:      {EmotionFused},
	NoFace:            {ErrorMeme},
	ErrorMeme:         {Done},
	EmotionFused:      {CaptionReady},
	CaptionReady:      {RegionSelected},
	RegionSelected:    {TypographyPlanned},
	TypographyPlanned: {Rendered},
	Rendered:          {Done},
}

// CanTransition reports whether the machine may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CaptionSource tells where the rendered text came from.
type CaptionSource int

const (
	CaptionNone CaptionSource = iota
	CaptionGenerated
	CaptionFallback
	CaptionFixed
)

func (c CaptionSource) String() string {
	switch c {
	case CaptionGenerated:
		return "generated"
	case CaptionFallback:
		return "fallback"
	case CaptionFixed:
		return "fixed"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CaptionSource) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
