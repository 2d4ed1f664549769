package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"

	"github.com/menta2k/face-meme/pkg/caption"
	"github.com/menta2k/face-meme/pkg/cropper"
	"github.com/menta2k/face-meme/pkg/emotion"
	"github.com/menta2k/face-meme/pkg/types"
	"github.com/menta2k/face-meme/pkg/typography"
	"github.com/menta2k/face-meme/pkg/vision"
)

var (
	// ErrNoImage is returned for a nil or empty input image.
	ErrNoImage = errors.New("compose: no image")
	// ErrNoFaceDetector is returned when Compose runs without a face detector.
	ErrNoFaceDetector = errors.New("compose: no face detector configured")
)

// FaceDetector finds faces in an image. Zero faces is not an error.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]types.Face, error)
}

// EmotionDetector classifies and fuses the emotions of a face crop. It never
// fails; exhausted sources degrade to a cached or neutral distribution.
type EmotionDetector interface {
	Detect(ctx context.Context, face image.Image) emotion.Result
}

// Captioner produces caption text for a fused distribution.
type Captioner interface {
	Caption(ctx context.Context, s emotion.Sample) (string, error)
}

// Options tune the orchestrator.
type Options struct {
	// FaceMaxSide bounds the face crop handed to the classifiers.
	FaceMaxSide int
	// ErrorMessage is drawn on the error meme.
	ErrorMessage string
	// ErrorMinFontSize and ErrorFontDivisor size the error message as
	// max(min, side/divisor).
	ErrorMinFontSize int
	ErrorFontDivisor int
	// ErrorTextY is the top of the error message as a share of the side.
	ErrorTextY float64
}

// DefaultOptions returns the default orchestrator options.
func DefaultOptions() Options {
	return Options{
		FaceMaxSide:      512,
		ErrorMessage:     "no human faces",
		ErrorMinFontSize: 20,
		ErrorFontDivisor: 15,
		ErrorTextY:       0.85,
	}
}

// Components wires the orchestrator. Only Faces is required; nil engines get
// their defaults, a nil Captioner always falls back to Phrases.
type Components struct {
	Faces     FaceDetector
	Emotions  EmotionDetector
	Captioner Captioner
	Phrases   caption.PhraseTable
	Selector  *vision.Selector
	Planner   *typography.Planner
	Renderer  *typography.Renderer
	Cropper   *cropper.Cropper
	Colors    *vision.ColorResolver
	Options   Options
}

// Composer runs the composition state machine for one image at a time.
// It holds no per-request state and is safe for concurrent use when its
// collaborators are.
type Composer struct {
	faces     FaceDetector
	emotions  EmotionDetector
	captioner Captioner
	phrases   caption.PhraseTable
	selector  *vision.Selector
	planner   *typography.Planner
	renderer  *typography.Renderer
	cropper   *cropper.Cropper
	colors    *vision.ColorResolver
	opts      Options
}

// New creates a Composer.
func New(c Components) *Composer {
	if c.Emotions == nil {
		c.Emotions = emotion.NewDetector(nil, nil)
	}
	if c.Phrases == nil {
		c.Phrases = caption.DefaultPhrases()
	}
	if c.Selector == nil {
		c.Selector = vision.NewSelector()
	}
	if c.Colors == nil {
		c.Colors = vision.NewColorResolver()
	}
	if c.Planner == nil {
		c.Planner = typography.NewPlanner(nil, c.Colors)
	}
	if c.Renderer == nil {
		c.Renderer = typography.NewRenderer(c.Planner.Font())
	}
	if c.Cropper == nil {
		c.Cropper = cropper.New()
	}
	if c.Options == (Options{}) {
		c.Options = DefaultOptions()
	}
	return &Composer{
		faces:     c.Faces,
		emotions:  c.Emotions,
		captioner: c.Captioner,
		phrases:   c.Phrases,
		selector:  c.Selector,
		planner:   c.Planner,
		renderer:  c.Renderer,
		cropper:   c.Cropper,
		colors:    c.Colors,
		opts:      c.Options,
	}
}

// Result is the outcome of one composition.
type Result struct {
	Image         *image.NRGBA     `json:"-"`
	Trace         []State          `json:"trace"`
	FaceFound     bool             `json:"face_found"`
	Face          types.Face       `json:"face"`
	SafeZone      image.Rectangle  `json:"safe_zone"`
	Emotions      emotion.Result   `json:"emotions"`
	Caption       string           `json:"caption"`
	CaptionSource CaptionSource    `json:"caption_source"`
	Region        vision.Candidate `json:"region"`
	Plan          typography.Plan  `json:"plan"`
}

func (r *Result) enter(s State) {
	if n := len(r.Trace); n > 0 && !CanTransition(r.Trace[n-1], s) {
		// a broken transition is a programming error in this package
		panic(fmt.Sprintf("compose: illegal transition %s -> %s", r.Trace[n-1], s))
	}
	r.Trace = append(r.Trace, s)
	log.Printf("compose: state=%s", s)
}

// State returns the last state reached.
func (r *Result) State() State {
	if len(r.Trace) == 0 {
		return Start
	}
	return r.Trace[len(r.Trace)-1]
}

// Compose turns img into a meme. Missing faces, classifier failures and
// caption failures all produce an image; only a nil image, a face detector
// failure and rendering errors are returned.
func (c *Composer) Compose(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoImage
	}
	if c.faces == nil {
		return nil, ErrNoFaceDetector
	}

	res := &Result{}
	res.enter(Start)

	faces, err := c.faces.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	var face types.Face
	if len(faces) > 0 {
		face = faces[0]
		face.Rect = face.Rect.Intersect(img.Bounds())
	}
	if face.Rect.Empty() {
		if len(faces) > 0 {
			log.Printf("compose: first face lies outside the image")
		}
		return c.composeError(img, res)
	}

	res.FaceFound = true
	res.Face = face
	res.enter(FaceDetected)

	faceImg, err := c.cropper.CropFace(img, face.Rect, c.opts.FaceMaxSide)
	if err != nil {
		return nil, err
	}
	res.Emotions = c.emotions.Detect(ctx, faceImg)
	res.enter(EmotionFused)

	res.Caption, res.CaptionSource = c.caption(ctx, res.Emotions.Sample)
	res.enter(CaptionReady)

	bounds := img.Bounds()
	res.SafeZone = c.selector.SafeZone(face.Rect, bounds)
	res.Region = c.selector.Select(img, face.Rect, res.SafeZone, face.Landmarks, c.selector.IsShort(res.Caption))
	res.enter(RegionSelected)

	res.Plan, err = c.planner.Plan(res.Region.Image, res.Region, res.Caption)
	if err != nil {
		return nil, fmt.Errorf("failed to plan typography: %w", err)
	}
	res.enter(TypographyPlanned)

	canvas := image.NewNRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)
	if err := c.renderer.Draw(canvas, res.Plan); err != nil {
		return nil, fmt.Errorf("failed to render caption: %w", err)
	}
	out, err := c.cropper.CropToWindow(canvas, res.Region.Window)
	if err != nil {
		return nil, err
	}
	res.Image = out.Image
	res.enter(Rendered)

	res.enter(Done)
	return res, nil
}

// caption asks the captioner and falls back to the phrase table keyed by the
// top fused label.
func (c *Composer) caption(ctx context.Context, s emotion.Sample) (string, CaptionSource) {
	if c.captioner != nil {
		text, err := c.captioner.Caption(ctx, s)
		switch {
		case err == nil && text != "":
			return text, CaptionGenerated
		case errors.Is(err, caption.ErrDisabled):
		case err != nil:
			log.Printf("compose: caption generation failed, using phrase table: %v", err)
		default:
			log.Printf("compose: empty caption, using phrase table")
		}
	}
	if text := c.phrases.Pick(s); text != "" {
		return text, CaptionFallback
	}
	// a custom table may cover neither the top label nor neutral
	return caption.DefaultPhrases().Pick(s), CaptionFallback
}

func (c *Composer) composeError(img image.Image, res *Result) (*Result, error) {
	res.enter(NoFace)

	out, plan, err := c.ErrorMeme(img)
	if err != nil {
		return nil, err
	}
	res.Image = out
	res.Plan = plan
	res.Caption = plan.Text
	res.CaptionSource = CaptionFixed
	res.enter(ErrorMeme)

	res.enter(Done)
	return res, nil
}

// ErrorMeme builds the no-face image: a centered square crop, enhanced, with
// the error message outlined near the bottom.
func (c *Composer) ErrorMeme(img image.Image) (*image.NRGBA, typography.Plan, error) {
	sq, err := c.cropper.CropSquare(img)
	if err != nil {
		return nil, typography.Plan{}, fmt.Errorf("failed to crop error meme: %w", err)
	}
	canvas := c.cropper.Enhance(sq.Image)
	side := canvas.Bounds().Dx()

	bg, fg := c.colors.Colors(canvas)
	size := max(c.opts.ErrorMinFontSize, side/max(c.opts.ErrorFontDivisor, 1))
	width, err := c.planner.Font().Measure(c.opts.ErrorMessage, size)
	if err != nil {
		return nil, typography.Plan{}, fmt.Errorf("failed to measure error message: %w", err)
	}

	plan := typography.Plan{
		Text:        c.opts.ErrorMessage,
		FontSize:    size,
		Orientation: typography.Horizontal,
		Anchor:      image.Pt((side-width)/2, int(float64(side)*c.opts.ErrorTextY)),
		Background:  bg,
		TextColor:   fg,
		Style:       typography.StyleOutline,
		EffectColor: typography.OutlineColor(fg),
		Region:      canvas.Bounds(),
	}
	if err := c.renderer.Draw(canvas, plan); err != nil {
		return nil, typography.Plan{}, fmt.Errorf("failed to render error meme: %w", err)
	}
	return canvas, plan, nil
}
