// Package facememe composes meme images from photographs of a human face.
//
// A composition detects the face, fuses the output of two emotion
// classifiers into one distribution, asks a language model for a caption
// (falling back to a fixed phrase table), picks the calmest region around
// the face for the text and renders it with a size, color and style adapted
// to that region. Images without a face get an "error meme" instead.
//
// Basic usage:
//
//	faces, _ := facedetect.NewClient(facedetect.Config{URL: "http://localhost:5001"})
//	mc := facememe.New(facememe.Collaborators{Faces: faces})
//
//	res, err := mc.ComposeFile(ctx, "photo.jpg", "meme_photo.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Caption, res.Emotions.Sample.Top())
//
// The engines live under pkg/: emotion (fusion), vision (region selection,
// complexity and color), typography (planning and rendering) and compose
// (the state machine tying them together).
package facememe

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/menta2k/face-meme/pkg/analyzer"
	"github.com/menta2k/face-meme/pkg/caption"
	"github.com/menta2k/face-meme/pkg/compose"
	"github.com/menta2k/face-meme/pkg/cropper"
	"github.com/menta2k/face-meme/pkg/emotion"
	"github.com/menta2k/face-meme/pkg/processing"
	"github.com/menta2k/face-meme/pkg/typography"
	"github.com/menta2k/face-meme/pkg/vision"
)

// Version of the face meme library
const Version = "1.0.0"

// Config groups the settings of every engine.
type Config struct {
	Analyzer   analyzer.Config
	Fusion     emotion.FusionConfig
	Retry      emotion.RetryPolicy
	Region     vision.RegionConfig
	Color      vision.ColorConfig
	Typography typography.Config
	FontPath   string
	Crop       cropper.CropConfig
	Compose    compose.Options
}

// DefaultConfig returns the default settings of every engine.
func DefaultConfig() Config {
	return Config{
		Analyzer:   analyzer.DefaultConfig(),
		Fusion:     emotion.DefaultFusionConfig(),
		Retry:      emotion.DefaultRetryPolicy(),
		Region:     vision.DefaultRegionConfig(),
		Color:      vision.DefaultColorConfig(),
		Typography: typography.DefaultConfig(),
		Crop:       cropper.DefaultCropConfig(),
		Compose:    compose.DefaultOptions(),
	}
}

// Collaborators are the external services a MemeComposer talks to. Faces is
// required. Missing classifiers degrade fusion, a missing Captioner always
// uses Phrases.
type Collaborators struct {
	Faces     compose.FaceDetector
	Primary   emotion.Classifier
	Secondary emotion.Classifier
	Captioner compose.Captioner
	Phrases   caption.PhraseTable
	// Cache is the last-valid emotion store; share one per process.
	Cache *emotion.LastValid
}

// MemeComposer provides a high-level interface for meme composition
type MemeComposer struct {
	analyzer  *analyzer.ImageAnalyzer
	processor *processing.Processor
	emotions  *emotion.Detector
	composer  *compose.Composer
	font      *typography.Font
}

// New creates a MemeComposer with default configuration
func New(c Collaborators) *MemeComposer {
	return build(DefaultConfig(), c)
}

// NewWithConfig creates a MemeComposer with custom configuration
func NewWithConfig(cfg Config, c Collaborators) (*MemeComposer, error) {
	if err := cfg.Fusion.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fusion config: %w", err)
	}
	if err := cfg.Typography.Validate(); err != nil {
		return nil, fmt.Errorf("invalid typography config: %w", err)
	}
	if cfg.Region.SafeZoneScale <= 0 {
		return nil, fmt.Errorf("invalid region config: safe zone scale must be positive")
	}
	return build(cfg, c), nil
}

func build(cfg Config, c Collaborators) *MemeComposer {
	imgAnalyzer := analyzer.NewWithConfig(cfg.Analyzer)
	font := typography.LoadFont(cfg.FontPath)
	colors := vision.NewColorResolverWithConfig(cfg.Color)
	detector := emotion.NewDetectorWithConfig(c.Primary, c.Secondary, emotion.NewFuserWithConfig(cfg.Fusion), cfg.Retry, c.Cache)

	composer := compose.New(compose.Components{
		Faces:     c.Faces,
		Emotions:  detector,
		Captioner: c.Captioner,
		Phrases:   c.Phrases,
		Selector:  vision.NewSelectorWithConfig(cfg.Region),
		Planner:   typography.NewPlannerWithConfig(cfg.Typography, font, colors),
		Renderer:  typography.NewRenderer(font),
		Cropper:   cropper.NewWithConfig(cfg.Crop),
		Colors:    colors,
		Options:   cfg.Compose,
	})

	return &MemeComposer{
		analyzer:  imgAnalyzer,
		processor: processing.NewProcessorWithAnalyzer(imgAnalyzer),
		emotions:  detector,
		composer:  composer,
		font:      font,
	}
}

// LoadImage loads an image from a file path or an http(s) URL
func (mc *MemeComposer) LoadImage(ctx context.Context, source string) (image.Image, error) {
	return mc.processor.LoadImageSmart(ctx, source)
}

// LoadImageFromReader loads an image from an io.Reader
func (mc *MemeComposer) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	return mc.analyzer.LoadImageFromReader(reader)
}

// SaveImage saves an image to file
func (mc *MemeComposer) SaveImage(img image.Image, path string) error {
	return mc.analyzer.SaveImage(img, path)
}

// Encode writes img to w in the format named by ext.
func (mc *MemeComposer) Encode(w io.Writer, img image.Image, ext string) error {
	return mc.analyzer.Encode(w, img, ext)
}

// Compose turns img into a meme.
func (mc *MemeComposer) Compose(ctx context.Context, img image.Image) (*compose.Result, error) {
	if img == nil {
		return nil, compose.ErrNoImage
	}
	if err := mc.analyzer.ValidateImage(img); err != nil {
		return nil, fmt.Errorf("image validation failed: %w", err)
	}
	return mc.composer.Compose(ctx, img)
}

// ComposeFile loads source, composes it and writes the meme to outputPath.
func (mc *MemeComposer) ComposeFile(ctx context.Context, source, outputPath string) (*compose.Result, error) {
	img, err := mc.LoadImage(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	res, err := mc.Compose(ctx, img)
	if err != nil {
		return nil, err
	}

	if err := mc.SaveImage(res.Image, outputPath); err != nil {
		return nil, fmt.Errorf("failed to save meme %s: %w", filepath.Base(outputPath), err)
	}
	return res, nil
}

// DebugOverlay draws the face, safe zone, chosen region and landmarks of res
// onto a copy of the source image.
func (mc *MemeComposer) DebugOverlay(img image.Image, res *compose.Result) *image.NRGBA {
	return mc.processor.CreateDebugOverlay(img, processing.Overlay{
		Face:      res.Face.Rect,
		SafeZone:  res.SafeZone,
		Region:    res.Region.Rect,
		Landmarks: res.Face.Landmarks,
	})
}

// GetImageInfo returns basic information about an image
func (mc *MemeComposer) GetImageInfo(img image.Image) analyzer.ImageInfo {
	return mc.analyzer.GetImageInfo(img)
}

// EmotionCache exposes the last-valid emotion store.
func (mc *MemeComposer) EmotionCache() *emotion.LastValid {
	return mc.emotions.Cache()
}

// FontSource names the font in use.
func (mc *MemeComposer) FontSource() string {
	return mc.font.Source()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
