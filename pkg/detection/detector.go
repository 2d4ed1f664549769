package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/menta2k/face-meme/pkg/client"
	"github.com/menta2k/face-meme/pkg/emotion"
	"github.com/menta2k/face-meme/pkg/processing"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks for a ranked emotion distribution of the face.
const DefaultPrompt = `You are a facial expression classifier.

The image shows one human face. Rate how strongly the face expresses each emotion.

Return JSON only:
{"angry": 0.0, "disgust": 0.0, "fear": 0.0, "happy": 0.0, "sad": 0.0, "surprise": 0.0, "neutral": 0.0}

HARD RULES
- Every value is a confidence in [0,1]. Values should sum to about 1.
- Use exactly these seven keys, lowercase.
- Judge the expression only. Do not guess identity, age or gender.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrNoEmotions is returned when the model answer holds no usable scores.
var ErrNoEmotions = errors.New("detection: no emotion scores in model response")

// Options configures an EmotionClassifier.
type Options struct {
	Name   string
	Model  string
	Prompt string
	// Enhance sends a grayscale, contrast-boosted face instead of the raw crop.
	Enhance  bool
	Contrast float64
	SendSize int
	Quality  int
}

// DefaultOptions returns options sending a 224px JPEG at quality 90.
func DefaultOptions(name, model string) Options {
	return Options{
		Name:     name,
		Model:    model,
		Prompt:   DefaultPrompt,
		Contrast: 30,
		SendSize: 224,
		Quality:  90,
	}
}

// EmotionClassifier prompts a vision model for the emotion distribution of a
// face crop. It implements emotion.Classifier.
type EmotionClassifier struct {
	client    client.VisionClient
	processor *processing.Processor
	opts      Options
}

// NewEmotionClassifier creates a classifier over a vision client.
func NewEmotionClassifier(c client.VisionClient, opts Options) *EmotionClassifier {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.Name == "" {
		opts.Name = opts.Model
	}
	return &EmotionClassifier{
		client:    c,
		processor: processing.NewProcessor(),
		opts:      opts,
	}
}

// Name identifies the classifier in logs and results.
func (d *EmotionClassifier) Name() string {
	return d.opts.Name
}

// Classify sends the face to the model and parses the answer.
func (d *EmotionClassifier) Classify(ctx context.Context, face image.Image) (emotion.Sample, error) {
	if face == nil || face.Bounds().Empty() {
		return nil, fmt.Errorf("detection: empty face image")
	}

	var img image.Image = face
	if d.opts.Enhance {
		img = d.processor.EnhanceForModel(face, d.opts.Contrast)
	}

	imgB64, err := d.processor.PrepareImageForModel(img, "jpg", d.opts.SendSize, d.opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare face image: %w", err)
	}

	raw, err := d.client.JSONQuery(ctx, d.opts.Model, d.opts.Prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", d.opts.Name, err)
	}

	return ParseScores(raw)
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *EmotionClassifier) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, d.opts.Model, SimpleTestPrompt, imageB64)
}

// ParseScores turns a model answer into a normalized sample. It accepts a
// flat {"label": confidence} object, an {"emotions": {...}} wrapper or a
// list of {"label": ..., "confidence": ...} entries.
func ParseScores(raw string) (emotion.Sample, error) {
	cleaned := sanitizeModelJSON(raw)
	if cleaned == "" {
		return nil, ErrNoEmotions
	}

	var generic any
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	scores := map[string]float64{}
	collectScores(generic, scores)

	sample := emotion.FromMap(scores)
	if sample.Empty() {
		return nil, ErrNoEmotions
	}
	return sample, nil
}

func collectScores(v any, out map[string]float64) {
	switch t := v.(type) {
	case map[string]any:
		if inner, ok := t["emotions"]; ok {
			collectScores(inner, out)
			return
		}
		if label, ok := t["label"].(string); ok {
			addScore(out, label, t["confidence"])
			return
		}
		for k, val := range t {
			addScore(out, k, val)
		}
	case []any:
		for _, item := range t {
			collectScores(item, out)
		}
	}
}

func addScore(out map[string]float64, label string, v any) {
	label = normalizeLabel(label)
	if label == "" {
		return
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		if _, err := fmt.Sscanf(strings.TrimSuffix(n, "%"), "%g", &f); err != nil {
			return
		}
		if strings.HasSuffix(n, "%") {
			f /= 100
		}
	default:
		return
	}
	if math.IsNaN(f) || f <= 0 {
		return
	}
	// percentages slip through now and then
	if f > 1 {
		f /= 100
	}
	out[label] += clamp(f, 0, 1)
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeLabel lowercases and trims a label; standardisation to the seven
// canonical labels happens in emotion.FromMap.
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.Trim(label, `"'.:`)
}
