package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	facememe "github.com/menta2k/face-meme"
	"github.com/menta2k/face-meme/internal/config"
	"github.com/menta2k/face-meme/pkg/caption"
	"github.com/menta2k/face-meme/pkg/client"
	"github.com/menta2k/face-meme/pkg/compose"
	"github.com/menta2k/face-meme/pkg/detection"
	"github.com/menta2k/face-meme/pkg/emotion"
	"github.com/menta2k/face-meme/pkg/facedetect"
	"github.com/menta2k/face-meme/pkg/llamacpp"
	"github.com/menta2k/face-meme/pkg/ollama"
)

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// buildComposer wires the configured collaborators into a MemeComposer.
func buildComposer(ctx context.Context, cfg *config.Config) (*facememe.MemeComposer, error) {
	faces, err := facedetect.NewClient(facedetect.Config{
		URL:      cfg.FaceDetector.URL,
		Endpoint: cfg.FaceDetector.Endpoint,
		Timeout:  millis(cfg.FaceDetector.TimeoutMS),
	})
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}

	primary, err := buildClassifier("primary", cfg.Classifiers.Primary)
	if err != nil {
		return nil, err
	}
	secondary, err := buildClassifier("secondary", cfg.Classifiers.Secondary)
	if err != nil {
		return nil, err
	}

	captioner, err := buildCaptioner(ctx, cfg.Caption)
	if err != nil {
		return nil, err
	}

	phrases := caption.DefaultPhrases()
	if cfg.Caption.PhrasesPath != "" {
		if phrases, err = caption.LoadPhrases(cfg.Caption.PhrasesPath); err != nil {
			return nil, err
		}
	}

	return facememe.NewWithConfig(engineConfig(cfg), facememe.Collaborators{
		Faces:     faces,
		Primary:   primary,
		Secondary: secondary,
		Captioner: captioner,
		Phrases:   phrases,
		Cache:     emotion.NewLastValid(),
	})
}

// engineConfig maps the file configuration onto the engine settings.
func engineConfig(cfg *config.Config) facememe.Config {
	ec := facememe.DefaultConfig()

	ec.Analyzer.DefaultQuality = cfg.Output.Quality

	ec.Fusion.PrimaryWeight = cfg.Fusion.PrimaryWeight
	ec.Fusion.SecondaryWeight = cfg.Fusion.SecondaryWeight
	ec.Fusion.TopN = cfg.Fusion.TopN
	ec.Fusion.DropThreshold = cfg.Fusion.DropThreshold
	ec.Retry.MaxAttempts = cfg.Fusion.MaxRetries
	ec.Retry.Delay = millis(cfg.Fusion.RetryDelayMS)

	ec.Region.SafeZoneScale = cfg.Region.SafeZoneScale
	ec.Region.ShortCaptionRunes = cfg.Region.ShortCaptionRunes

	t := cfg.Typography
	ec.FontPath = t.FontPath
	ec.Typography.FitFraction = t.FitFraction
	ec.Typography.StartFontSize = t.StartFontSize
	ec.Typography.MaxFontSize = t.MaxFontSize
	ec.Typography.VerticalSpacing = t.VerticalSpacing
	ec.Typography.ShadowThreshold = t.ShadowThreshold
	ec.Typography.OutlineThreshold = t.OutlineThreshold
	ec.Color.CornerFraction = t.CornerFraction
	ec.Color.CornerMaxSide = t.CornerMaxSide
	ec.Color.Clusters = t.DominantClusters

	return ec
}

// buildClassifier returns nil for a classifier without a backend; fusion then
// runs on the other one alone.
func buildClassifier(name string, cc config.ClassifierConfig) (emotion.Classifier, error) {
	var vc client.VisionClient
	var err error

	switch cc.Backend {
	case "":
		log.Printf("%s classifier disabled", name)
		return nil, nil
	case "ollama":
		vc, err = ollama.NewClient(cc.URL, millis(cc.TimeoutMS))
	case "llamacpp":
		vc, err = llamacpp.NewClient(cc.URL, millis(cc.TimeoutMS))
	default:
		return nil, fmt.Errorf("unknown backend %q for %s classifier", cc.Backend, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s classifier: %w", name, err)
	}

	opts := detection.DefaultOptions(fmt.Sprintf("%s/%s", cc.Backend, cc.Model), cc.Model)
	opts.Enhance = cc.Enhance
	if cc.SendSize > 0 {
		opts.SendSize = cc.SendSize
	}
	if cc.Quality > 0 {
		opts.Quality = cc.Quality
	}
	return detection.NewEmotionClassifier(vc, opts), nil
}

// buildCaptioner returns nil when caption generation is off or has no key;
// every caption then comes from the phrase table.
func buildCaptioner(ctx context.Context, cc config.CaptionConfig) (compose.Captioner, error) {
	var p caption.Provider
	var err error

	switch cc.Provider {
	case "none":
		log.Printf("caption generation disabled, using phrases")
		return nil, nil
	case "gemini":
		gc := caption.GeminiConfig{APIKey: cc.APIKey, Timeout: millis(cc.TimeoutMS)}
		// the defaults name the DeepSeek endpoint
		if cc.Model != caption.DefaultModel {
			gc.Model = cc.Model
		}
		if cc.BaseURL != caption.DefaultBaseURL {
			gc.BaseURL = cc.BaseURL
		}
		p, err = caption.NewGeminiProvider(ctx, gc)
	default:
		oc := caption.DefaultOpenAIConfig(cc.APIKey)
		if cc.BaseURL != "" {
			oc.BaseURL = cc.BaseURL
		}
		if cc.Model != "" {
			oc.Model = cc.Model
		}
		if cc.TimeoutMS > 0 {
			oc.Timeout = millis(cc.TimeoutMS)
		}
		p, err = caption.NewOpenAIProvider(oc)
	}

	if errors.Is(err, caption.ErrDisabled) {
		log.Printf("no caption API key configured, using phrases")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("caption provider: %w", err)
	}
	return caption.NewGenerator(p), nil
}
