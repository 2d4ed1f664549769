package emotion

import (
	"context"
	"image"
	"log"
)

// Classifier is an emotion classifier collaborator. An error or an empty
// sample both mean "no signal from this source".
type Classifier interface {
	Name() string
	Classify(ctx context.Context, face image.Image) (Sample, error)
}

// Result describes one detect-and-fuse run.
type Result struct {
	Sample    Sample `json:"sample"`
	Primary   Sample `json:"primary,omitempty"`
	Secondary Sample `json:"secondary,omitempty"`
	Attempts  int    `json:"attempts"`
	FromCache bool   `json:"from_cache"`
}

// Detector runs both classifiers, fuses their output and falls back to the
// last valid distribution when every attempt fails.
type Detector struct {
	primary   Classifier
	secondary Classifier
	fuser     *Fuser
	retry     RetryPolicy
	cache     *LastValid
}

// NewDetector creates a Detector with default fusion, retry and a private cache.
// Either classifier may be nil.
func NewDetector(primary, secondary Classifier) *Detector {
	return NewDetectorWithConfig(primary, secondary, NewFuser(), DefaultRetryPolicy(), NewLastValid())
}

// NewDetectorWithConfig creates a Detector with explicit collaborators. A nil
// cache gets a fresh one.
func NewDetectorWithConfig(primary, secondary Classifier, fuser *Fuser, retry RetryPolicy, cache *LastValid) *Detector {
	if fuser == nil {
		fuser = NewFuser()
	}
	if cache == nil {
		cache = NewLastValid()
	}
	return &Detector{
		primary:   primary,
		secondary: secondary,
		fuser:     fuser,
		retry:     retry,
		cache:     cache,
	}
}

// Cache exposes the last-valid store shared by this detector.
func (d *Detector) Cache() *LastValid {
	return d.cache
}

// Detect classifies face and returns a fused distribution. It never fails:
// exhausted retries serve the cached distribution instead.
func (d *Detector) Detect(ctx context.Context, face image.Image) Result {
	var res Result
	err := d.retry.Do(ctx, func() error {
		res.Attempts++
		res.Primary = d.classify(ctx, d.primary, face)
		res.Secondary = d.classify(ctx, d.secondary, face)

		fused, err := d.fuser.Fuse(res.Primary, res.Secondary)
		if err != nil {
			log.Printf("emotion: attempt %d failed: %v", res.Attempts, err)
			return err
		}
		res.Sample = fused
		return nil
	})
	if err != nil {
		cached, at := d.cache.Get()
		if at.IsZero() {
			log.Printf("emotion: retries exhausted after %d attempts, serving neutral", res.Attempts)
		} else {
			log.Printf("emotion: retries exhausted after %d attempts, serving distribution cached at %s", res.Attempts, at.Format("15:04:05"))
		}
		res.Sample = cached
		res.FromCache = true
		return res
	}

	d.cache.Set(res.Sample)
	return res
}

func (d *Detector) classify(ctx context.Context, c Classifier, face image.Image) Sample {
	if c == nil {
		return nil
	}
	s, err := c.Classify(ctx, face)
	if err != nil {
		log.Printf("emotion: classifier %s unavailable: %v", c.Name(), err)
		return nil
	}
	return s.Standardized().Normalized()
}
