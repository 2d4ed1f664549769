package emotion

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

type stubClassifier struct {
	name    string
	samples []Sample
	err     error
	calls   int
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(ctx context.Context, face image.Image) (Sample, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.samples) == 0 {
		return nil, nil
	}
	i := s.calls - 1
	if i >= len(s.samples) {
		i = len(s.samples) - 1
	}
	return s.samples[i], nil
}

func noDelay() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 0}
}

func testFace() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

func TestDetectorFusesBothSources(t *testing.T) {
	primary := &stubClassifier{name: "a", samples: []Sample{{{"happy", 0.9}, {"neutral", 0.1}}}}
	secondary := &stubClassifier{name: "b", samples: []Sample{{{"happy", 0.8}, {"sad", 0.2}}}}
	d := NewDetectorWithConfig(primary, secondary, NewFuser(), noDelay(), nil)

	res := d.Detect(context.Background(), testFace())
	if res.FromCache {
		t.Fatal("Expected a fresh result")
	}
	if res.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", res.Attempts)
	}
	if res.Sample.Top() != Happy || !approx(res.Sample.Total(), 1) {
		t.Errorf("Unexpected fused sample %v", res.Sample)
	}

	cached, at := d.Cache().Get()
	if at.IsZero() || cached.Top() != Happy {
		t.Errorf("Expected cache to hold the fused sample, got %v at %v", cached, at)
	}
}

func TestDetectorDegradesToOneSource(t *testing.T) {
	primary := &stubClassifier{name: "a", err: errors.New("model offline")}
	secondary := &stubClassifier{name: "b", samples: []Sample{{{"sadness", 0.7}, {"neutral", 0.3}}}}
	d := NewDetectorWithConfig(primary, secondary, NewFuser(), noDelay(), nil)

	res := d.Detect(context.Background(), testFace())
	if res.FromCache {
		t.Fatal("A single working classifier should still produce a fresh result")
	}
	if res.Sample.Top() != Sad {
		t.Errorf("Expected sad on top, got %v", res.Sample)
	}
}

func TestDetectorNilClassifiers(t *testing.T) {
	d := NewDetector(nil, nil)
	res := d.Detect(context.Background(), testFace())
	if res.Sample.Top() != Neutral || len(res.Sample) != 1 {
		t.Errorf("Expected neutral fallback, got %v", res.Sample)
	}
}

func TestDetectorExhaustedServesCache(t *testing.T) {
	spread := Sample{{"happy", 0.15}, {"sad", 0.15}, {"fear", 0.15}, {"angry", 0.15}, {"surprise", 0.15}, {"disgust", 0.15}, {"neutral", 0.1}}
	primary := &stubClassifier{name: "a", samples: []Sample{spread}}
	secondary := &stubClassifier{name: "b", samples: []Sample{spread}}

	cache := NewLastValid()
	cache.Set(Sample{{"surprise", 1}})
	d := NewDetectorWithConfig(primary, secondary, NewFuser(), noDelay(), cache)

	res := d.Detect(context.Background(), testFace())
	if !res.FromCache {
		t.Fatal("Expected cached result after exhausted retries")
	}
	if res.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", res.Attempts)
	}
	if res.Sample.Top() != Surprise {
		t.Errorf("Expected cached surprise, got %v", res.Sample)
	}
}

func TestDetectorExhaustedWithoutHistory(t *testing.T) {
	spread := Sample{{"happy", 0.15}, {"sad", 0.15}, {"fear", 0.15}, {"angry", 0.15}, {"surprise", 0.15}, {"disgust", 0.15}, {"neutral", 0.1}}
	primary := &stubClassifier{name: "a", samples: []Sample{spread}}
	d := NewDetectorWithConfig(primary, &stubClassifier{name: "b", samples: []Sample{spread}}, NewFuser(), noDelay(), nil)

	res := d.Detect(context.Background(), testFace())
	if !res.FromCache || res.Sample.Top() != Neutral {
		t.Errorf("Expected neutral default, got %v", res.Sample)
	}
}

func TestDetectorRecoversOnRetry(t *testing.T) {
	spread := Sample{{"happy", 0.15}, {"sad", 0.15}, {"fear", 0.15}, {"angry", 0.15}, {"surprise", 0.15}, {"disgust", 0.15}, {"neutral", 0.1}}
	clear := Sample{{"angry", 0.9}, {"neutral", 0.1}}
	primary := &stubClassifier{name: "a", samples: []Sample{spread, clear}}
	secondary := &stubClassifier{name: "b", samples: []Sample{spread, clear}}
	d := NewDetectorWithConfig(primary, secondary, NewFuser(), noDelay(), nil)

	res := d.Detect(context.Background(), testFace())
	if res.FromCache {
		t.Fatal("Expected second attempt to succeed")
	}
	if res.Attempts != 2 || res.Sample.Top() != Angry {
		t.Errorf("Expected angry after 2 attempts, got %v after %d", res.Sample, res.Attempts)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond}
	calls := 0
	start := time.Now()
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("nope")
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected at least two delays, took %v", elapsed)
	}
}

func TestLastValidConcurrentAccess(t *testing.T) {
	c := NewLastValid()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Set(Sample{{"happy", 1}})
		}()
		go func() {
			defer wg.Done()
			s, _ := c.Get()
			if s.Empty() {
				t.Error("cache should never be empty")
			}
		}()
	}
	wg.Wait()

	c.Set(nil)
	if s, _ := c.Get(); s.Top() != Happy {
		t.Errorf("Setting an empty sample should be ignored, got %v", s)
	}
}
