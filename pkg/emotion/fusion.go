package emotion

import (
	"errors"
	"fmt"
)

// ErrEmptyDistribution is returned when thresholding or conflict resolution
// leaves no label standing.
var ErrEmptyDistribution = errors.New("emotion: fused distribution is empty")

// FusionConfig holds the parameters of the fusion engine.
type FusionConfig struct {
	PrimaryWeight   float64
	SecondaryWeight float64
	TopN            int
	DropThreshold   float64
}

// DefaultFusionConfig returns the standard 0.5/0.5 fusion with top-3 output.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		PrimaryWeight:   0.5,
		SecondaryWeight: 0.5,
		TopN:            3,
		DropThreshold:   0.2,
	}
}

// Validate checks that the weights form a convex combination.
func (c FusionConfig) Validate() error {
	if c.PrimaryWeight < 0 || c.SecondaryWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if sum := c.PrimaryWeight + c.SecondaryWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("fusion weights must sum to 1, got %.3f", sum)
	}
	if c.TopN < 1 {
		return fmt.Errorf("fusion top_n must be at least 1")
	}
	if c.DropThreshold < 0 || c.DropThreshold > 1 {
		return fmt.Errorf("fusion drop_threshold must be between 0 and 1")
	}
	return nil
}

// Fuser merges the distributions of two independent classifiers.
type Fuser struct {
	config FusionConfig
}

// NewFuser creates a Fuser with the default configuration.
func NewFuser() *Fuser {
	return &Fuser{config: DefaultFusionConfig()}
}

// NewFuserWithConfig creates a Fuser with a custom configuration.
func NewFuserWithConfig(config FusionConfig) *Fuser {
	return &Fuser{config: config}
}

// Config returns the fusion parameters in use.
func (f *Fuser) Config() FusionConfig {
	return f.config
}

// Fuse combines primary and secondary into a single distribution.
//
// An empty input is treated as "no signal" from that source and the other
// source is passed through conflict resolution alone. Both empty yields
// neutral at 1.0. ErrEmptyDistribution is returned when the drop threshold
// removes every label.
func (f *Fuser) Fuse(primary, secondary Sample) (Sample, error) {
	p := primary.Standardized()
	s := secondary.Standardized()

	switch {
	case p.Empty() && s.Empty():
		return NeutralSample(), nil
	case p.Empty():
		return f.finish(s.Normalized())
	case s.Empty():
		return f.finish(p.Normalized())
	}

	p = p.Normalized()
	s = s.Normalized()

	fused := make(Sample, 0, len(p)+len(s))
	index := make(map[string]int, len(p)+len(s))
	add := func(src Sample, weight float64) {
		for _, sc := range src {
			if i, ok := index[sc.Label]; ok {
				fused[i].Weight += sc.Weight * weight
				continue
			}
			index[sc.Label] = len(fused)
			fused = append(fused, Score{Label: sc.Label, Weight: sc.Weight * weight})
		}
	}
	add(p, f.config.PrimaryWeight)
	add(s, f.config.SecondaryWeight)
	sortByWeight(fused)

	kept := fused[:0]
	for _, sc := range fused {
		if sc.Weight >= f.config.DropThreshold {
			kept = append(kept, sc)
		}
	}

	return f.finish(kept)
}

func (f *Fuser) finish(s Sample) (Sample, error) {
	resolved := ResolveConflict(s)
	if len(resolved) > f.config.TopN {
		resolved = resolved[:f.config.TopN]
	}
	if resolved.Empty() || resolved.Total() <= 0 {
		return nil, ErrEmptyDistribution
	}
	return resolved.Normalized(), nil
}

// HasConflict reports whether the sample spans more than one non-neutral group.
func HasConflict(s Sample) bool {
	var seen Group = GroupNeutral
	for _, sc := range s {
		g := GroupOf(sc.Label)
		if g == GroupNeutral {
			continue
		}
		if seen != GroupNeutral && seen != g {
			return true
		}
		seen = g
	}
	return false
}

// ResolveConflict keeps the labels of the strongest non-neutral group plus all
// neutral labels. Group ties go to the group of the highest-ranked label.
// Order is preserved; weights are not renormalized.
func ResolveConflict(s Sample) Sample {
	if !HasConflict(s) {
		return s.Clone()
	}

	totals := make(map[Group]float64)
	var order []Group
	for _, sc := range s {
		g := GroupOf(sc.Label)
		if g == GroupNeutral {
			continue
		}
		if _, ok := totals[g]; !ok {
			order = append(order, g)
		}
		totals[g] += sc.Weight
	}

	best := order[0]
	for _, g := range order[1:] {
		if totals[g] > totals[best] {
			best = g
		}
	}

	out := make(Sample, 0, len(s))
	for _, sc := range s {
		if g := GroupOf(sc.Label); g == best || g == GroupNeutral {
			out = append(out, sc)
		}
	}
	return out
}
