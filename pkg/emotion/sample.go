package emotion

import (
	"sort"
	"strings"
)

// Canonical emotion labels produced by the classifiers after standardization.
const (
	Angry    = "angry"
	Disgust  = "disgust"
	Fear     = "fear"
	Happy    = "happy"
	Sad      = "sad"
	Surprise = "surprise"
	Neutral  = "neutral"
)

// Labels lists the canonical label set in a stable order.
var Labels = []string{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

var synonyms = map[string]string{
	"angry":       Angry,
	"anger":       Angry,
	"angriness":   Angry,
	"disgust":     Disgust,
	"disgusted":   Disgust,
	"fear":        Fear,
	"fearful":     Fear,
	"fearfulness": Fear,
	"happy":       Happy,
	"happiness":   Happy,
	"sad":         Sad,
	"sadness":     Sad,
	"surprise":    Surprise,
	"surprised":   Surprise,
	"neutral":     Neutral,
}

// Standardize maps a raw classifier label onto the canonical vocabulary.
// Unknown labels pass through lower-cased.
func Standardize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if std, ok := synonyms[l]; ok {
		return std
	}
	return l
}

// Group is the coarse category used for conflict resolution.
type Group int

const (
	GroupNeutral Group = iota
	GroupPositive
	GroupNegative
)

func (g Group) String() string {
	switch g {
	case GroupPositive:
		return "positive"
	case GroupNegative:
		return "negative"
	default:
		return "neutral"
	}
}

var groups = map[string]Group{
	Happy:    GroupPositive,
	Surprise: GroupPositive,
	Angry:    GroupNegative,
	Disgust:  GroupNegative,
	Fear:     GroupNegative,
	Sad:      GroupNegative,
	Neutral:  GroupNeutral,
}

// GroupOf returns the group of a standardized label. Labels outside the
// partition are treated as neutral.
func GroupOf(label string) Group {
	if g, ok := groups[label]; ok {
		return g
	}
	return GroupNeutral
}

// Score is one (label, weight) entry of a Sample.
type Score struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// Sample is an ordered emotion distribution, strongest label first.
type Sample []Score

// NeutralSample is the distribution served when nothing else is known.
func NeutralSample() Sample {
	return Sample{{Label: Neutral, Weight: 1.0}}
}

// Empty reports whether the sample carries no signal.
func (s Sample) Empty() bool {
	return len(s) == 0
}

// Top returns the strongest label, or neutral for an empty sample.
func (s Sample) Top() string {
	if len(s) == 0 {
		return Neutral
	}
	return s[0].Label
}

// Total returns the sum of all weights.
func (s Sample) Total() float64 {
	var total float64
	for _, sc := range s {
		total += sc.Weight
	}
	return total
}

// Weight returns the weight of label, 0 when absent.
func (s Sample) Weight(label string) float64 {
	for _, sc := range s {
		if sc.Label == label {
			return sc.Weight
		}
	}
	return 0
}

// Clone returns an independent copy.
func (s Sample) Clone() Sample {
	if s == nil {
		return nil
	}
	out := make(Sample, len(s))
	copy(out, s)
	return out
}

// Normalized returns a copy whose weights sum to 1. A sample with a
// non-positive total is returned unchanged.
func (s Sample) Normalized() Sample {
	out := s.Clone()
	total := out.Total()
	if total <= 0 {
		return out
	}
	for i := range out {
		out[i].Weight /= total
	}
	return out
}

// Standardized merges entries after label standardization, drops
// non-positive weights and sorts by weight descending. Equal weights keep
// first-seen order.
func (s Sample) Standardized() Sample {
	index := make(map[string]int, len(s))
	out := make(Sample, 0, len(s))
	for _, sc := range s {
		if sc.Weight <= 0 {
			continue
		}
		label := Standardize(sc.Label)
		if label == "" {
			continue
		}
		if i, ok := index[label]; ok {
			out[i].Weight += sc.Weight
			continue
		}
		index[label] = len(out)
		out = append(out, Score{Label: label, Weight: sc.Weight})
	}
	sortByWeight(out)
	return out
}

// FromMap builds a sorted, standardized and normalized sample from a raw
// label -> confidence map.
func FromMap(m map[string]float64) Sample {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := make(Sample, 0, len(m))
	for _, k := range keys {
		raw = append(raw, Score{Label: k, Weight: m[k]})
	}
	return raw.Standardized().Normalized()
}

// Labels returns the labels in order.
func (s Sample) Labels() []string {
	out := make([]string, len(s))
	for i, sc := range s {
		out[i] = sc.Label
	}
	return out
}

func sortByWeight(s Sample) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Weight > s[j].Weight
	})
}
