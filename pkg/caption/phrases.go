package caption

import (
	_ "embed"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/face-meme/pkg/emotion"
)

//go:embed phrases.yaml
var defaultPhrases []byte

// PhraseTable maps an emotion label to fallback captions.
type PhraseTable map[string][]string

// DefaultPhrases returns the built-in phrase table.
func DefaultPhrases() PhraseTable {
	t, err := ParsePhrases(defaultPhrases)
	if err != nil {
		panic(fmt.Sprintf("caption: embedded phrase table is invalid: %v", err))
	}
	return t
}

// LoadPhrases reads a YAML phrase table. An empty path returns the built-in
// table.
func LoadPhrases(path string) (PhraseTable, error) {
	if path == "" {
		return DefaultPhrases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrase table: %w", err)
	}
	return ParsePhrases(data)
}

// ParsePhrases decodes a YAML phrase table. Labels are standardized, blank
// phrases dropped and a non-empty neutral list is required.
func ParsePhrases(data []byte) (PhraseTable, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse phrase table: %w", err)
	}

	t := make(PhraseTable, len(raw))
	for label, phrases := range raw {
		label = emotion.Standardize(label)
		for _, p := range phrases {
			if p = strings.TrimSpace(p); p != "" {
				t[label] = append(t[label], p)
			}
		}
	}
	if len(t[emotion.Neutral]) == 0 {
		return nil, fmt.Errorf("phrase table needs at least one %q phrase", emotion.Neutral)
	}
	return t, nil
}

// Pick returns a phrase for the top label of s, or a neutral phrase when the
// label has no entry. The same distribution always picks the same phrase.
func (t PhraseTable) Pick(s emotion.Sample) string {
	phrases := t[s.Top()]
	if len(phrases) == 0 {
		phrases = t[emotion.Neutral]
	}
	if len(phrases) == 0 {
		return ""
	}
	return phrases[fingerprint(s)%uint32(len(phrases))]
}

// fingerprint is the FNV-1a hash of the distribution's labels and weights.
func fingerprint(s emotion.Sample) uint32 {
	h := fnv.New32a()
	for _, sc := range s {
		h.Write([]byte(sc.Label))
		h.Write([]byte{':'})
		h.Write(strconv.AppendFloat(nil, sc.Weight, 'f', 4, 64))
		h.Write([]byte{';'})
	}
	return h.Sum32()
}
