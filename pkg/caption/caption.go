package caption

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/menta2k/face-meme/pkg/emotion"
)

var (
	// ErrNoCaption is returned when the provider answered with nothing usable.
	ErrNoCaption = errors.New("caption: provider returned no caption")
	// ErrDisabled is returned when no provider is configured.
	ErrDisabled = errors.New("caption: generation disabled")
)

// Provider sends a prompt to a language model and returns its raw answer.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Generator turns a fused emotion distribution into a meme caption.
type Generator struct {
	provider Provider
	context  string
}

// NewGenerator creates a generator. A nil provider yields ErrDisabled on
// every call.
func NewGenerator(p Provider) *Generator {
	return &Generator{provider: p}
}

// WithContext returns a copy whose prompts carry extra context, such as the
// occasion the meme is for.
func (g *Generator) WithContext(extra string) *Generator {
	cp := *g
	cp.context = strings.TrimSpace(extra)
	return &cp
}

// Name reports the provider in use.
func (g *Generator) Name() string {
	if g.provider == nil {
		return "disabled"
	}
	return g.provider.Name()
}

// Caption asks the provider for a caption matching s.
func (g *Generator) Caption(ctx context.Context, s emotion.Sample) (string, error) {
	if g.provider == nil {
		return "", ErrDisabled
	}
	if s.Empty() {
		s = emotion.NeutralSample()
	}

	raw, err := g.provider.Generate(ctx, SystemPrompt, BuildPrompt(s, g.context))
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.provider.Name(), err)
	}

	text := Normalize(raw)
	if text == "" {
		return "", ErrNoCaption
	}
	return text, nil
}

var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'`':  '`',
	'“':  '”',
	'‘':  '’',
	'«':  '»',
	'「':  '」',
	'『':  '』',
}

// Normalize applies NFKC, trims whitespace and strips wrapping quotes.
// Full-width forms such as the ideographic space fold to ASCII first.
func Normalize(text string) string {
	text = strings.TrimSpace(norm.NFKC.String(text))
	for {
		runes := []rune(text)
		if len(runes) < 2 {
			break
		}
		closing, ok := quotePairs[runes[0]]
		if !ok || runes[len(runes)-1] != closing {
			break
		}
		text = strings.TrimSpace(string(runes[1 : len(runes)-1]))
	}
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}
