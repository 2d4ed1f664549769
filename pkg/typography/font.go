package typography

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// BuiltinFont names the font used when no font file is configured or the
// configured one cannot be loaded.
const BuiltinFont = "gobold"

// Font is a parsed TrueType/OpenType font that produces faces at pixel sizes.
// A Font is safe for concurrent use; the faces it returns are not.
type Font struct {
	font   *opentype.Font
	source string
}

// LoadFont parses the font file at path. An empty path, a missing file or
// an unparsable file yield the built-in font instead of an error.
func LoadFont(path string) *Font {
	if path != "" {
		f, err := loadFile(path)
		if err == nil {
			return &Font{font: f, source: path}
		}
		log.Printf("typography: %v, using built-in font", err)
	}
	return Builtin()
}

// Builtin returns the embedded Go Bold font.
func Builtin() *Font {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		// the embedded font is known good
		panic(fmt.Sprintf("typography: parse built-in font: %v", err))
	}
	return &Font{font: f, source: BuiltinFont}
}

func loadFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return f, nil
}

// Source returns the font file path, or BuiltinFont.
func (f *Font) Source() string {
	return f.source
}

// Face returns a new face rendering size pixels per em.
func (f *Font) Face(size int) (font.Face, error) {
	return opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Measure returns the advance width of text at size, in whole pixels.
func (f *Font) Measure(text string, size int) (int, error) {
	face, err := f.Face(size)
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return font.MeasureString(face, text).Ceil(), nil
}

// MeasureWidest returns the largest advance width of any single rune of text.
func (f *Font) MeasureWidest(text string, size int) (int, error) {
	face, err := f.Face(size)
	if err != nil {
		return 0, err
	}
	defer face.Close()

	var widest fixed.Int26_6
	for _, r := range text {
		if w := font.MeasureString(face, string(r)); w > widest {
			widest = w
		}
	}
	return widest.Ceil(), nil
}
