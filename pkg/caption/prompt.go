package caption

import (
	"fmt"
	"strings"

	"github.com/menta2k/face-meme/pkg/emotion"
)

// SystemPrompt sets the persona of the caption writer.
const SystemPrompt = `You are a copywriter fluent in internet slang who writes short, lively captions for reaction memes.`

// BuildPrompt describes the fused distribution as label(xx.x%) entries and
// lists the caption rules.
func BuildPrompt(s emotion.Sample, extra string) string {
	desc := make([]string, 0, len(s))
	for _, sc := range s {
		desc = append(desc, fmt.Sprintf("%s(%.1f%%)", sc.Label, sc.Weight*100))
	}

	var b strings.Builder
	b.WriteString("Write one short meme caption that best captures this mix of emotions.\n")
	fmt.Fprintf(&b, "Emotion distribution: %s\n\n", strings.Join(desc, ", "))
	b.WriteString(`Rules:
1. Use vivid, concrete wording.
2. Reflect the balance between the emotions.
3. Use 1 to 5 words.
4. Do not wrap the caption in quotes.
5. Do not just join words for different emotions together.
6. Internet memes and slang are welcome.
7. Emotions with a much smaller share should barely affect the caption.
8. Unless "neutral" clearly dominates, treat the strongest emotion other than "neutral" as the main one; the "neutral" share only tones down its intensity.
Examples:
[happy(90.1%), neutral(9.9%)] -> hahahahaha
[happy(50.1%), neutral(49.9%)] -> polite smile
`)
	if extra != "" {
		fmt.Fprintf(&b, "\nExtra context: %s\n", extra)
	}
	b.WriteString("\nAnswer with the caption only.")
	return b.String()
}
