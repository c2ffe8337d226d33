package generation

import (
	"strings"
	"text/template"
)

const poemPrompt = `Write a poem inspired by the image. Consider the colors, objects, and overall mood of the image when writing the poem.

Image: (attached)`

var quoteTemplate = template.Must(template.New("quote").Parse(`You are an AI that transforms poems into short, impactful quotes.
The user has provided a poem and wants a quote that reflects the emotion of '{{.Emotion}}'.

Poem to transform:
"""
{{.PoemText}}
"""

Based on the poem, generate a new, unique quote that captures its essence while adhering to the following constraints:
- Emotion: {{.Emotion}}
- Style: {{.Style.Style}}
- Length: {{.Style.Length}}

For inspiration on the expected style, consider this example (but do not copy or reuse it): "{{.Style.Example}}"

Important: Return ONLY the generated quote text, and nothing else.
`))

var translateTemplate = template.Must(template.New("translate").Parse(`Translate the following poem into {{.Language}}:

{{.Text}}

Return only the translated text. Ensure the translation captures the poetic essence and style of the original text where possible.`))

type quotePromptData struct {
	Emotion  string
	PoemText string
	Style    EmotionStyle
}

type translatePromptData struct {
	Language string
	Text     string
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
