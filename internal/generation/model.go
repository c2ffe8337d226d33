package generation

import (
	"context"

	"google.golang.org/genai"
)

// Media is an inline binary attachment.
type Media struct {
	MIMEType string
	Data     []byte
}

// ModelRequest is one structured-output call.
type ModelRequest struct {
	Prompt string
	Media  []Media
	// Schema constrains the JSON the model must return.
	Schema *genai.Schema
}

// Model performs a single generation round trip and returns the raw text.
type Model interface {
	Generate(ctx context.Context, req ModelRequest) (string, error)
}

// stringObjectSchema describes {"<field>": "<string>"}.
func stringObjectSchema(field, description string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			field: {Type: genai.TypeString, Description: description},
		},
		Required: []string{field},
	}
}

var (
	poemSchema      = stringObjectSchema("poem", "A poem inspired by the image.")
	quoteSchema     = stringObjectSchema("quote", "The generated short quote.")
	translateSchema = stringObjectSchema("translatedText", "The translated text.")
)
