// Package generation wraps the hosted model behind three typed operations:
// poem from image, quote from poem, and translation. Each is a single
// non-retrying round trip whose failures all surface as *GenerationError.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"instapoem/internal/logging"
	"instapoem/internal/media"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used in errors, logs and metric labels.
const (
	OpPoem      = "generatePoem"
	OpQuote     = "generateQuote"
	OpTranslate = "translateText"
)

type PoemRequest struct {
	ImageDataURI string
}

type PoemResult struct {
	Poem string `json:"poem"`
}

type QuoteRequest struct {
	PoemText string
	Emotion  string
}

type QuoteResult struct {
	Quote string `json:"quote"`
}

type TranslateRequest struct {
	Text           string
	TargetLanguage string
}

type TranslateResult struct {
	TranslatedText string `json:"translatedText"`
}

// Generator implements the three model-backed operations.
type Generator struct {
	model    Model
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*generatorOptions)

type generatorOptions struct {
	registerer prometheus.Registerer
}

// WithRegisterer registers the generator's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) GeneratorOption {
	return func(o *generatorOptions) { o.registerer = reg }
}

// NewGenerator creates a Generator over model.
func NewGenerator(model Model, opts ...GeneratorOption) *Generator {
	var o generatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	// a nil registerer yields unregistered collectors
	factory := promauto.With(o.registerer)

	return &Generator{
		model: model,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instapoem_generation_requests_total",
				Help: "Model-backed generation requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "instapoem_generation_duration_seconds",
				Help:    "Duration of model-backed generation requests in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"op"},
		),
	}
}

// GeneratePoem writes a poem inspired by an inline image.
func (g *Generator) GeneratePoem(ctx context.Context, req PoemRequest) (PoemResult, error) {
	img, err := media.ParseImageDataURI(req.ImageDataURI)
	if err != nil {
		g.requests.WithLabelValues(OpPoem, string(KindInvalidInput)).Inc()
		return PoemResult{}, newError(OpPoem, KindInvalidInput, err)
	}

	var out PoemResult
	err = g.call(ctx, OpPoem, ModelRequest{
		Prompt: poemPrompt,
		Media:  []Media{{MIMEType: img.MIMEType, Data: img.Data}},
		Schema: poemSchema,
	}, &out, &out.Poem)
	if err != nil {
		return PoemResult{}, err
	}
	return out, nil
}

// GenerateQuote condenses a poem into a short quote in the tone of emotion.
// Unknown emotions borrow the DefaultEmotion style.
func (g *Generator) GenerateQuote(ctx context.Context, req QuoteRequest) (QuoteResult, error) {
	if strings.TrimSpace(req.PoemText) == "" {
		g.requests.WithLabelValues(OpQuote, string(KindInvalidInput)).Inc()
		return QuoteResult{}, newError(OpQuote, KindInvalidInput, media.Invalid("poemText", "poem text is required"))
	}

	style, known := ResolveEmotion(req.Emotion)
	if !known {
		logging.GenerationWarn("Unknown emotion %q, using %s style", req.Emotion, DefaultEmotion)
	}

	prompt, err := render(quoteTemplate, quotePromptData{Emotion: req.Emotion, PoemText: req.PoemText, Style: style})
	if err != nil {
		return QuoteResult{}, newError(OpQuote, KindInvalidInput, err)
	}

	var out QuoteResult
	if err := g.call(ctx, OpQuote, ModelRequest{Prompt: prompt, Schema: quoteSchema}, &out, &out.Quote); err != nil {
		return QuoteResult{}, err
	}
	return out, nil
}

// TranslateText translates text into a free-form target language.
func (g *Generator) TranslateText(ctx context.Context, req TranslateRequest) (TranslateResult, error) {
	switch {
	case strings.TrimSpace(req.Text) == "":
		g.requests.WithLabelValues(OpTranslate, string(KindInvalidInput)).Inc()
		return TranslateResult{}, newError(OpTranslate, KindInvalidInput, media.Invalid("text", "text to translate is required"))
	case strings.TrimSpace(req.TargetLanguage) == "":
		g.requests.WithLabelValues(OpTranslate, string(KindInvalidInput)).Inc()
		return TranslateResult{}, newError(OpTranslate, KindInvalidInput, media.Invalid("targetLanguage", "target language is required"))
	}

	prompt, err := render(translateTemplate, translatePromptData{Language: req.TargetLanguage, Text: req.Text})
	if err != nil {
		return TranslateResult{}, newError(OpTranslate, KindInvalidInput, err)
	}

	var out TranslateResult
	if err := g.call(ctx, OpTranslate, ModelRequest{Prompt: prompt, Schema: translateSchema}, &out, &out.TranslatedText); err != nil {
		return TranslateResult{}, err
	}
	return out, nil
}

// call runs one model round trip, decodes the JSON reply into out and
// requires *field to be non-empty afterwards.
func (g *Generator) call(ctx context.Context, op string, req ModelRequest, out any, field *string) error {
	timer := logging.StartTimer(logging.CategoryGeneration, op)
	start := time.Now()
	defer func() {
		g.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		timer.Stop()
	}()

	fail := func(kind Kind, err error) error {
		g.requests.WithLabelValues(op, string(kind)).Inc()
		logging.GenerationWarn("%s failed (%s): %v", op, kind, err)
		return newError(op, kind, err)
	}

	raw, err := g.model.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fail(KindCanceled, err)
		}
		return fail(KindModel, err)
	}

	if err := json.Unmarshal([]byte(stripCodeFence(raw)), out); err != nil {
		return fail(KindMalformedOutput, fmt.Errorf("decode model output: %w", err))
	}
	*field = strings.TrimSpace(*field)
	if *field == "" {
		return fail(KindMalformedOutput, errors.New("model returned an empty result"))
	}

	g.requests.WithLabelValues(op, "ok").Inc()
	logging.GenerationDebug("%s ok: %d chars", op, len(*field))
	return nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
