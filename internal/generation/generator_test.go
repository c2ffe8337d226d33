package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"instapoem/internal/media"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays a canned reply and records every request.
type fakeModel struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []ModelRequest
}

func (f *fakeModel) Generate(ctx context.Context, req ModelRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeModel) lastPrompt(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1].Prompt
}

var pngURI = media.EncodeDataURI("image/png", []byte("\x89PNG\r\n\x1a\n"))

func TestGeneratePoem(t *testing.T) {
	model := &fakeModel{reply: `{"poem": "  Amber light\nspills on the quay  "}`}
	g := NewGenerator(model)

	res, err := g.GeneratePoem(context.Background(), PoemRequest{ImageDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, "Amber light\nspills on the quay", res.Poem)

	require.Len(t, model.calls, 1)
	call := model.calls[0]
	assert.Contains(t, call.Prompt, "Consider the colors, objects, and overall mood")
	require.Len(t, call.Media, 1)
	assert.Equal(t, "image/png", call.Media[0].MIMEType)
	assert.Equal(t, []string{"poem"}, call.Schema.Required)
}

func TestGeneratePoem_InvalidImageNeverCallsModel(t *testing.T) {
	for name, uri := range map[string]string{
		"not a data uri": "https://example.com/cat.png",
		"not an image":   media.EncodeDataURI("application/pdf", []byte("%PDF")),
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			model := &fakeModel{reply: `{"poem":"x"}`}
			g := NewGenerator(model)

			res, err := g.GeneratePoem(context.Background(), PoemRequest{ImageDataURI: uri})
			require.Error(t, err)
			assert.Equal(t, PoemResult{}, res)
			assert.ErrorIs(t, err, ErrGeneration)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Empty(t, model.calls)
		})
	}
}

func TestGenerateQuote(t *testing.T) {
	model := &fakeModel{reply: `{"quote": "In your smile, the tide came home."}`}
	g := NewGenerator(model)

	res, err := g.GenerateQuote(context.Background(), QuoteRequest{PoemText: "the tide\nthe smile", Emotion: EmotionLove})
	require.NoError(t, err)
	assert.Equal(t, "In your smile, the tide came home.", res.Quote)

	prompt := model.lastPrompt(t)
	assert.Contains(t, prompt, "reflects the emotion of 'Love'")
	assert.Contains(t, prompt, "- Style: Soft, poetic, heartfelt")
	assert.Contains(t, prompt, "- Length: 1-2 lines")
	assert.Contains(t, prompt, "the tide\nthe smile")
	assert.Contains(t, prompt, "Return ONLY the generated quote text")
}

func TestGenerateQuote_UnknownEmotionUsesDefaultStyle(t *testing.T) {
	model := &fakeModel{reply: `{"quote": "morning returns"}`}
	g := NewGenerator(model)

	res, err := g.GenerateQuote(context.Background(), QuoteRequest{PoemText: "night", Emotion: "Nostalgia"})
	require.NoError(t, err)
	assert.Equal(t, "morning returns", res.Quote)

	hope, _ := ResolveEmotion(EmotionHope)
	prompt := model.lastPrompt(t)
	assert.Contains(t, prompt, "- Emotion: Nostalgia")
	assert.Contains(t, prompt, "- Style: "+hope.Style)
	assert.Contains(t, prompt, hope.Example)
}

func TestGenerateQuote_EmptyPoem(t *testing.T) {
	model := &fakeModel{reply: `{"quote":"x"}`}
	_, err := NewGenerator(model).GenerateQuote(context.Background(), QuoteRequest{PoemText: "  ", Emotion: EmotionHope})
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.ErrorIs(t, err, media.ErrValidation)
	assert.Empty(t, model.calls)
}

func TestTranslateText(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"translatedText\": \"Luz ámbar\"}\n```"}
	g := NewGenerator(model)

	res, err := g.TranslateText(context.Background(), TranslateRequest{Text: "Amber light", TargetLanguage: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, "Luz ámbar", res.TranslatedText)

	prompt := model.lastPrompt(t)
	assert.True(t, strings.HasPrefix(prompt, "Translate the following poem into Spanish:"))
	assert.Contains(t, prompt, "Return only the translated text.")
}

func TestTranslateText_FreeFormLanguage(t *testing.T) {
	model := &fakeModel{reply: `{"translatedText": "Bonjour"}`}
	_, err := NewGenerator(model).TranslateText(context.Background(), TranslateRequest{Text: "Hello", TargetLanguage: "Klingon"})
	assert.NoError(t, err)
}

func TestFailuresAreUniform(t *testing.T) {
	cases := []struct {
		name  string
		model *fakeModel
		kind  Kind
	}{
		{"transport error", &fakeModel{err: errors.New("connection reset")}, KindModel},
		{"not json", &fakeModel{reply: "Here is your poem: roses"}, KindMalformedOutput},
		{"wrong field", &fakeModel{reply: `{"text": "roses"}`}, KindMalformedOutput},
		{"empty field", &fakeModel{reply: `{"poem": "", "quote": " ", "translatedText": ""}`}, KindMalformedOutput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(tc.model)
			ctx := context.Background()

			poem, err := g.GeneratePoem(ctx, PoemRequest{ImageDataURI: pngURI})
			assert.Equal(t, PoemResult{}, poem)
			assertGenerationError(t, err, OpPoem, tc.kind)

			quote, err := g.GenerateQuote(ctx, QuoteRequest{PoemText: "p", Emotion: EmotionFear})
			assert.Equal(t, QuoteResult{}, quote)
			assertGenerationError(t, err, OpQuote, tc.kind)

			tr, err := g.TranslateText(ctx, TranslateRequest{Text: "p", TargetLanguage: "German"})
			assert.Equal(t, TranslateResult{}, tr)
			assertGenerationError(t, err, OpTranslate, tc.kind)
		})
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(&fakeModel{err: context.Canceled})
	_, err := g.TranslateText(ctx, TranslateRequest{Text: "p", TargetLanguage: "German"})
	assertGenerationError(t, err, OpTranslate, KindCanceled)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	model := &fakeModel{reply: `{"quote": "q"}`}
	g := NewGenerator(model, WithRegisterer(reg))

	_, _ = g.GenerateQuote(context.Background(), QuoteRequest{PoemText: "p", Emotion: EmotionHope})
	_, _ = g.GenerateQuote(context.Background(), QuoteRequest{PoemText: "p", Emotion: EmotionHope})
	model.err = errors.New("quota")
	_, _ = g.GenerateQuote(context.Background(), QuoteRequest{PoemText: "p", Emotion: EmotionHope})

	assert.Equal(t, 2.0, testutil.ToFloat64(g.requests.WithLabelValues(OpQuote, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(g.requests.WithLabelValues(OpQuote, string(KindModel))))

	n, err := testutil.GatherAndCount(reg, "instapoem_generation_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResolveEmotion(t *testing.T) {
	for _, e := range Emotions {
		style, ok := ResolveEmotion(e)
		assert.True(t, ok, e)
		assert.NotEmpty(t, style.Style)
		assert.NotEmpty(t, style.Length)
		assert.NotEmpty(t, style.Example)
	}

	style, ok := ResolveEmotion("peace / calm")
	assert.False(t, ok, "tags are case-sensitive")
	hope, _ := ResolveEmotion(EmotionHope)
	assert.Equal(t, hope, style)
}

func assertGenerationError(t *testing.T, err error, op string, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, op, gerr.Op)
	assert.Equal(t, kind, gerr.Kind)
}
