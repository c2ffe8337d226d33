package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"instapoem/internal/logging"

	"google.golang.org/genai"
)

// GeminiConfig configures a GeminiModel.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// Timeout bounds each call; zero leaves it to the transport.
	Timeout time.Duration
}

// GeminiModel calls the Gemini API through the genai SDK.
type GeminiModel struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiModel creates a Gemini-backed Model.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	logging.Generation("Gemini client ready: model=%s timeout=%v", cfg.Model, cfg.Timeout)
	return &GeminiModel{client: client, cfg: cfg}, nil
}

// Name returns the model name.
func (m *GeminiModel) Name() string {
	return m.cfg.Model
}

// Generate sends the prompt and media as a single user turn with JSON output.
func (m *GeminiModel) Generate(ctx context.Context, req ModelRequest) (string, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	logging.APIDebug("[Gemini] generate: model=%s prompt_len=%d media=%d", m.cfg.Model, len(req.Prompt), len(req.Media))

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, media := range req.Media {
		parts = append(parts, genai.NewPartFromBytes(media.Data, media.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if m.cfg.Temperature > 0 {
		config.Temperature = genai.Ptr(m.cfg.Temperature)
	}
	if m.cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = m.cfg.MaxOutputTokens
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.cfg.Model, contents, config)
	if err != nil {
		logging.APIError("[Gemini] generate failed after %v: %v", time.Since(start), err)
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}
	if fr := resp.Candidates[0].FinishReason; fr == genai.FinishReasonSafety || fr == genai.FinishReasonProhibitedContent {
		return "", fmt.Errorf("response blocked: %s", fr)
	}

	text := strings.TrimSpace(resp.Text())
	logging.API("[Gemini] generate: completed in %v response_len=%d", time.Since(start), len(text))
	return text, nil
}
