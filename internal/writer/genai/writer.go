// Package genaiwriter drafts blog articles with the Gemini generative text API.
package genaiwriter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/JakeFAU/roof-estimate/internal/blog"
)

const (
	providerName           = "genai"
	defaultModel           = "gemini-2.5-flash"
	defaultMaxOutputTokens = 4096
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("genai returned no text")

// Config controls model selection and sampling.
type Config struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base_url"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
	Temperature     float32       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"-"`
}

// Writer implements blog.DraftWriter.
type Writer struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Writer backed by the Gemini API.
func New(ctx context.Context, cfg Config, httpClient *http.Client, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("genai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("genai temperature %v out of range [0, 2]", cfg.Temperature)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientCfg.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Writer{client: client, cfg: cfg, logger: logger.Named("genai_writer")}, nil
}

// Write sends the prompt and returns the generated markdown.
func (w *Writer) Write(ctx context.Context, prompt blog.Prompt) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(w.cfg.Temperature),
		MaxOutputTokens: w.cfg.MaxOutputTokens,
	}
	if prompt.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	resp, err := w.client.Models.GenerateContent(ctx, w.cfg.Model, genai.Text(prompt.User), genCfg)
	if err != nil {
		return "", translateError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := ""
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		w.logger.Warn("empty generation", zap.String("model", w.cfg.Model), zap.String("finish_reason", reason))
		return "", ErrEmptyResponse
	}
	if resp.UsageMetadata != nil {
		w.logger.Debug("generation complete",
			zap.String("model", w.cfg.Model),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	return text, nil
}

func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &blog.ProviderError{Provider: providerName, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &blog.ProviderError{Provider: providerName, StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("genai generate content: %w", err)
}

var _ blog.DraftWriter = (*Writer)(nil)
