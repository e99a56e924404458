package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wallet-insights/internal/config"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
)

const llmProvider = "llm"

// ErrEmptyCompletion is returned when the model answers without any text
var ErrEmptyCompletion = errors.New("empty completion from language model")

// LLMClient generates narrative insights through an OpenAI-compatible
// chat completions endpoint.
type LLMClient struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	http        *upstream
}

// NewLLMClient creates a client from configuration
func NewLLMClient(cfg config.LLMConfig) *LLMClient {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	c := &LLMClient{
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		http:        newUpstream(llmProvider, &http.Client{}, headers),
	}
	// Completions are slow and billed; one retry is enough
	c.http.retryCfg.MaxAttempts = 2
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
	Temperature         float64       `json:"temperature"`
	TopP                float64       `json:"top_p"`
	Stream              bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateInsights asks the model to describe snapshot and returns its raw
// text. Failures are returned as INSIGHTS_UNAVAILABLE errors.
func (c *LLMClient) GenerateInsights(ctx context.Context, snapshot *models.WalletSnapshot, includeRoast bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := chatRequest{
		Model:               c.model,
		Messages:            []chatMessage{{Role: "user", Content: BuildPrompt(snapshot, includeRoast)}},
		MaxCompletionTokens: c.maxTokens,
		Temperature:         c.temperature,
		TopP:                1,
	}

	start := time.Now()
	var resp chatResponse
	if err := c.http.doJSON(ctx, http.MethodPost, c.endpoint, req, &resp); err != nil {
		return "", apperrors.NewInsightsUnavailableError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperrors.NewInsightsUnavailableError(ErrEmptyCompletion)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"model":        c.model,
		"includeRoast": includeRoast,
		"duration":     time.Since(start).String(),
	}).Debug("Generated wallet insights")

	return resp.Choices[0].Message.Content, nil
}

// SetPacer makes every language model request wait for shared budget first
func (c *LLMClient) SetPacer(p Pacer) {
	c.http.pacer = p
}

// BreakerState reports the circuit breaker state for health checks
func (c *LLMClient) BreakerState() string {
	return string(c.http.breaker.State())
}
