package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

var _ ports.InsightProvider = (*Client)(nil)

// Client calls {baseURL}/chat/completions with a JSON response format.
type Client struct {
	logger    *slog.Logger
	apiKey    string
	baseURL   string
	model     string
	timeout   time.Duration
	client    *http.Client
	isEnabled bool
}

func NewClient(logger *slog.Logger, apiKey, baseURL, model string, timeout time.Duration) *Client {
	isEnabled := apiKey != "" && baseURL != ""

	if !isEnabled {
		logger.Warn("AI insight provider is disabled due to missing credentials")
	}
	if timeout <= 0 {
		timeout = ports.DefaultAIInsightTimeout
	}

	return &Client{
		logger:    logger,
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		timeout:   timeout,
		client:    &http.Client{},
		isEnabled: isEnabled,
	}
}

func (c *Client) IsEnabled() bool {
	return c.isEnabled
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Insight asks the model for an assessment. Every failure wraps shared.ErrUpstreamDegraded.
func (c *Client) Insight(ctx context.Context, facts *entities.OnChainFacts, amountAED float64) (*entities.AIInsight, error) {
	if !c.isEnabled {
		return nil, fmt.Errorf("ai provider disabled: %w", shared.ErrUpstreamDegraded)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt, err := BuildUserPrompt(facts, amountAED)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamDegraded, err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w: %w", shared.ErrUpstreamDegraded, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w: %w", shared.ErrUpstreamDegraded, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send chat request: %w: %w", shared.ErrUpstreamDegraded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat request returned status %d: %s: %w", resp.StatusCode, snippet, shared.ErrUpstreamDegraded)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w: %w", shared.ErrUpstreamDegraded, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices: %w", shared.ErrUpstreamDegraded)
	}

	insight, err := DecodeInsight(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamDegraded, err)
	}

	c.logger.InfoContext(ctx, "AI insight received",
		"address", facts.Address,
		"risk_level", insight.RiskLevel,
		"risk_score", insight.RiskScore,
		"latency", time.Since(start).String())

	return insight, nil
}
