package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"pos-service/pkg/config"
)

// Client calls an OpenAI-compatible chat-completions API to rephrase
// analytics answers into natural language.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a point-of-sale assistant. Rephrase the given sales summary " +
	"as one short, friendly sentence for a business owner. Keep every number unchanged."

// NewClient creates a new LLM client from configuration.
func NewClient(cfg *config.LLMConfig, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Logger:     logger,
	}
}

// Summarize sends the rendered analytics sentence to the completion API
// and returns the model's rephrased answer.
func (c *Client) Summarize(ctx context.Context, sentence string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: sentence},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("LLM request failed", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Logger.Error("LLM returned non-success status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)))
		return "", fmt.Errorf("llm returned status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse llm response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("llm response contains no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
