package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = `You extract activity records from short chat messages.
Reply with a single JSON object and nothing else:
{"description": "<the activity, without date or duration words>",
 "date_expr": "<the date phrase exactly as written, or empty if absent>",
 "duration_expr": "<the duration phrase exactly as written, or empty if absent>"}
If the message does not describe an activity, reply {"description": "", "date_expr": "", "duration_expr": ""}.`

// OpenAIConfig configures the chat-completions extractor.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIExtractor calls an OpenAI-compatible chat-completions endpoint. It
// makes exactly one attempt per message; callers decide whether to retry.
type OpenAIExtractor struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAIExtractor constructs an extractor, filling config defaults.
func NewOpenAIExtractor(cfg OpenAIConfig) *OpenAIExtractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &OpenAIExtractor{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Extract sends the message to the model and parses the JSON reply.
func (e *OpenAIExtractor) Extract(ctx context.Context, message string) (Candidate, error) {
	req := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: 0,
		MaxTokens:   300,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: marshal request: %v", ErrExtraction, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: build request: %v", ErrExtraction, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: read response: %v", ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Candidate{}, fmt.Errorf("%w: status %s", ErrExtraction, resp.Status)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return Candidate{}, fmt.Errorf("%w: decode response: %v", ErrExtraction, err)
	}
	if len(chatResp.Choices) == 0 {
		return Candidate{}, fmt.Errorf("%w: empty response", ErrExtraction)
	}

	return parseCandidate(chatResp.Choices[0].Message.Content)
}

// parseCandidate decodes the model reply, tolerating markdown code fences.
func parseCandidate(content string) (Candidate, error) {
	content = stripCodeFences(content)

	var cand Candidate
	if err := json.Unmarshal([]byte(content), &cand); err != nil {
		return Candidate{}, fmt.Errorf("%w: off-format reply: %v", ErrExtraction, err)
	}
	cand.Description = strings.TrimSpace(cand.Description)
	cand.DateExpr = strings.TrimSpace(cand.DateExpr)
	cand.DurationExpr = strings.TrimSpace(cand.DurationExpr)

	if cand.Description == "" {
		return Candidate{}, fmt.Errorf("%w: no activity in message", ErrExtraction)
	}
	return cand, nil
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
