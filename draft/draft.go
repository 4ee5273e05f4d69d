// Package draft turns a natural language prompt into a task draft through
// an OpenAI-compatible chat completion endpoint. The generator is opaque:
// it may fail or return low-quality content, and output is validated for
// non-empty shape only.
package draft

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

const systemPrompt = "Create a task based on the user's description. The task should be clear and actionable. " +
	"Respond with a JSON object containing a concise \"title\" that summarizes the task and a clear " +
	"\"description\" that explains what needs to be done."

// Client calls the drafting model.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// New creates a drafting client with sane defaults.
func New(apiKey string) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		Model:      "gpt-4o-mini",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// DraftTask generates a title/description pair for the given prompt.
func (c *Client) DraftTask(ctx context.Context, prompt string) (domain.TaskDraft, error) {
	body, err := sonic.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Description: " + prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return domain.TaskDraft{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(c.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.TaskDraft{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.TaskDraft{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return domain.TaskDraft{}, fmt.Errorf("drafting model: status=%d body=%s", resp.StatusCode, data)
	}

	var parsed chatResponse
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return domain.TaskDraft{}, err
	}
	if len(parsed.Choices) == 0 {
		return domain.TaskDraft{}, fmt.Errorf("drafting model returned no choices")
	}

	var draft domain.TaskDraft
	if err := sonic.Unmarshal([]byte(parsed.Choices[0].Message.Content), &draft); err != nil {
		return domain.TaskDraft{}, fmt.Errorf("drafting model returned malformed content: %w", err)
	}
	if draft.Title == "" {
		return domain.TaskDraft{}, fmt.Errorf("drafting model returned an empty title")
	}
	return draft, nil
}
