// Package generation calls the upstream text-generation provider and
// orchestrates the evaluate/track/consume/call sequence per request.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream signals a provider failure. Provider error internals are
// never leaked to API clients.
var ErrUpstream = errors.New("generation provider failure")

// Provider produces analogies for a concept and audience.
type Provider interface {
	Generate(ctx context.Context, concept, audience string, count int) ([]string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a provider client with a bounded request timeout.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = `Você é um especialista em criar analogias didáticas. ` +
	`Dado um conceito e um público, crie analogias claras e memoráveis que ` +
	`expliquem o conceito em termos que o público conhece. Responda apenas ` +
	`com um array JSON de strings, uma analogia por elemento.`

// Generate asks the provider for count analogies.
func (c *Client) Generate(ctx context.Context, concept, audience string, count int) ([]string, error) {
	prompt := fmt.Sprintf("Crie %d analogias explicando %q para %s.", count, concept, audience)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	analogies := parseAnalogies(parsed.Choices[0].Message.Content)
	if len(analogies) == 0 {
		return nil, fmt.Errorf("%w: no analogies in response", ErrUpstream)
	}
	return analogies, nil
}

// parseAnalogies extracts the analogy list from the model's reply.
// Models usually honor the JSON-array instruction; plain text split on
// blank lines is the fallback.
func parseAnalogies(content string) []string {
	content = strings.TrimSpace(content)

	trimmed := strings.TrimPrefix(content, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var analogies []string
	if err := json.Unmarshal([]byte(trimmed), &analogies); err == nil {
		var out []string
		for _, a := range analogies {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
		return out
	}

	var out []string
	for _, part := range strings.Split(content, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
