package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rag-workspace-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.Provider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *OllamaProvider) buildPayload(history []llm.Message, options *llm.Options, stream bool) ([]byte, error) {
	messages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		messages[i] = ollamaMessage{Role: role, Content: msg.Content}
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	payload := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}
	if options.MaxTokens > 0 {
		payload.Options.NumPredict = options.MaxTokens
	}
	return json.Marshal(payload)
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := o.buildPayload(history, options, false)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return ollamaResp.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// ChatStream reads the NDJSON stream from /api/chat line by line, emitting
// one fragment per line until the "done" marker or a context cancel.
func (o *OllamaProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Fragment, error) {
	options := &llm.Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := o.buildPayload(history, options, true)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	fragments := make(chan llm.Fragment)
	go func() {
		defer close(fragments)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				fragments <- llm.Fragment{Err: ctx.Err()}
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				fragments <- llm.Fragment{Err: fmt.Errorf("unmarshal stream chunk: %w", err)}
				return
			}
			if chunk.Message.Content != "" {
				select {
				case fragments <- llm.Fragment{Content: chunk.Message.Content}:
				case <-ctx.Done():
					fragments <- llm.Fragment{Err: ctx.Err()}
					return
				}
			}
			if chunk.Done {
				fragments <- llm.Fragment{Done: true}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				fragments <- llm.Fragment{Err: ctx.Err()}
				return
			}
			fragments <- llm.Fragment{Err: fmt.Errorf("read stream: %w", err)}
			return
		}
		fragments <- llm.Fragment{Done: true}
	}()

	return fragments, nil
}
