package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenAICompatProvider calls any OpenAI-compatible /chat/completions
// endpoint. Works with Qwen, DeepSeek, vLLM, OpenRouter, self-hosted
// models, and Ollama's compatibility layer.
type OpenAICompatProvider struct {
	cfg        Config
	httpClient *http.Client
}

// NewOpenAICompatProvider builds a provider for an OpenAI-compatible
// endpoint. BaseURL should include the /v1 prefix when the upstream
// expects it, e.g. "https://api.example.com/v1".
func NewOpenAICompatProvider(cfg Config) *OpenAICompatProvider {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &OpenAICompatProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.timeout()},
	}
}

func (p *OpenAICompatProvider) Name() string { return "OpenAI Compatible" }

// RequiresAPIKey is false because local deployments accept anonymous calls.
func (p *OpenAICompatProvider) RequiresAPIKey() bool { return false }

// Generate implements the blocking generation mode.
func (p *OpenAICompatProvider) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := p.post(ctx, oaiChatRequest{
		Model:       p.cfg.Model,
		Messages:    oaiMessages(systemPrompt, userMessage),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderFailed, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProviderFailed)
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrProviderFailed)
	}
	return text, nil
}

// GenerateStream implements the streaming mode over SSE "data:" lines.
func (p *OpenAICompatProvider) GenerateStream(ctx context.Context, systemPrompt, userMessage string, emit func(StreamEvent)) error {
	resp, err := p.post(ctx, oaiChatRequest{
		Model:       p.cfg.Model,
		Messages:    oaiMessages(systemPrompt, userMessage),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	emit(StreamEvent{Type: EventStart, Data: "generation started"})

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk oaiStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			emit(StreamEvent{Type: EventContent, Data: content})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read stream: %v", ErrProviderFailed, err)
	}

	emit(StreamEvent{Type: EventComplete, Data: "generation complete"})
	return nil
}

func (p *OpenAICompatProvider) post(ctx context.Context, body oaiChatRequest) (*http.Response, error) {
	if body.Model == "" {
		return nil, fmt.Errorf("%w: generation model required", ErrProviderFailed)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	url := p.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrProviderFailed, errResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderFailed, resp.Status)
	}
	return resp, nil
}

func oaiMessages(systemPrompt, userMessage string) []oaiMessage {
	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	return append(messages, oaiMessage{Role: "user", Content: userMessage})
}

// OpenAI-compatible request/response types.

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
	Stream      bool         `json:"stream,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
