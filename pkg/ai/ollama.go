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

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaProvider calls a local Ollama inference server over its native
// /api/chat endpoint. Streaming responses arrive as NDJSON lines.
type OllamaProvider struct {
	cfg        Config
	httpClient *http.Client
}

// NewOllamaProvider builds a provider for an Ollama server.
func NewOllamaProvider(cfg Config) *OllamaProvider {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &OllamaProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.timeout()},
	}
}

func (p *OllamaProvider) Name() string { return "Ollama" }

func (p *OllamaProvider) RequiresAPIKey() bool { return false }

// Generate implements the blocking generation mode.
func (p *OllamaProvider) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := p.post(ctx, ollamaChatRequest{
		Model:    p.cfg.Model,
		Messages: ollamaMessages(systemPrompt, userMessage),
		Stream:   false,
		Options:  p.options(),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderFailed, err)
	}
	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return "", fmt.Errorf("%w: empty response", ErrProviderFailed)
	}
	return chatResp.Message.Content, nil
}

// GenerateStream implements the streaming mode over NDJSON lines.
func (p *OllamaProvider) GenerateStream(ctx context.Context, systemPrompt, userMessage string, emit func(StreamEvent)) error {
	resp, err := p.post(ctx, ollamaChatRequest{
		Model:    p.cfg.Model,
		Messages: ollamaMessages(systemPrompt, userMessage),
		Stream:   true,
		Options:  p.options(),
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
		if line == "" {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return fmt.Errorf("%w: %s", ErrProviderFailed, chunk.Error)
		}
		if chunk.Message.Content != "" {
			emit(StreamEvent{Type: EventContent, Data: chunk.Message.Content})
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read stream: %v", ErrProviderFailed, err)
	}

	emit(StreamEvent{Type: EventComplete, Data: "generation complete"})
	return nil
}

func (p *OllamaProvider) post(ctx context.Context, body ollamaChatRequest) (*http.Response, error) {
	if body.Model == "" {
		return nil, fmt.Errorf("%w: generation model required", ErrProviderFailed)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp ollamaErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrProviderFailed, errResp.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderFailed, resp.Status)
	}
	return resp, nil
}

func (p *OllamaProvider) options() *ollamaOptions {
	opts := &ollamaOptions{Temperature: p.cfg.Temperature}
	if p.cfg.MaxTokens > 0 {
		opts.NumPredict = p.cfg.MaxTokens
	}
	return opts
}

func ollamaMessages(systemPrompt, userMessage string) []ollamaChatMessage {
	messages := make([]ollamaChatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: systemPrompt})
	}
	return append(messages, ollamaChatMessage{Role: "user", Content: userMessage})
}

// Ollama /api/chat request/response types.

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  *ollamaOptions      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}
