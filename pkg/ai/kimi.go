package ai

import "strings"

const kimiDefaultBaseURL = "https://api.moonshot.cn/v1"

// KimiProvider is the Moonshot (Kimi) hosted endpoint. The wire protocol
// is OpenAI-compatible; the difference is the fixed default base URL and
// that an API key is mandatory.
type KimiProvider struct {
	*OpenAICompatProvider
}

// NewKimiProvider builds a provider for the Moonshot API.
func NewKimiProvider(cfg Config) *KimiProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = kimiDefaultBaseURL
	}
	return &KimiProvider{OpenAICompatProvider: NewOpenAICompatProvider(cfg)}
}

func (p *KimiProvider) Name() string { return "Kimi" }

func (p *KimiProvider) RequiresAPIKey() bool { return true }
