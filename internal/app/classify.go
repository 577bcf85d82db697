package app

import (
	"context"
	"encoding/json"
	"strings"

	"litassist/pkg/domain"
	"litassist/pkg/prompt"
)

const (
	classifyTemperature = 0.3

	// Only the head of the guide is sent for classification.
	maxGuideRunesForClassify = 5000

	maxTags             = 5
	maxDescriptionRunes = 200

	fallbackDescription = "AI generated literature description"
)

// classify asks the model for tags and a short description of the
// generated guide. It never fails: any provider or parse problem falls
// back to empty tags and a fixed description.
func (a *App) classify(ctx context.Context, model domain.AIModel, guide string) ([]string, string) {
	systemPrompt, err := a.prompts.Load(prompt.ClassificationPromptName)
	if err != nil {
		a.logger.Warn("load classification prompt", "error", err)
		return []string{}, fallbackDescription
	}

	cfg := providerConfig(model)
	cfg.Temperature = classifyTemperature
	provider, err := a.providers.Create(model.Provider, cfg)
	if err != nil {
		a.logger.Warn("create classification provider", "error", err)
		return []string{}, fallbackDescription
	}

	capped, _ := capRunes(guide, maxGuideRunesForClassify)
	out, err := provider.Generate(ctx, systemPrompt, capped)
	if err != nil {
		a.logger.Warn("classification call", "error", err)
		return []string{}, fallbackDescription
	}
	return parseClassification(out)
}

// parseClassification extracts {tags, desc} from model output,
// tolerating markdown code fences and either "desc" or "description"
// as the key. Tags are capped at maxTags, the description at
// maxDescriptionRunes.
func parseClassification(raw string) ([]string, string) {
	text := stripCodeFences(raw)

	var payload struct {
		Tags        []string `json:"tags"`
		Desc        string   `json:"desc"`
		Description string   `json:"description"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return []string{}, fallbackDescription
	}

	description := strings.TrimSpace(payload.Desc)
	if description == "" {
		description = strings.TrimSpace(payload.Description)
	}
	if description == "" {
		description = fallbackDescription
	} else {
		description, _ = capRunes(description, maxDescriptionRunes)
	}

	tags := make([]string, 0, maxTags)
	for _, tag := range payload.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags, description
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
