package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"litassist/internal/util"
	"litassist/pkg/ai"
	"litassist/pkg/domain"
	"litassist/pkg/prompt"
	"litassist/pkg/storage"
	"litassist/pkg/store"
)

const (
	// Extracted content beyond this many runes is cut before the AI call.
	maxContentRunes  = 30000
	truncationMarker = "\n\n[content truncated]"

	guideInstruction = "Please write a reading guide for the following document:\n\n"
)

// Upload is one incoming document.
type Upload struct {
	Filename string
	Content  io.Reader
}

// GuideOptions select the model profile and persona for a run.
// Empty fields fall back to the user's default model and the default
// expert.
type GuideOptions struct {
	AIModelID string
	ExpertID  string
}

// GenerateGuide runs the full pipeline for one upload: store the file,
// extract text, stream a reading guide, classify it, persist the
// result. Events land on emit as the run progresses; the returned
// record reflects the final persisted state.
//
// Once a provider call is in flight it runs to completion even when
// the caller's context is canceled; a disconnected client just stops
// receiving events while the record still finalizes.
func (a *App) GenerateGuide(ctx context.Context, userID string, up Upload, opts GuideOptions, emit Emit) (domain.Literature, error) {
	emit = safeEmit(emit)

	model, err := a.resolveModel(userID, opts.AIModelID)
	if err != nil {
		emit(Event{Kind: EventError, Data: err.Error()})
		return domain.Literature{}, err
	}
	systemPrompt, err := a.resolveExpertPrompt(opts.ExpertID)
	if err != nil {
		emit(Event{Kind: EventError, Data: err.Error()})
		return domain.Literature{}, err
	}

	saved, err := a.files.Save(up.Filename, up.Content)
	if err != nil {
		emit(Event{Kind: EventError, Data: err.Error()})
		return domain.Literature{}, err
	}
	emit(Event{Kind: EventProgress, Data: "file saved"})

	return a.processSaved(ctx, userID, up.Filename, saved, model, systemPrompt, emit, true)
}

// processSaved runs extraction through finalization for an already
// stored file. Batch runs reuse it with content forwarding disabled.
func (a *App) processSaved(ctx context.Context, userID, originalName string, saved storage.SavedFile, model domain.AIModel, systemPrompt string, emit Emit, forwardContent bool) (domain.Literature, error) {
	content, err := a.extractor.Extract(saved.FullPath, saved.Type)
	if err != nil {
		if derr := a.files.Delete(saved.FullPath); derr != nil {
			a.logger.Warn("delete file after extraction failure", "path", saved.RelativePath, "error", derr)
		}
		emit(Event{Kind: EventError, Data: err.Error()})
		return domain.Literature{}, err
	}
	contentLength := utf8.RuneCountInString(content)
	if capped, cut := capRunes(content, maxContentRunes); cut {
		content = capped + truncationMarker
	}
	emit(Event{Kind: EventProgress, Data: "content extracted"})

	now := time.Now()
	record := domain.Literature{
		ID:            util.NewID(),
		UserID:        userID,
		OriginalName:  originalName,
		FilePath:      saved.RelativePath,
		FileSize:      saved.Size,
		FileType:      saved.Type,
		ContentLength: contentLength,
		Status:        domain.StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.store.CreateLiterature(record); err != nil {
		if derr := a.files.Delete(saved.FullPath); derr != nil {
			a.logger.Warn("delete file after create failure", "path", saved.RelativePath, "error", derr)
		}
		emit(Event{Kind: EventError, Data: "failed to create literature record"})
		return domain.Literature{}, err
	}
	emit(Event{Kind: EventProgress, Data: "record created"})

	provider, err := a.providers.Create(model.Provider, providerConfig(model))
	if err != nil {
		a.markFailed(ctx, record)
		emit(Event{Kind: EventError, Data: err.Error()})
		return domain.Literature{}, err
	}

	// The provider call survives client disconnects: the stream keeps
	// accumulating and the record finalizes either way.
	callCtx := context.WithoutCancel(ctx)

	emit(Event{Kind: EventStart, Data: ""})
	var guide strings.Builder
	err = provider.GenerateStream(callCtx, systemPrompt, guideInstruction+content, func(ev ai.StreamEvent) {
		if ev.Type != ai.EventContent {
			return
		}
		guide.WriteString(ev.Data)
		if forwardContent {
			emit(Event{Kind: EventContent, Data: ev.Data})
		}
	})
	if err != nil {
		a.markFailed(callCtx, record)
		emit(Event{Kind: EventError, Data: err.Error()})
		return domain.Literature{}, err
	}
	emit(Event{Kind: EventProgress, Data: "analyzing content"})

	tags, description := a.classify(callCtx, model, guide.String())

	guideText := guide.String()
	completed := domain.StatusCompleted
	upd := store.LiteratureUpdate{
		ReadingGuide: &guideText,
		Tags:         tags,
		Description:  &description,
		Status:       &completed,
	}
	if err := a.store.UpdateLiterature(record.ID, upd); err != nil {
		a.markFailed(callCtx, record)
		emit(Event{Kind: EventError, Data: "failed to save generation result"})
		return domain.Literature{}, fmt.Errorf("finalize literature %s: %w", record.ID, err)
	}

	record.ReadingGuide = guideText
	record.Tags = tags
	record.Description = description
	record.Status = domain.StatusCompleted
	record.UpdatedAt = time.Now()

	emit(Event{Kind: EventComplete, Data: completePayload(record)})

	a.archiveUpload(callCtx, record)
	a.publishLifecycle(callCtx, record.ID, userID, domain.StatusCompleted)

	return record, nil
}

// markFailed records a terminal failure. Best-effort: the original
// error is what the caller reports, not a follow-on update error.
func (a *App) markFailed(ctx context.Context, record domain.Literature) {
	failed := domain.StatusFailed
	if err := a.store.UpdateLiterature(record.ID, store.LiteratureUpdate{Status: &failed}); err != nil {
		a.logger.Warn("mark literature failed", "literature_id", record.ID, "error", err)
	}
	a.publishLifecycle(ctx, record.ID, record.UserID, domain.StatusFailed)
}

func (a *App) resolveModel(userID, modelID string) (domain.AIModel, error) {
	if modelID != "" {
		m, ok, err := a.store.GetAIModel(modelID, userID)
		if err != nil {
			return domain.AIModel{}, err
		}
		if !ok {
			return domain.AIModel{}, fmt.Errorf("%w: model %q not found", ErrModelNotConfigured, modelID)
		}
		if !m.Enabled {
			return domain.AIModel{}, fmt.Errorf("%w: model %q is disabled", ErrModelNotConfigured, modelID)
		}
		return m, nil
	}
	m, ok, err := a.store.GetDefaultAIModel(userID)
	if err != nil {
		return domain.AIModel{}, err
	}
	if !ok {
		return domain.AIModel{}, fmt.Errorf("%w: set a default model first", ErrModelNotConfigured)
	}
	return m, nil
}

func (a *App) resolveExpertPrompt(expertID string) (string, error) {
	if expertID == "" {
		expertID = prompt.DefaultExpertID
	}
	return a.prompts.LoadExpert(expertID)
}

func providerConfig(m domain.AIModel) ai.Config {
	return ai.Config{
		BaseURL:     m.BaseURL,
		APIKey:      m.APIKey,
		Model:       m.ModelName,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
	}
}

func completePayload(record domain.Literature) string {
	payload := struct {
		ID          string   `json:"id"`
		Tags        []string `json:"tags"`
		Description string   `json:"description"`
	}{record.ID, record.Tags, record.Description}
	data, err := json.Marshal(payload)
	if err != nil {
		return record.ID
	}
	return string(data)
}

func capRunes(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:max]), true
}
