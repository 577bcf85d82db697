package app

import (
	"context"
	"fmt"

	"litassist/pkg/storage"
)

// BatchGenerate runs the pipeline over several uploads in one stream.
// All files are saved upfront; a save failure rolls back the files
// already stored and aborts the batch. After that each file is
// processed sequentially and failures are isolated: one bad document
// does not stop the rest, though its stored bytes are removed while its
// record, when created, stays. Per-file events carry "<index>|<data>"
// payloads with 1-based indexes; guide content is not forwarded in
// batch mode.
func (a *App) BatchGenerate(ctx context.Context, userID string, uploads []Upload, opts GuideOptions, emit Emit) error {
	emit = safeEmit(emit)

	if len(uploads) == 0 {
		err := fmt.Errorf("no files in batch")
		emit(Event{Kind: EventError, Data: err.Error()})
		return err
	}

	model, err := a.resolveModel(userID, opts.AIModelID)
	if err != nil {
		emit(Event{Kind: EventError, Data: err.Error()})
		return err
	}
	systemPrompt, err := a.resolveExpertPrompt(opts.ExpertID)
	if err != nil {
		emit(Event{Kind: EventError, Data: err.Error()})
		return err
	}

	saved := make([]storage.SavedFile, 0, len(uploads))
	for i, up := range uploads {
		s, err := a.files.Save(up.Filename, up.Content)
		if err != nil {
			for _, prev := range saved {
				if derr := a.files.Delete(prev.FullPath); derr != nil {
					a.logger.Warn("roll back batch file", "path", prev.RelativePath, "error", derr)
				}
			}
			wrapped := fmt.Errorf("file %d (%s): %w", i+1, up.Filename, err)
			emit(Event{Kind: EventError, Data: wrapped.Error()})
			return wrapped
		}
		saved = append(saved, s)
	}

	completed := 0
	for i := range uploads {
		index := i + 1
		emit(Event{Kind: EventFileStart, Data: fmt.Sprintf("%d|%s", index, uploads[i].Filename)})

		record, err := a.processSaved(ctx, userID, uploads[i].Filename, saved[i], model, systemPrompt, batchEmit(emit, index), false)
		if err != nil {
			a.logger.Warn("batch file failed", "index", index, "file", uploads[i].Filename, "error", err)
			// Batch failures always drop the stored bytes; the record,
			// when one exists, is the audit trail.
			if derr := a.files.Delete(saved[i].FullPath); derr != nil {
				a.logger.Warn("delete batch file after failure", "path", saved[i].RelativePath, "error", derr)
			}
			continue
		}
		completed++
		emit(Event{Kind: EventFileComplete, Data: fmt.Sprintf("%d|%s", index, record.ID)})
	}

	emit(Event{Kind: EventBatchComplete, Data: fmt.Sprintf("%d/%d", completed, len(uploads))})
	return nil
}

// batchEmit rewraps single-file events as indexed batch events.
// Start, content, and complete events are suppressed: the batch stream
// announces files itself and never forwards guide text.
func batchEmit(emit Emit, index int) Emit {
	return func(ev Event) {
		switch ev.Kind {
		case EventProgress:
			emit(Event{Kind: EventFileProgress, Data: fmt.Sprintf("%d|%s", index, ev.Data)})
		case EventError:
			emit(Event{Kind: EventFileError, Data: fmt.Sprintf("%d|%s", index, ev.Data)})
		}
	}
}
