package app

// Event kinds delivered over the generation stream. Single-file runs
// use the first five; batch runs wrap per-file activity in file_*
// events with "<index>|<data>" payloads and finish with batch_complete.
const (
	EventProgress = "progress"
	EventStart    = "start"
	EventContent  = "content"
	EventComplete = "complete"
	EventError    = "error"

	EventFileStart     = "file_start"
	EventFileProgress  = "file_progress"
	EventFileComplete  = "file_complete"
	EventFileError     = "file_error"
	EventBatchComplete = "batch_complete"
)

// Event is one pipeline notification for the client.
type Event struct {
	Kind string
	Data string
}

// Emit delivers events to the client. Delivery is best-effort: the
// pipeline never fails because a sink stopped accepting events.
type Emit func(Event)

func safeEmit(emit Emit) Emit {
	if emit == nil {
		return func(Event) {}
	}
	return emit
}
