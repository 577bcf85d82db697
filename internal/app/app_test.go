package app

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"litassist/pkg/ai"
	"litassist/pkg/domain"
	"litassist/pkg/extract"
	"litassist/pkg/prompt"
	"litassist/pkg/storage"
	"litassist/pkg/store"
)

// stubProvider drives the pipeline deterministically. The same
// instance serves the streaming call and the classification call.
type stubProvider struct {
	mu sync.Mutex

	fragments []string
	failAfter int // fragments emitted before the stream fails; -1 never
	streamErr error

	classifyOut string
	classifyErr error

	lastStreamMessage   string
	lastGenerateMessage string
	temperatures        []float64
}

func (s *stubProvider) Name() string         { return "Stub" }
func (s *stubProvider) RequiresAPIKey() bool { return false }

func (s *stubProvider) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	s.mu.Lock()
	s.lastGenerateMessage = userMessage
	s.mu.Unlock()
	if s.classifyErr != nil {
		return "", s.classifyErr
	}
	return s.classifyOut, nil
}

func (s *stubProvider) GenerateStream(ctx context.Context, systemPrompt, userMessage string, emit func(ai.StreamEvent)) error {
	s.mu.Lock()
	s.lastStreamMessage = userMessage
	s.mu.Unlock()
	emit(ai.StreamEvent{Type: ai.EventStart, Data: "generation started"})
	for i, fragment := range s.fragments {
		if s.failAfter >= 0 && i == s.failAfter {
			return s.streamErr
		}
		emit(ai.StreamEvent{Type: ai.EventContent, Data: fragment})
	}
	if s.failAfter >= 0 && s.failAfter >= len(s.fragments) {
		return s.streamErr
	}
	emit(ai.StreamEvent{Type: ai.EventComplete, Data: "generation complete"})
	return nil
}

type harness struct {
	app   *App
	store *store.MemoryStore
	files *storage.FileStore
	stub  *stubProvider
	root  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	root := t.TempDir()
	files, err := storage.NewFileStore(root, 1<<20, []string{"pdf", "txt", "md"})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	promptDir := t.TempDir()
	for name, text := range map[string]string{
		"academic-mentor":                         "act as a mentor",
		prompt.ClassificationPromptName:           "classify the guide",
		"quick-summarizer":                        "summarize",
	} {
		if err := os.WriteFile(filepath.Join(promptDir, name+".txt"), []byte(text), 0o644); err != nil {
			t.Fatalf("write prompt %s: %v", name, err)
		}
	}
	prompts, err := prompt.NewLoader(promptDir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	stub := &stubProvider{
		fragments:   []string{"Hello ", "world"},
		failAfter:   -1,
		classifyOut: `{"tags":["intro"],"desc":"short"}`,
	}
	registry := ai.NewRegistry()
	registry.Register("stub", func(cfg ai.Config) ai.Provider {
		stub.mu.Lock()
		stub.temperatures = append(stub.temperatures, cfg.Temperature)
		stub.mu.Unlock()
		return stub
	})

	mem := store.NewMemoryStore()
	a, err := New(Config{
		Store:     mem,
		Files:     files,
		Extractor: extract.Default(),
		Prompts:   prompts,
		Providers: registry,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = mem.CreateAIModel(domain.AIModel{
		ID:          "model-1",
		UserID:      "u1",
		Name:        "Stub",
		Provider:    "stub",
		ModelName:   "stub-1",
		Temperature: 0.7,
		IsDefault:   true,
		Enabled:     true,
	})
	if err != nil {
		t.Fatalf("seed model: %v", err)
	}

	return &harness{app: a, store: mem, files: files, stub: stub, root: root}
}

func listAll(userID string) store.LiteratureQuery {
	return store.LiteratureQuery{UserID: userID, Page: 1, PageSize: 100}
}

func collectEvents() (Emit, *[]Event) {
	events := &[]Event{}
	return func(ev Event) { *events = append(*events, ev) }, events
}

func kinds(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func countStoredFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk upload root: %v", err)
	}
	return count
}

func TestRegisterAndAuthenticateUser(t *testing.T) {
	h := newHarness(t)
	user, err := h.app.RegisterUser("alice", "password1")
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	if user.PasswordHash == "password1" {
		t.Error("password stored in plaintext")
	}

	if _, err := h.app.RegisterUser("alice", "password2"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate RegisterUser() error = %v, want ErrUsernameTaken", err)
	}
	if _, err := h.app.RegisterUser("al", "password1"); !errors.Is(err, ErrValidation) {
		t.Errorf("short username error = %v, want ErrValidation", err)
	}

	got, err := h.app.AuthenticateUser("alice", "password1")
	if err != nil {
		t.Fatalf("AuthenticateUser() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated user = %s, want %s", got.ID, user.ID)
	}
	if _, err := h.app.AuthenticateUser("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := h.app.AuthenticateUser("nobody", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestCreateAIModelValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.app.CreateAIModel("u1", domain.AIModel{Name: "x", Provider: "unknown", ModelName: "m"})
	if !errors.Is(err, ai.ErrUnknownProvider) {
		t.Errorf("unknown provider error = %v, want ErrUnknownProvider", err)
	}
	_, err = h.app.CreateAIModel("u1", domain.AIModel{Provider: "stub", ModelName: "m"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("missing name error = %v, want ErrValidation", err)
	}

	created, err := h.app.CreateAIModel("u1", domain.AIModel{Name: "My Stub", Provider: "stub", ModelName: "stub-2"})
	if err != nil {
		t.Fatalf("CreateAIModel() error = %v", err)
	}
	if created.ID == "" || !created.Enabled {
		t.Errorf("created model = %+v, want id set and enabled", created)
	}
}

func TestSetDefaultAIModelSwitches(t *testing.T) {
	h := newHarness(t)
	second, err := h.app.CreateAIModel("u1", domain.AIModel{Name: "Second", Provider: "stub", ModelName: "stub-2"})
	if err != nil {
		t.Fatalf("CreateAIModel() error = %v", err)
	}
	if _, err := h.app.SetDefaultAIModel(second.ID, "u1"); err != nil {
		t.Fatalf("SetDefaultAIModel() error = %v", err)
	}
	def, ok, err := h.store.GetDefaultAIModel("u1")
	if err != nil || !ok {
		t.Fatalf("GetDefaultAIModel() = %v, %v", ok, err)
	}
	if def.ID != second.ID {
		t.Errorf("default = %s, want %s", def.ID, second.ID)
	}
}

func TestUpdateAIModelKeepsStoredAPIKey(t *testing.T) {
	h := newHarness(t)
	created, err := h.app.CreateAIModel("u1", domain.AIModel{Name: "Keyed", Provider: "stub", ModelName: "m", APIKey: "sk-original"})
	if err != nil {
		t.Fatalf("CreateAIModel() error = %v", err)
	}
	created.APIKey = ""
	created.Name = "Renamed"
	updated, err := h.app.UpdateAIModel("u1", created)
	if err != nil {
		t.Fatalf("UpdateAIModel() error = %v", err)
	}
	if updated.APIKey != "sk-original" {
		t.Errorf("APIKey = %q, want preserved sk-original", updated.APIKey)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", updated.Name)
	}
}

func TestDeleteLiteratureRemovesFile(t *testing.T) {
	h := newHarness(t)
	emit, _ := collectEvents()
	record, err := h.app.GenerateGuide(context.Background(), "u1", Upload{
		Filename: "doc.txt",
		Content:  readerOf("document body"),
	}, GuideOptions{}, emit)
	if err != nil {
		t.Fatalf("GenerateGuide() error = %v", err)
	}

	if err := h.app.DeleteLiterature(context.Background(), record.ID, "u1"); err != nil {
		t.Fatalf("DeleteLiterature() error = %v", err)
	}
	if _, _, err := h.app.DownloadPath(record.ID, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DownloadPath() after delete error = %v, want ErrNotFound", err)
	}
	if got := countStoredFiles(t, h.root); got != 0 {
		t.Errorf("upload root has %d file(s) after delete, want 0", got)
	}
}
