package ai

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultRegistryKinds(t *testing.T) {
	kinds := DefaultRegistry().Kinds()
	want := []string{KindKimi, KindOllama, KindOpenAICompatible}
	if len(kinds) != len(want) {
		t.Fatalf("Kinds() = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("Kinds() = %v, want %v", kinds, want)
		}
	}
}

func TestRegistryCreateUnknownKind(t *testing.T) {
	_, err := DefaultRegistry().Create("anthropic", Config{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Create() error = %v, want ErrUnknownProvider", err)
	}
	if !strings.Contains(err.Error(), KindOllama) {
		t.Errorf("error %q does not list registered kinds", err)
	}
}

func TestRegistryCreateCaseInsensitive(t *testing.T) {
	p, err := DefaultRegistry().Create(" OLLAMA ", Config{Model: "m"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Name() != "Ollama" {
		t.Errorf("Name() = %q, want Ollama", p.Name())
	}
}

func TestKimiRequiresAPIKey(t *testing.T) {
	p, err := DefaultRegistry().Create(KindKimi, Config{Model: "moonshot-v1-8k"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !p.RequiresAPIKey() {
		t.Error("Kimi RequiresAPIKey() = false, want true")
	}
	if p.Name() != "Kimi" {
		t.Errorf("Name() = %q, want Kimi", p.Name())
	}
}
