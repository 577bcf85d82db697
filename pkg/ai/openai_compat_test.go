package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompatGenerate(t *testing.T) {
	var gotAuth string
	var gotReq oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  result text  "}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "qwen-max", Temperature: 0.7})
	got, err := p.Generate(context.Background(), "system prompt", "user message")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "result text" {
		t.Errorf("Generate() = %q, want %q", got, "result text")
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotReq.Stream {
		t.Error("request stream = true, want false")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user", gotReq.Messages)
	}
}

func TestOpenAICompatGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"auth"}}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(Config{BaseURL: srv.URL, Model: "m"})
	_, err := p.Generate(context.Background(), "", "hello")
	if !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("Generate() error = %v, want ErrProviderFailed", err)
	}
}

func TestOpenAICompatGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req oaiChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream {
			t.Errorf("stream request not set: %+v err=%v", req, err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(Config{BaseURL: srv.URL, Model: "m"})
	var events []StreamEvent
	err := p.GenerateStream(context.Background(), "sys", "user", func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}

	wantTypes := []EventType{EventStart, EventContent, EventContent, EventComplete}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events %v, want %d", len(events), events, len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d type = %q, want %q", i, events[i].Type, want)
		}
	}
	if events[1].Data+events[2].Data != "Hello world" {
		t.Errorf("content = %q, want %q", events[1].Data+events[2].Data, "Hello world")
	}
}

func TestOpenAICompatStreamNoCompleteOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(Config{BaseURL: srv.URL, Model: "m"})
	var events []StreamEvent
	err := p.GenerateStream(context.Background(), "", "user", func(ev StreamEvent) {
		events = append(events, ev)
	})
	if !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("GenerateStream() error = %v, want ErrProviderFailed", err)
	}
	for _, ev := range events {
		if ev.Type == EventComplete {
			t.Error("Complete event emitted on failed stream")
		}
	}
}

func TestOpenAICompatSendsZeroTemperature(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatProvider(Config{BaseURL: srv.URL, Model: "m", Temperature: 0})
	if _, err := p.Generate(context.Background(), "", "hi"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if raw, ok := fields["temperature"]; !ok || string(raw) != "0" {
		t.Errorf("temperature field = %s, want explicit 0", raw)
	}
}

func TestOpenAICompatMissingModel(t *testing.T) {
	p := NewOpenAICompatProvider(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := p.Generate(context.Background(), "", "hi")
	if !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("Generate() error = %v, want ErrProviderFailed", err)
	}
}
