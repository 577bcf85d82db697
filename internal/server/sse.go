package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sseWriter streams server-sent events over one response. Multi-line
// data payloads are split into multiple data: lines per the SSE wire
// format.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	failed  bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

// Send writes one event. After the first write failure the writer goes
// quiet; the client is gone and processing continues without it.
func (s *sseWriter) Send(event, data string) {
	if s.failed {
		return
	}
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		s.failed = true
		return
	}
	s.flusher.Flush()
}
