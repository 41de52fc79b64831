package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// SSEClient writes hub events to one Server-Sent-Events response stream.
// The write mutex serializes emits from concurrent requests onto the single
// underlying connection.
type SSEClient struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEClient prepares a response writer for event streaming and sets the
// SSE headers. Fails when the transport cannot flush incrementally.
func NewSSEClient(w http.ResponseWriter) (*SSEClient, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEClient{w: w, flusher: flusher}, nil
}

// Send writes one event in SSE wire format: "event: <type>\ndata: <JSON>\n\n".
func (c *SSEClient) Send(evt Event) error {
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}
