package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KeepAlive is how often an idle stream receives a comment line.
const KeepAlive = 15 * time.Second

var ErrStreamingUnsupported = errors.New("events: streaming unsupported")

// Stream writes an SSE response for topic until ctx ends or the hub stops.
// initial, when non-empty, is sent before any published message.
func Stream(ctx context.Context, w http.ResponseWriter, hub *Hub, topic string, initial []byte) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}
	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	msgCh := make(chan []byte, 16)
	if !hub.Subscribe(msgCh, topic) {
		return errors.New("events: hub stopped")
	}
	defer hub.Unsubscribe(msgCh, topic)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return err
	}
	if len(initial) > 0 {
		if err := writeEvent(w, initial); err != nil {
			return err
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hub.Done():
			return nil
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		case msg := <-msgCh:
			if err := writeEvent(w, msg); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, msg []byte) error {
	_, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", msg)
	return err
}
