// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/internal/domain/types"
)

// streamHeartbeat keeps intermediaries from closing an idle SSE connection.
const streamHeartbeat = 15 * time.Second

// StreamDependencies defines the interface for the live snapshot feed.
type StreamDependencies interface {
	SnapshotDependencies
	Subscribe() (<-chan model.InflationSnapshot, func())
}

// StreamHandler handles server-sent event subscriptions.
type StreamHandler struct {
	deps StreamDependencies
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /api/v1/inflation/stream requests. Each snapshot
// is sent as an SSE "snapshot" event with the sequence number as event id;
// the latest snapshot is replayed immediately so new clients render without
// waiting for the next pick.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_inflation"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream_unsupported", NewKind(op, ErrStreamUnsupported))
		return
	}

	ch, cancel := h.deps.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if snap, ok := h.deps.LatestSnapshot(); ok {
		writeSSE(w, snap)
		flusher.Flush()
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open {
				// Broker shut down; end the stream cleanly.
				return
			}
			writeSSE(w, snap)
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, snap model.InflationSnapshot) {
	payload, err := json.Marshal(types.SnapshotPayloadFrom(snap))
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Seq, payload)
}
