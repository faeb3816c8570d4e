package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskwise/internal/handlers/dto"
	"taskwise/internal/logger"

	"go.uber.org/zap"
)

// StreamTasks keeps a board open for the caller and pushes the columns
// whenever any board commits a batch.
func (h *Handler) StreamTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		responseWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	b, err := h.svc.OpenBoard(ctx, actor)
	if err != nil {
		handleError(w, r, err, "stream_tasks")
		return
	}
	defer b.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "columns", dto.FromColumns(b.Columns()))
	flusher.Flush()

	logger.Info("HTTP: Stream opened", zap.String("actor", actor.ID))
	defer logger.Info("HTTP: Stream closed", zap.String("actor", actor.ID))

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	updates := b.Updates()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(w, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			flusher.Flush()
		case _, open := <-updates:
			if !open {
				return
			}
			if err := b.Reload(ctx); err != nil {
				logger.Warn("HTTP: Stream reload failed", zap.String("actor", actor.ID), zap.Error(err))
				writeSSE(w, "error", map[string]string{"error": "reload failed"})
				flusher.Flush()
				continue
			}
			writeSSE(w, "columns", dto.FromColumns(b.Columns()))
			flusher.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}
