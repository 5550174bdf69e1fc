package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/LorenzoCW/dnd-investments/internal/core"
)

// handleStream pushes a full board view over Server-Sent Events after every
// change. Slow consumers skip intermediate states and catch up on the next
// event, which is safe because every event carries the whole board.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates := make(chan core.Snapshot, 1)
	unwatch := s.board.Watch(func(snap core.Snapshot) {
		// Keep only the latest pending snapshot.
		select {
		case updates <- snap:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- snap:
			default:
			}
		}
	})
	defer unwatch()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := s.writeBoardEvent(w, s.board.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := s.writeBoardEvent(w, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeBoardEvent(w http.ResponseWriter, snap core.Snapshot) error {
	payload, err := json.Marshal(buildBoardView(snap, s.board.Degraded()))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: board\ndata: %s\n\n", payload)
	return err
}
