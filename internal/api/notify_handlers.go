package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/notify"
)

const streamBuffer = 16

// streamNotifications relays hub events as server-sent events until the
// client disconnects or the hub shuts down.
func (s *Server) streamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, common.Internal("stream notifications", fmt.Errorf("response writer does not support flushing")))
		return
	}
	events, cancel := s.hub.Subscribe(streamBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	log := logging.FromContext(r.Context(), s.log)
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				log.Warn(r.Context(), "drop unencodable event", "event", e.Name, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, common.NewValidationError("message", "cannot be blank"))
		return
	}
	s.hub.Publish(notify.EventAnnouncement, map[string]string{
		"title":   strings.TrimSpace(req.Title),
		"message": strings.TrimSpace(req.Message),
	})
	writeSuccess(w, http.StatusOK, "Notification sent", map[string]any{"listeners": s.hub.Subscribers()})
}
