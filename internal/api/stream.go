package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var heartbeatInterval = 15 * time.Second

// RunsStreamHandler handles GET /v1/runs/stream as Server-Sent Events.
// The optional instance query parameter filters events by instance name.
func (s *Server) RunsStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	filter := r.URL.Query().Get("instance")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(RunsTopic)
	defer s.Broker.Unsubscribe(RunsTopic, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"ts\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if !matchInstance(evt, filter) {
				continue
			}
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

func matchInstance(evt Event, instance string) bool {
	if instance == "" {
		return true
	}
	name, _ := evt.Data["instance"].(string)
	return name == instance
}
