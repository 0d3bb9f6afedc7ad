package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/utils"
)

// streamEvents handles GET /events as Server-Sent Events. The stream carries
// change notifications only (topic, kind, entity id); clients refetch the
// affected resource rather than trusting event payloads as state.
//
// The subscription covers the viewer's user topic, the global presence topic
// and every conversation the viewer is currently a member of. A conversation
// joined after connect needs a reconnect to be picked up.
func (a *API) streamEvents(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		utils.JSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	topics, err := a.svc.SubscriptionTopics(viewer.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sub := a.hub.Subscribe(topics, 64)
	defer a.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	logger.Info("events_stream_open", "user", viewer.ID, "topics", len(topics))

	// periodic comment keeps idle connections alive through proxies
	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Info("events_stream_closed", "user", viewer.ID)
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, b)
			flusher.Flush()
		}
	}
}
