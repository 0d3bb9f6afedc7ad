package handlers

import (
	"net/http"

	"chatsyncd/pkg/telemetry"
	"chatsyncd/pkg/utils"
)

// heartbeat handles POST /presence/heartbeat. Clients send it on an
// interval well inside the online window.
func (a *API) heartbeat(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.svc.Heartbeat(viewer.ID)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// disconnect flips the caller offline immediately on graceful teardown.
func (a *API) disconnect(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	if err := a.svc.Disconnect(viewer.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("presence.disconnect")
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listPresence(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.viewer(w, r); !ok {
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"presence": a.svc.ListPresence()})
}
