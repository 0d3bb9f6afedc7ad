package handlers

import (
	"net/http"

	"chatsyncd/pkg/utils"
)

// setTyping upserts the viewer's typing mark. Clients throttle repeats;
// the mark ages out of listTyping after the typing window regardless.
func (a *API) setTyping(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	if err := a.svc.SetTyping(viewer.ID, pathVar(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clearTyping removes the mark. Idempotent, so clearing twice is fine.
func (a *API) clearTyping(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	a.svc.ClearTyping(viewer.ID, pathVar(r, "id"))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listTyping returns who else is typing right now, resolved to names.
func (a *API) listTyping(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	typing, err := a.svc.ListTyping(viewer.ID, pathVar(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"typing": typing})
}
