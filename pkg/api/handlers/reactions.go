package handlers

import (
	"net/http"

	"chatsyncd/pkg/telemetry"
	"chatsyncd/pkg/utils"
)

// toggleReaction handles POST /messages/{id}/reactions. The same call adds
// or removes the (message, user, emoji) row; the response says which way it
// went.
func (a *API) toggleReaction(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "reaction.toggle")
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body struct {
		Emoji string `json:"emoji"`
	}
	if !decode(w, r, &body) {
		return
	}
	added, err := a.svc.ToggleReaction(viewer.ID, pathVar(r, "id"), body.Emoji)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("reaction.toggle")
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"added": added})
}
