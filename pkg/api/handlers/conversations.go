package handlers

import (
	"net/http"

	"chatsyncd/pkg/telemetry"
	"chatsyncd/pkg/utils"
)

// createConversation handles POST /conversations. The creator is always a
// member regardless of the participant list; a non-group body must resolve
// to exactly two members and dedups against an existing direct conversation.
func (a *API) createConversation(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "conversation.create")
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body struct {
		Name           string   `json:"name"`
		IsGroup        bool     `json:"isGroup"`
		ParticipantIDs []string `json:"participantIds"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.IsGroup && body.Name == "" {
		body.Name = "New Group"
	}
	id, err := a.svc.CreateConversation(viewer.ID, body.ParticipantIDs, body.IsGroup, body.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("conversation.create")
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]string{"id": id})
}

// listConversations returns the viewer's annotated conversation list, most
// recently active first.
func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	span := telemetry.StartSpan(r.Context(), "chat.list_conversations")
	views, err := a.svc.ListConversations(viewer.ID)
	span()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"conversations": views})
}

func (a *API) renameConversation(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := a.svc.UpdateConversationName(viewer.ID, pathVar(r, "id"), body.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("conversation.rename")
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

// markRead advances the viewer's read pointer. Non-members get a silent
// no-op so a stale tab pointed at a left conversation cannot error-loop.
func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	if err := a.svc.MarkRead(viewer.ID, pathVar(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("conversation.mark_read")
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}
