package handlers

import (
	"net/http"
	"strconv"

	"chatsyncd/pkg/telemetry"
	"chatsyncd/pkg/utils"
)

// sendMessage handles POST /conversations/{id}/messages. Sending also clears
// the author's typing mark.
func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "message.send")
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body struct {
		Body    string `json:"body"`
		ReplyTo string `json:"replyTo"`
	}
	if !decode(w, r, &body) {
		return
	}
	span := telemetry.StartSpan(r.Context(), "chat.send_message")
	msg, err := a.svc.SendMessage(viewer.ID, pathVar(r, "id"), body.Body, body.ReplyTo)
	span()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("message.send")
	_ = utils.JSONWrite(w, http.StatusCreated, msg)
}

// listMessages handles GET /conversations/{id}/messages with optional
// ?cursor= and ?limit=. Members only; deleted messages come back masked.
func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	span := telemetry.StartSpan(r.Context(), "chat.list_messages")
	page, err := a.svc.ListMessages(viewer.ID, pathVar(r, "id"), r.URL.Query().Get("cursor"), limit)
	span()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, page)
}

// editMessage handles PATCH /messages/{id}. Author only; the previous body
// is retained as a version row.
func (a *API) editMessage(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if !decode(w, r, &body) {
		return
	}
	msg, err := a.svc.UpdateMessage(viewer.ID, pathVar(r, "id"), body.Body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("message.edit")
	_ = utils.JSONWrite(w, http.StatusOK, msg)
}

// deleteMessage soft-deletes. Deleting an already-absent message succeeds.
func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	if err := a.svc.RemoveMessage(viewer.ID, pathVar(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("message.delete")
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listMessageVersions(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	versions, err := a.svc.ListMessageVersions(viewer.ID, pathVar(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"versions": versions})
}
