package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chatsyncd/pkg/auth"
	"chatsyncd/pkg/chat"
	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/utils"
)

// API carries the service and hub every handler closes over.
type API struct {
	svc *chat.Service
	hub *notify.Hub
}

// Register mounts all chat routes on the given (already /v1-scoped) router.
func Register(r *mux.Router, svc *chat.Service, hub *notify.Hub) {
	a := &API{svc: svc, hub: hub}

	r.HandleFunc("/users/sync", a.syncUser).Methods(http.MethodPost)
	r.HandleFunc("/users", a.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", a.getUser).Methods(http.MethodGet)

	r.HandleFunc("/conversations", a.createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations", a.listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", a.renameConversation).Methods(http.MethodPatch)
	r.HandleFunc("/conversations/{id}/read", a.markRead).Methods(http.MethodPost)

	r.HandleFunc("/conversations/{id}/messages", a.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/messages", a.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", a.editMessage).Methods(http.MethodPatch)
	r.HandleFunc("/messages/{id}", a.deleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/messages/{id}/versions", a.listMessageVersions).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}/reactions", a.toggleReaction).Methods(http.MethodPost)

	r.HandleFunc("/presence/heartbeat", a.heartbeat).Methods(http.MethodPost)
	r.HandleFunc("/presence/disconnect", a.disconnect).Methods(http.MethodPost)
	r.HandleFunc("/presence", a.listPresence).Methods(http.MethodGet)

	r.HandleFunc("/conversations/{id}/typing", a.setTyping).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/typing", a.clearTyping).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{id}/typing", a.listTyping).Methods(http.MethodGet)

	r.HandleFunc("/events", a.streamEvents).Methods(http.MethodGet)
	r.HandleFunc("/admin/stats", a.adminStats).Methods(http.MethodGet)
}

// viewer resolves the verified identity to the internal user. On failure the
// response has been written and ok is false.
func (a *API) viewer(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	ext, status, msg := auth.ResolveIdentityFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return models.User{}, false
	}
	u, err := a.svc.AuthenticateToken(ext.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return models.User{}, false
	}
	return u, true
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrUnauthenticated):
		utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, chat.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, chat.ErrForbidden):
		utils.JSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, chat.ErrValidation):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrPartial):
		utils.JSONError(w, http.StatusConflict, "partial write")
	default:
		logger.Error("handler_internal_error", "path", r.URL.Path, "err", err.Error())
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a small JSON body into dst, rejecting junk.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
