package handlers

import (
	"net/http"

	"chatsyncd/pkg/auth"
	"chatsyncd/pkg/telemetry"
	"chatsyncd/pkg/utils"
)

// syncUser maps the verified external identity onto an internal user row,
// creating or patching it. Clients call this once per authenticated session
// before anything else; it is the only route that does not require an
// existing user.
func (a *API) syncUser(w http.ResponseWriter, r *http.Request) {
	telemetry.SetRequestOp(r.Context(), "user.sync")
	ext, status, msg := auth.ResolveIdentityFromRequest(r)
	if status != 0 {
		utils.JSONError(w, status, msg)
		return
	}
	u, err := a.svc.UpsertIdentity(ext)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	telemetry.CountMutation("user.sync")
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

// listUsers returns everyone except the viewer, optionally filtered with
// ?search= against name and email.
func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.viewer(w, r)
	if !ok {
		return
	}
	users, err := a.svc.ListUsers(viewer.ID, r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	for i := range users {
		users[i].IsOnline = a.svc.IsOnline(users[i].ID)
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.viewer(w, r); !ok {
		return
	}
	u, err := a.svc.ResolveUser(pathVar(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	u.IsOnline = a.svc.IsOnline(u.ID)
	_ = utils.JSONWrite(w, http.StatusOK, u)
}
