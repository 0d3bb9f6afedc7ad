package handlers

import (
	"net/http"

	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
	"chatsyncd/pkg/utils"
)

// adminStats handles GET /admin/stats for backend/admin keys. The gateway
// already blocks frontend keys from /v1/admin; the role check here covers
// direct handler wiring in tests.
func (a *API) adminStats(w http.ResponseWriter, r *http.Request) {
	role := r.Header.Get("X-Role-Name")
	if role != "backend" && role != "admin" {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}

	online := 0
	for _, p := range a.svc.ListPresence() {
		if p.Online {
			online++
		}
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"db_path":            store.Path(),
		"disk_bytes":         store.DiskUsage(),
		"online_users":       online,
		"presence_listeners": a.hub.SubscriberCount(notify.TopicPresence),
	})
}
