package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsyncd/pkg/api/handlers"
	"chatsyncd/pkg/auth"
	"chatsyncd/pkg/chat"
	"chatsyncd/pkg/notify"
)

// Handler builds the /v1 API surface. Identity verification runs on every
// route; role gating (API keys, CORS, rate limits) is applied by the gateway
// middleware wrapped around this handler at server assembly.
func Handler(svc *chat.Service, hub *notify.Hub) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(mux.MiddlewareFunc(auth.RequireSignedIdentity))
	handlers.Register(v1, svc, hub)
	return r
}
