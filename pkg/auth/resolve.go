package auth

import (
	"net/http"
	"strings"

	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/models"
)

func validateToken(t string) (bool, string) {
	if t == "" {
		return false, "identity token required"
	}
	if len(t) > 256 {
		return false, "identity token too long"
	}
	return true, ""
}

// ResolveIdentityFromRequest is the single canonical resolver handlers call.
// It prefers a signature-verified identity (in context); for backend/admin
// callers without a signature it falls back to the author query param.
// Frontend callers require a signature and receive 401 when missing.
func ResolveIdentityFromRequest(r *http.Request) (models.ExternalIdentity, int, string) {
	if id, ok := IdentityFromContext(r.Context()); ok {
		if ok, msg := validateToken(id.Token); !ok {
			return models.ExternalIdentity{}, http.StatusBadRequest, msg
		}
		return id, 0, ""
	}

	// No verified identity; trusted backends may act on behalf of a user.
	role := r.Header.Get("X-Role-Name")
	if role == "backend" || role == "admin" {
		if q := strings.TrimSpace(r.URL.Query().Get("user")); q != "" {
			if ok, msg := validateToken(q); !ok {
				logger.Warn("invalid_backend_identity", "token", q, "remote", r.RemoteAddr, "path", r.URL.Path)
				return models.ExternalIdentity{}, http.StatusBadRequest, msg
			}
			logger.Info("identity_from_query_backend", "token", q, "remote", r.RemoteAddr, "path", r.URL.Path)
			return models.ExternalIdentity{Token: q}, 0, ""
		}
		logger.Warn("backend_missing_identity", "remote", r.RemoteAddr, "path", r.URL.Path)
		return models.ExternalIdentity{}, http.StatusBadRequest, "identity required for backend requests"
	}

	logger.Warn("missing_identity_signature", "role", role, "remote", r.RemoteAddr, "path", r.URL.Path)
	return models.ExternalIdentity{}, http.StatusUnauthorized, "missing or invalid identity signature"
}
