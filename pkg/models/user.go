package models

// User is the internal record for an externally authenticated identity.
// IdentityToken is the stable token issued by the identity provider and is
// unique per user. Users are never deleted.
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Image         string `json:"image,omitempty"`
	IdentityToken string `json:"identity_token"`
	// IsOnline and LastSeenAt are patched by the presence tracker on
	// disconnect; live online state comes from the ephemeral store.
	IsOnline   bool  `json:"is_online,omitempty"`
	LastSeenAt int64 `json:"last_seen_at,omitempty"`
	CreatedAt  int64 `json:"created_at"`
}

// ExternalIdentity carries the verified profile fields presented by the
// identity provider on each authenticated request.
type ExternalIdentity struct {
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}
