package chat

import (
	"strings"

	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
	"chatsyncd/pkg/utils"
)

// UpsertIdentity maps an external authenticated identity to an internal
// user. New identities insert a user; known identities whose name or image
// drifted get patched. Idempotent, safe to call on every authenticated
// page load.
func (s *Service) UpsertIdentity(ext models.ExternalIdentity) (models.User, error) {
	if strings.TrimSpace(ext.Token) == "" {
		return models.User{}, ErrUnauthenticated
	}

	id, err := store.GetUserIDByToken(ext.Token)
	if err == nil {
		u, err := store.GetUser(id)
		if err != nil {
			return models.User{}, err
		}
		if (ext.Name != "" && u.Name != ext.Name) || u.Image != ext.Image {
			if ext.Name != "" {
				u.Name = ext.Name
			}
			u.Image = ext.Image
			if err := store.SaveUser(u); err != nil {
				return models.User{}, err
			}
			logger.Info("user_profile_patched", "user", u.ID)
			s.publish(notify.TopicUser(u.ID), "user.updated", u.ID)
		}
		return u, nil
	}
	if !store.ErrKeyNotFound(err) {
		return models.User{}, err
	}

	name := strings.TrimSpace(ext.Name)
	if name == "" {
		name = "Anonymous"
	}
	u := models.User{
		ID:            utils.GenUserID(),
		Name:          name,
		Email:         ext.Email,
		Image:         ext.Image,
		IdentityToken: ext.Token,
		CreatedAt:     s.nowNanos(),
	}
	if err := store.SaveUser(u); err != nil {
		return models.User{}, err
	}
	logger.Info("user_created", "user", u.ID)
	s.publish(notify.TopicUser(u.ID), "user.created", u.ID)
	return u, nil
}

// AuthenticateToken resolves an identity token to the internal user. A token
// with no user row means the caller never synced, which reads as
// unauthenticated rather than not-found.
func (s *Service) AuthenticateToken(token string) (models.User, error) {
	if strings.TrimSpace(token) == "" {
		return models.User{}, ErrUnauthenticated
	}
	id, err := store.GetUserIDByToken(token)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return models.User{}, ErrUnauthenticated
		}
		return models.User{}, err
	}
	return store.GetUser(id)
}

// ListUsers returns every user except the viewer, optionally filtered by a
// case-insensitive substring match on name or email.
func (s *Service) ListUsers(viewerID, search string) ([]models.User, error) {
	users, err := store.ListUsers()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID == viewerID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(u.Name), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// ResolveUser returns the user for an internal ID, mapping a missing row to
// ErrNotFound.
func (s *Service) ResolveUser(id string) (models.User, error) {
	u, err := store.GetUser(id)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}
