// Package identity is the pseudo-login used to pick a conversation owner. It
// performs no authentication: a free-text username is mapped to a fresh,
// opaque user id that is remembered until logout.
package identity

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
)

const CurrentUserKey = "currentUser"

type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type Manager struct {
	kv    kvstore.Store
	newID func() string
}

func NewManager(kv kvstore.Store) *Manager {
	return &Manager{kv: kv, newID: newUserID}
}

func newUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (m *Manager) Login(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, errors.New("identity: username is empty")
	}
	u := User{ID: m.newID(), Username: username}
	b, err := json.Marshal(u)
	if err != nil {
		return User{}, errors.Wrap(err, "identity: encode user")
	}
	if err := m.kv.Put(ctx, CurrentUserKey, b); err != nil {
		return User{}, errors.Wrap(err, "identity: store current user")
	}
	return u, nil
}

// Current returns the logged-in user, if any. An unreadable record counts as
// logged out.
func (m *Manager) Current(ctx context.Context) (User, bool, error) {
	b, ok, err := m.kv.Get(ctx, CurrentUserKey)
	if err != nil {
		return User{}, false, errors.Wrap(err, "identity: load current user")
	}
	if !ok {
		return User{}, false, nil
	}
	var u User
	if err := json.Unmarshal(b, &u); err != nil || strings.TrimSpace(u.ID) == "" {
		return User{}, false, nil
	}
	return u, true, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	if err := m.kv.Delete(ctx, CurrentUserKey); err != nil {
		return errors.Wrap(err, "identity: clear current user")
	}
	return nil
}
