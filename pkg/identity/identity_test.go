package identity

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/askchat/pkg/persistence/kvstore"
)

func TestLoginCurrentLogout(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewInMemoryStore())

	_, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.Login(ctx, "   ")
	require.Error(t, err)

	u, err := m.Login(ctx, "ana")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^user_[0-9a-f]{8}$`), u.ID)
	require.Equal(t, "ana", u.Username)

	cur, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, u, cur)

	require.NoError(t, m.Logout(ctx))
	_, ok, err = m.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogin_FreshIDEachTime(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewInMemoryStore())
	a, err := m.Login(ctx, "ana")
	require.NoError(t, err)
	b, err := m.Login(ctx, "ana")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestCurrent_LegacyRecordWithoutUsername(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewInMemoryStore()
	require.NoError(t, kv.Put(ctx, CurrentUserKey, []byte(`{"id":"user_4821"}`)))
	u, ok, err := NewManager(kv).Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, User{ID: "user_4821"}, u)

	require.NoError(t, kv.Put(ctx, CurrentUserKey, []byte(`garbage`)))
	_, ok, err = NewManager(kv).Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}
