package authstore

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hrUser() *User {
	return &User{ID: 7, Email: "a@b.com", Role: RoleHR}
}

func TestLoginLogoutKeepsUserAndTokenTogether(t *testing.T) {
	store := New("k", nil)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		switch rng.Intn(4) {
		case 0:
			store.Login("tok", hrUser())
		case 1:
			store.Logout()
		case 2:
			store.Login("", hrUser())
		case 3:
			store.Login("tok", nil)
		}
		snap := store.Snapshot()
		assert.Equal(t, snap.Token != "", snap.User != nil, "step %d", i)
		assert.Equal(t, snap.Token != "", snap.IsAuthenticated())
	}
}

func TestLoginPersistsAndOpenRehydrates(t *testing.T) {
	persister := NewMemoryPersister()
	store := New("browser-1", persister)
	store.Login("tok", hrUser())

	reopened := Open(context.Background(), "browser-1", persister)
	snap := reopened.Snapshot()
	require.True(t, snap.IsAuthenticated())
	assert.Equal(t, "a@b.com", snap.User.Email)
	assert.Equal(t, RoleHR, snap.Role())

	store.Logout()
	assert.False(t, Open(context.Background(), "browser-1", persister).Snapshot().IsAuthenticated())
	assert.Equal(t, 2, persister.Saves())
}

func TestSnapshotIsACopy(t *testing.T) {
	store := New("k", nil)
	store.Login("tok", hrUser())

	snap := store.Snapshot()
	snap.User.Role = RoleAdmin

	assert.Equal(t, RoleHR, store.Snapshot().Role())
}

func TestSubscribeNotifiesUntilCancelled(t *testing.T) {
	store := New("k", nil)
	var seen []bool
	cancel := store.Subscribe(func(s Snapshot) { seen = append(seen, s.IsAuthenticated()) })
	assert.Equal(t, 1, store.Subscribers())

	store.Login("tok", hrUser())
	store.Logout()
	cancel()
	cancel()
	store.Login("tok", hrUser())

	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, 0, store.Subscribers())
}

func TestWatchFiresOnlyWhenSelectionChanges(t *testing.T) {
	store := New("k", nil)
	var roles []Role
	cancel := Watch(store, func(s Snapshot) Role { return s.Role() }, func(r Role) { roles = append(roles, r) })
	defer cancel()

	store.Login("tok-1", hrUser())
	store.Login("tok-2", hrUser())
	store.Login("tok-3", &User{ID: 1, Email: "root@x", Role: RoleAdmin})
	store.Logout()
	store.Logout()

	assert.Equal(t, []Role{RoleHR, RoleAdmin, ""}, roles)
}

func TestObserverSeesChangesWithoutCountingAsSubscriber(t *testing.T) {
	var count int
	store := New("k", nil, WithObserver(func(Snapshot) { count++ }))
	store.Login("tok", hrUser())
	store.Logout()

	assert.Equal(t, 2, count)
	assert.Zero(t, store.Subscribers())
}

func TestOpenNormalizesHalfSessions(t *testing.T) {
	persister := NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), "k", Snapshot{Token: "tok"}))

	assert.False(t, Open(context.Background(), "k", persister).Snapshot().IsAuthenticated())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" HR ")
	require.NoError(t, err)
	assert.Equal(t, RoleHR, role)

	_, err = ParseRole("student")
	assert.Error(t, err)
}

func TestContextTokensReadsAttachedStore(t *testing.T) {
	store := New("k", nil)
	ctx := WithStore(context.Background(), store)

	assert.Empty(t, ContextTokens{}.Token(ctx))
	store.Login("tok", hrUser())
	assert.Equal(t, "tok", ContextTokens{}.Token(ctx))
	assert.Empty(t, ContextTokens{}.Token(context.Background()))
	assert.Equal(t, RoleHR, SnapshotFromContext(ctx).Role())
}
