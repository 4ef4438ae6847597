package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/authstore"
)

func newManager(t *testing.T) (*SessionManager, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "portal_session", "secret", time.Hour, false), mr, client
}

func TestSessionRoundTripKeepsFlashUntilPopped(t *testing.T) {
	sm, mr, _ := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, sess.IsNew())
	sess.Set("k", "v")
	sess.AddFlash(FlashMessage{Kind: FlashSuccess, Message: "Vacancy created"})

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.True(t, mr.Exists("portal-session:"+sess.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.False(t, loaded.IsNew())
	assert.Equal(t, "v", loaded.Get("k"))

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Vacancy created", flash.Message)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	again, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, again.PopFlash())
}

func TestUnknownCookieIsNotAdopted(t *testing.T) {
	sm, _, _ := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "attacker-chosen"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestDestroyClearsCookieAndKey(t *testing.T) {
	sm, mr, _ := newManager(t)
	ctx := context.Background()
	sess, _ := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.False(t, mr.Exists("portal-session:"+sess.ID))
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	m := NewCSRFManager([]byte("k"))
	sess := &Session{ID: "s", values: map[string]string{}}

	token, err := m.EnsureToken(sess)
	require.NoError(t, err)
	again, _ := m.EnsureToken(sess)
	assert.Equal(t, token, again)
	assert.NoError(t, m.VerifyToken(sess, token))
	assert.ErrorIs(t, m.VerifyToken(sess, "nope"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(sess, ""), ErrCSRFTokenMissing)

	rotated, err := m.Rotate(sess)
	require.NoError(t, err)
	assert.NotEqual(t, token, rotated)
	assert.ErrorIs(t, m.VerifyToken(sess, token), ErrCSRFTokenMismatch)
}

func TestIdempotencyStore(t *testing.T) {
	_, mr, client := newManager(t)
	store := NewIdempotencyStore(client, time.Minute)
	ctx := context.Background()
	key := SubmissionKey("applications", "sess", "vacancy", 3)
	assert.Equal(t, "submit:applications:sess:vacancy:3", key)

	require.NoError(t, store.Acquire(ctx, key))
	assert.ErrorIs(t, store.Acquire(ctx, key), ErrDuplicateSubmit)
	require.NoError(t, store.Release(ctx, key))
	require.NoError(t, store.Acquire(ctx, key))

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, store.Acquire(ctx, key))

	var nilStore *IdempotencyStore
	assert.NoError(t, nilStore.Acquire(ctx, key))
}

func TestRenewIssuesNewIDAndDropsOldEntry(t *testing.T) {
	sm, mr, _ := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	oldID := loaded.ID

	sm.Renew(loaded)
	assert.NotEqual(t, oldID, loaded.ID)
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, loaded))

	assert.False(t, mr.Exists("portal-session:"+oldID))
	assert.True(t, mr.Exists("portal-session:"+loaded.ID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, loaded.ID, cookies[0].Value)

	stale, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.True(t, stale.IsNew())
	assert.NotEqual(t, oldID, stale.ID)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	renewed, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "v", renewed.Get("k"))
}

func TestRotateSessionMovesAuthStore(t *testing.T) {
	sm, _, client := newManager(t)
	hub := authstore.NewHub(authstore.NewRedisPersister(client, time.Hour))

	var before, after string
	var rotated *authstore.Store
	handler := LoadSession(sm, hub, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		before = SessionFromContext(r.Context()).ID
		rotated = RotateSession(r.Context())
		after = SessionFromContext(r.Context()).ID
		rotated.Login("tok", &authstore.User{ID: 1, Email: "a@b.com", Role: authstore.RoleHR})
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.NotEqual(t, before, after)
	assert.Equal(t, after, rotated.Key())
	assert.Same(t, rotated, hub.Open(context.Background(), after))
	assert.False(t, hub.Open(context.Background(), before).Snapshot().IsAuthenticated())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, after, cookies[0].Value)
}

func TestRotateSessionWithoutMiddlewareReturnsContextStore(t *testing.T) {
	store := authstore.New("k", nil)
	ctx := authstore.WithStore(context.Background(), store)
	assert.Same(t, store, RotateSession(ctx))
}
