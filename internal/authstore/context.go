package authstore

import "context"

type storeContextKey struct{}

// WithStore attaches store to ctx.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// FromContext returns the store attached to ctx, or nil.
func FromContext(ctx context.Context) *Store {
	store, _ := ctx.Value(storeContextKey{}).(*Store)
	return store
}

// SnapshotFromContext returns the current snapshot of the store in ctx; a
// request without a store is signed out.
func SnapshotFromContext(ctx context.Context) Snapshot {
	if store := FromContext(ctx); store != nil {
		return store.Snapshot()
	}
	return Snapshot{}
}

// ContextTokens reads the token of whichever store is attached to the
// request context at the moment of the call.
type ContextTokens struct{}

func (ContextTokens) Token(ctx context.Context) string {
	if store := FromContext(ctx); store != nil {
		return store.Token(ctx)
	}
	return ""
}
