package shared

import (
	"context"

	"github.com/datastudio/warehouse-admin/internal/apiclient"
	"github.com/datastudio/warehouse-admin/internal/authstore"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// AuthFromContext returns the identity store of the request session, or nil
// outside the session middleware.
func AuthFromContext(ctx context.Context) *authstore.Store {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return nil
	}
	return sess.Auth
}

// SnapshotFromContext returns the current identity, empty when unauthenticated.
func SnapshotFromContext(ctx context.Context) authstore.Snapshot {
	store := AuthFromContext(ctx)
	if store == nil {
		return authstore.Empty()
	}
	return store.Snapshot()
}

// Identity returns the caller identity for remote API calls, nil outside a
// session.
func Identity(ctx context.Context) apiclient.Identity {
	store := AuthFromContext(ctx)
	if store == nil {
		return nil
	}
	return store
}
