// Package audit records security relevant events to an encrypted, hash chained trail
package audit

import (
	"context"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// Context keys copied into event metadata
const (
	KeyUserID    ContextKey = "userId"    // User identifier
	KeySessionID ContextKey = "sessionId" // Session identifier
	KeyComponent ContextKey = "component" // Calling component
)

var contextKeys = []ContextKey{KeyUserID, KeySessionID, KeyComponent}

// WithUser adds a user identifier to the context
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, KeyUserID, userID)
}

// WithSession adds a session identifier to the context
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, KeySessionID, sessionID)
}

// WithComponent names the calling component in the context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, KeyComponent, component)
}

// enrich appends context values that the caller did not already set
func enrich(ctx context.Context, md types.Metadata) types.Metadata {
	if ctx == nil {
		return md
	}
	for _, key := range contextKeys {
		v, ok := ctx.Value(key).(string)
		if !ok || v == "" {
			continue
		}
		if _, exists := md.Get(string(key)); exists {
			continue
		}
		md = md.With(string(key), v)
	}
	return md
}
