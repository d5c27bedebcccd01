package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeySessionID contextKey = "session_id"
	ContextKeyPetID     contextKey = "pet_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithSessionID tags outbound calls made on behalf of a scan session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// SessionIDFromContext extracts the scan session ID from context
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeySessionID).(string); ok {
		return id
	}
	return ""
}

// WithPetID adds the pet under assessment to the context
func WithPetID(ctx context.Context, petID string) context.Context {
	return context.WithValue(ctx, ContextKeyPetID, petID)
}

// PetIDFromContext extracts the pet ID from context
func PetIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyPetID).(string); ok {
		return id
	}
	return ""
}
