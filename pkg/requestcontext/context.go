// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services and stores read them
// without importing net/http.
//
//	email := requestcontext.CustomerEmail(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"
)

type (
	customerEmailKey struct{}
	sessionIDKey     struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	deviceKey        struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

func stringValue(ctx context.Context, key any) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// CustomerEmail is the identity bound to the session token of the request.
func CustomerEmail(ctx context.Context) string {
	return stringValue(ctx, customerEmailKey{})
}

// SessionID is the id of the chat session that issued the request.
func SessionID(ctx context.Context) string {
	return stringValue(ctx, sessionIDKey{})
}

// WithSession injects the session identity into ctx.
func WithSession(ctx context.Context, sessionID, email string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey{}, sessionID)
	return context.WithValue(ctx, customerEmailKey{}, email)
}

func ClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey{})
}

func UserAgent(ctx context.Context) string {
	return stringValue(ctx, userAgentKey{})
}

// Device is a short label derived from the User-Agent, e.g. "Chrome on macOS".
func Device(ctx context.Context) string {
	return stringValue(ctx, deviceKey{})
}

// WithClientMetadata injects client IP, User-Agent and device label.
// Useful for service unit tests that don't run the middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, device string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return context.WithValue(ctx, deviceKey{}, device)
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() outside of HTTP requests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
