package goInvite

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type operatorSecretContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Consume captures it
// into the session's client context; audit events carry it too.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for session
// client-context capture.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithOperatorSecret attaches a presented operator secret to ctx. Authorize
// checks it against the configured secret and sets IsOperator on the returned
// context; a wrong secret never fails authorization, it only withholds the
// capability.
func WithOperatorSecret(ctx context.Context, secret string) context.Context {
	return context.WithValue(ctx, operatorSecretContextKey{}, secret)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func operatorSecretFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	secret, ok := ctx.Value(operatorSecretContextKey{}).(string)
	return secret, ok
}
