package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goInvite "github.com/MrEthical07/goInvite"
)

// CookieName is the cookie consulted first when extracting a credential.
const CookieName = "authToken"

// HeaderName is the fallback header consulted after the Authorization header.
const HeaderName = "X-Auth-Token"

type authorizedContextKey struct{}

// AuthorizedFromContext returns the authorization result injected by [Guard]
// or [Optional].
func AuthorizedFromContext(ctx context.Context) (*goInvite.AuthorizedContext, bool) {
	authz, ok := ctx.Value(authorizedContextKey{}).(*goInvite.AuthorizedContext)
	return authz, ok
}

// Guard returns middleware that rejects requests without a valid credential.
// The rejection reason code is written as the response body.
func Guard(engine *goInvite.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := requestContext(r)
			authz, err := engine.Authorize(ctx, ExtractCredential(r))
			if err != nil {
				http.Error(w, goInvite.ReasonCode(err), http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, authorizedContextKey{}, authz)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional returns middleware that authorizes when a credential is present
// and continues anonymously otherwise. A present but invalid credential still
// rejects.
func Optional(engine *goInvite.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := ExtractCredential(r)
			if engine == nil || cred == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestContext(r)
			authz, err := engine.Authorize(ctx, cred)
			if err != nil {
				http.Error(w, goInvite.ReasonCode(err), http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, authorizedContextKey{}, authz)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractCredential pulls the raw credential from a request. Sources are
// checked in a fixed order: authToken cookie, Authorization bearer token,
// X-Auth-Token header. The first non-empty source wins.
func ExtractCredential(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if cred, ok := bearerCredential(r.Header.Get("Authorization")); ok {
		return cred
	}
	return r.Header.Get(HeaderName)
}

func bearerCredential(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	cred := value[len(bearer):]
	if cred == "" {
		return "", false
	}
	return cred, true
}

// requestContext decorates the request context with client IP and user agent
// so the engine records them on sessions and audit events.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip != "" {
		ctx = goInvite.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goInvite.WithUserAgent(ctx, ua)
	}
	return ctx
}
