package middleware

import (
	"context"
	"errors"
	"net/http"

	goInvite "github.com/MrEthical07/goInvite"
)

// OperatorHeaderName carries the shared operator secret.
const OperatorHeaderName = "X-Admin-Password"

// RequireOperator returns middleware that demands both a valid credential and
// the operator capability proven by the X-Admin-Password header. The header
// value is compared in constant time inside the engine.
func RequireOperator(engine *goInvite.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := requestContext(r)
			if secret := r.Header.Get(OperatorHeaderName); secret != "" {
				ctx = goInvite.WithOperatorSecret(ctx, secret)
			}

			authz, err := engine.RequireOperator(ctx, ExtractCredential(r))
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, goInvite.ErrOperatorDenied) {
					status = http.StatusForbidden
				}
				http.Error(w, goInvite.ReasonCode(err), status)
				return
			}

			ctx = context.WithValue(ctx, authorizedContextKey{}, authz)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorOnly returns middleware that gates purely on the operator secret
// without requiring a credential. Token administration endpoints that exist
// before any token has been consumed need this form.
func OperatorOnly(engine *goInvite.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || !engine.VerifyOperator(r.Header.Get(OperatorHeaderName)) {
				http.Error(w, goInvite.ReasonCode(goInvite.ErrOperatorDenied), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestContext(r)))
		})
	}
}
