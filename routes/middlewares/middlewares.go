package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/formden/formden/app"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/model"
	"github.com/formden/formden/quota"
	"github.com/go-chi/oauth"
	"github.com/pkg/errors"
)

type contextKey int

const identityKey contextKey = iota

// IdentityFrom returns the actor resolved by Owner or Authenticated.
func IdentityFrom(ctx context.Context) (quota.Identity, bool) {
	id, ok := ctx.Value(identityKey).(quota.Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id quota.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Owner resolves the acting identity for owner-scoped routes. A bearer token
// is honored when present (and a bad token still fails with 401); otherwise
// the x-owner-id header identifies the actor, with role/plan loaded from the
// account record. An unresolvable identity is a 400, not a 401.
func Owner(app app.App) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(app.TokenSecret, nil)

	return func(next http.Handler) http.Handler {
		resolve := resolveIdentity(app, next)
		withToken := authorize(resolve)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("authorization")
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				withToken.ServeHTTP(w, r)
			} else {
				resolve.ServeHTTP(w, r)
			}
		})
	}
}

// Authenticated requires a valid bearer token and resolves the identity it
// carries.
func Authenticated(app app.App) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(app.TokenSecret, nil)

	return func(next http.Handler) http.Handler {
		return authorize(resolveIdentity(app, next))
	}
}

func resolveIdentity(app app.App, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := quota.ResolveIdentity(
			r.Context(),
			tokenClaims(r.Context()),
			r.Header.Get("x-owner-id"),
			app.Store,
		)
		if errors.Is(err, quota.ErrInvalidOwner) {
			httpx.InvalidOwner(w, r)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "identity.resolve", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func tokenClaims(ctx context.Context) *quota.Claims {
	m, ok := ctx.Value(oauth.ClaimsContext).(map[string]string)
	if !ok {
		return nil
	}
	return &quota.Claims{
		Subject: m["sub"],
		Role:    model.Role(m["role"]),
		Plan:    model.Plan(m["plan"]),
	}
}

// MasterOnly admits master accounts and nobody else. It must run after Owner
// or Authenticated.
func MasterOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || id.Role != model.RoleMaster {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EnforceFreeLimit gates a resource creation behind the free-plan quota. It
// runs after identity resolution and before the handler writes anything; on
// allow it performs no write itself.
func EnforceFreeLimit(app app.App, resource model.ResourceKind, count quota.CountFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				httpx.InvalidOwner(w, r)
				return
			}

			err := quota.Check(r.Context(), id, resource, app.Store, count)
			var exceeded *quota.ExceededError
			switch {
			case errors.As(err, &exceeded):
				log.Debugf("quota.%s: %s", resource, err)
				httpx.QuotaExceeded(w, r, exceeded)
				return
			case err != nil:
				httpx.LogInternalError(w, "quota.check", err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
