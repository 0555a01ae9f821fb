package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

// Auth validates a bearer token against its live redis session and seeds
// the request context with the principal.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r.Context(), r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), logg, principal)))
		})
	}
}

// OptionalAuth populates the principal when a valid token is presented and
// lets the request through as a guest otherwise.
func OptionalAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if BearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			principal, err := authenticate(r.Context(), r, cfg, verifier)
			if err != nil {
				if logg != nil {
					logg.Debug(r.Context(), "optional auth ignored invalid token")
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), logg, principal)))
		})
	}
}

func authenticate(ctx context.Context, r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (Principal, error) {
	token := BearerToken(r)
	if token == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if verifier != nil {
		ok, err := verifier.HasSession(ctx, claims.ID)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return Principal{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Role:     claims.Role,
		AccessID: claims.ID,
	}, nil
}

func attach(ctx context.Context, logg *logger.Logger, p Principal) context.Context {
	ctx = WithPrincipal(ctx, p)
	if logg != nil {
		ctx = logg.WithUserID(ctx, p.UserID.String())
		ctx = logg.WithActorRole(ctx, string(p.Role))
	}
	return ctx
}
