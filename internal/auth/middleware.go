package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing token claims in context
	UserContextKey contextKey = "user"
)

// ClaimsVerifier verifies a bearer token
type ClaimsVerifier interface {
	Claims(tokenString string) (*models.TokenClaims, error)
}

// AccountLookup fetches the account behind a token
type AccountLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// GrantLookup lists the catalog codes granted to an account through its active roles
type GrantLookup interface {
	GrantedCodes(ctx context.Context, email string) ([]string, error)
}

// RequireBearer validates the bearer token and injects its claims into the context
func RequireBearer(verifier ClaimsVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := verifier.Claims(strings.TrimSpace(parts[1]))
			if err != nil || claims.Email == "" {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin only lets active admin accounts through. Must run after RequireBearer.
func RequireAdmin(accounts AccountLookup) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			// Read the account fresh so a revoked admin flag takes effect immediately
			acct, err := accounts.GetByEmail(r.Context(), models.NormalizeEmail(claims.Email))
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "account not found")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if !acct.IsAdmin || !acct.IsActive {
				pkghttp.WriteForbidden(w, "forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission only lets callers whose roles grant code through. An empty code
// disables the check. Must run after RequireBearer.
func RequirePermission(grants GrantLookup, code string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if code == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			codes, err := grants.GrantedCodes(r.Context(), models.NormalizeEmail(claims.Email))
			if err != nil {
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			for _, granted := range codes {
				if granted == code {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, "missing permission")
		})
	}
}

// GetClaimsFromContext extracts token claims from request context
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
