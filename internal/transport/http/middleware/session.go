package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/service"
)

// SessionResolver maps an authenticated identity onto its profile.
type SessionResolver interface {
	ResolveSession(ctx context.Context, authIdentityID uuid.UUID) (domain.Session, error)
}

// Session resolves the caller's profile once per request. It must run after
// Auth. Callers without a profile get 403 PROFILE_REQUIRED.
func Session(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := resolver.ResolveSession(r.Context(), GetAuthIdentityID(r.Context()))
			if err != nil {
				if errors.Is(err, service.ErrProfileNotFound) {
					writeError(w, http.StatusForbidden, "PROFILE_REQUIRED", "Create your profile first")
					return
				}
				logger.Error("resolving session", "error", err)
				writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the resolved session from request context.
func GetSession(ctx context.Context) domain.Session {
	sess, _ := ctx.Value(SessionKey).(domain.Session)
	return sess
}
