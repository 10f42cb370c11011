package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/acadhub/leave-be/internal/auth"
	"github.com/acadhub/leave-be/internal/http/respond"
	"github.com/acadhub/leave-be/internal/leave"
	"github.com/acadhub/leave-be/internal/models"
)

type contextKey string

const userKey contextKey = "current-user"

// Identity verifies the bearer identity token, creates the user on first
// sight (role from the classifier, balance from the role quota), and
// stores the user in the request context.
func Identity(tokens *auth.TokenManager, svc *leave.Service, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			respond.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := tokens.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid identity token")
			return
		}

		user, err := svc.EnsureUser(r.Context(), identity.DisplayName, identity.Email)
		if err != nil {
			logger.Error("ensure user failed", zap.String("email", identity.Email), zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "identity temporarily unavailable")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// UserFrom returns the authenticated user stored by Identity.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}
