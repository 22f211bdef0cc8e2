package middle

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"keepalive/internals/identity"
	"keepalive/pkg/apperror"
	"keepalive/pkg/utils"
)

type userCtxKeyType struct{}

var userCtxKey = userCtxKeyType{}

type AuthenticatedUser struct {
	UserID string
	Email  string
}

type AuthMiddleware struct {
	verifier identity.Verifier
	logger   zerolog.Logger
}

func NewAuthMiddleware(verifier identity.Verifier, logger *zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

func (a *AuthMiddleware) Handle(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetReqID(ctx)

		token := extractToken(r)
		if token == "" {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "missing Authorization header")
			return
		}

		id, err := a.verifier.VerifyToken(ctx, token)
		if err != nil {
			a.logger.Debug().Err(err).Str("request_id", reqID).Msg("token rejected")
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "Unauthorized")
			return
		}
		if id.UserID == "" {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "Unauthorized")
			return
		}

		authUser := &AuthenticatedUser{
			UserID: id.UserID,
			Email:  id.Email,
		}

		newCtx := context.WithValue(ctx, userCtxKey, authUser)
		next.ServeHTTP(w, r.WithContext(newCtx))
	}

	return http.HandlerFunc(fn)
}

// extractToken accepts "Bearer <token>" as well as the bare token.
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}

	scheme, rest, found := strings.Cut(authHeader, " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return authHeader
}

func UserFromContext(ctx context.Context) (*AuthenticatedUser, bool) {
	user, ok := ctx.Value(userCtxKey).(*AuthenticatedUser)
	return user, ok
}

// WithUser stores an already verified user on ctx.
func WithUser(ctx context.Context, user *AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}
