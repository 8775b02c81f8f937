package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// UserResolver looks up the account behind a verified token subject.
// *repository.Repository satisfies it.
type UserResolver interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthConfig holds configuration for the authentication middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Codec   *auth.TokenCodec
	Users   UserResolver
	Metrics metrics.Recorder
	// Now defaults to time.Now. Overridable for expiry tests.
	Now func() time.Time
}

// Authenticate returns middleware that resolves the request's identity
// from a bearer token. It never rejects: any failure along the way
// leaves the request unauthenticated and passes it on, so public
// endpoints behave the same with a bad token as with none at all.
// Enforcement is RequireAuth's job.
//
// An identity is attached only after the full chain holds: valid
// signature, unexpired claims, known account, account enabled.
// Running the middleware twice is a no-op.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IdentityFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := cfg.Codec.Verify(token)
			if err != nil {
				reason := "malformed"
				if errors.Is(err, auth.ErrTokenSignatureInvalid) {
					reason = "bad_signature"
				}
				recorder.IncTokenRejected(reason)
				logTokenRejected(cfg.Logger, r, reason)
				next.ServeHTTP(w, r)
				return
			}

			if claims.Expired(now()) {
				recorder.IncTokenRejected("expired")
				logTokenRejected(cfg.Logger, r, "expired")
				next.ServeHTTP(w, r)
				return
			}

			user, err := cfg.Users.GetUserByUsername(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					recorder.IncTokenRejected("unknown_user")
					logTokenRejected(cfg.Logger, r, "unknown_user")
				} else {
					cfg.Logger.Error("identity lookup failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			if !user.Enabled {
				recorder.IncTokenRejected("disabled")
				logTokenRejected(cfg.Logger, r, "disabled")
				next.ServeHTTP(w, r)
				return
			}

			identity := &model.Identity{
				UserID:   user.ID,
				Username: user.Username,
				Enabled:  user.Enabled,
			}
			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth returns middleware that rejects unauthenticated requests.
// Must run after Authenticate. The 401 body is identical for every
// failure mode, down from missing header to disabled account; the
// actual reason is only in the server logs.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IdentityFromContext(r.Context()) == nil {
				logger.Warn("unauthenticated request rejected",
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("ip", r.RemoteAddr),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header.
// Only the Bearer scheme is recognized; anything else reads as absent.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func logTokenRejected(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("token rejected",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// The same body is used for every auth failure to prevent probing.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Authentication required"}}`))
}
