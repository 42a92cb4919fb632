package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/lenana-drops/lenana/internal/shared"
)

// Authenticator resolves bearer tokens into request actors.
type Authenticator struct {
	logger  *slog.Logger
	service *Service
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(logger *slog.Logger, service *Service) *Authenticator {
	return &Authenticator{logger: logger, service: service}
}

// Middleware attaches the actor to the request context when a valid bearer
// token is presented. Requests without a token pass through anonymous; the
// rbac guard rejects them at the protected routes.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, ok, err := a.service.Resolve(r.Context(), token)
		if err != nil {
			a.logger.Error("resolve token", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
