package middleware

import (
	"context"
	"net/http"

	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/pkg/types/common"
)

type sessionKey struct{}

// Session assigns every client a session id carried in a cookie. A missing
// or malformed cookie is replaced with a fresh id.
func Session(cfg config.SessionConfig) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = config.DefaultSessionCookieName
	}
	maxAge := int(cfg.TTL.Seconds())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id common.SessionID
			if c, err := r.Cookie(name); err == nil {
				if parsed, ok := common.ParseSessionID(c.Value); ok {
					id = parsed
				}
			}
			if id == "" {
				id = common.NewSessionID()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    string(id),
					Path:     "/",
					MaxAge:   maxAge,
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), string(id))))
		})
	}
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// ContextGetSessionID returns the session id set by Session, or "".
func ContextGetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
