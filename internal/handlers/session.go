package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/yukikurage/consultant-worklog/internal/config"
)

// NewSessionStore uses redis when it is configured and signed cookies otherwise.
func NewSessionStore(cfg *config.ServerConfig) (sessions.Store, error) {
	var st sessions.Store
	if cfg.Redis.Enabled() {
		rs, err := redisStore.NewStore(
			10,                         // Redis pool size
			"tcp",                      // network type
			cfg.Redis.Addr(),           // Redis address from config
			"",                         // username (empty for default user)
			cfg.Redis.Password,         // password (empty = no password)
			[]byte(cfg.Session.Secret), // authentication key
		)
		if err != nil {
			return nil, err
		}
		st = rs
	} else {
		st = cookie.NewStore([]byte(cfg.Session.Secret))
	}

	st.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Release(), // true in production (HTTPS)
		SameSite: http.SameSiteLaxMode,
	})
	return st, nil
}
