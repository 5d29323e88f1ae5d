package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// Setup initializes Goth providers and the OAuth state session store based
// on environment variables. It is safe to call multiple times; providers
// will just be re-registered.
func Setup() {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "8000")
	}

	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		),
	)

	// OAuth state lives in Redis so callbacks survive process restarts.
	host, port := "127.0.0.1", 6379
	username, password := "", ""
	if cacheClient := cache.GetClient(); cacheClient != nil {
		cacheOpts := cacheClient.Options()
		if cacheOpts.Addr != "" {
			if h, p, err := net.SplitHostPort(cacheOpts.Addr); err == nil {
				host = h
				if parsed, e := strconv.Atoi(p); e == nil {
					port = parsed
				}
			} else {
				host = cacheOpts.Addr
			}
		}
		username = cacheOpts.Username
		password = cacheOpts.Password
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
}
