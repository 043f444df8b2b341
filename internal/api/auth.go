package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"resort/internal/config"

	"github.com/gin-gonic/gin"
)

const (
	PermReadAvailability = "read:availability"
	PermWriteBookings    = "write:bookings"
	PermAdmin            = "admin"

	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	ctxClientName = "api_client"
)

// Auth checks API keys, per-route permissions and per-key request rates.
type Auth struct {
	enabled     bool
	headerKey   string
	headerExtra string
	clients     map[string]config.APIClientKey
	limiter     *keyLimiter
}

func NewAuth(cfg config.APIConfig) *Auth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	headerKey := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderAPIKey))
	if headerKey == "" {
		headerKey = apiKeyHeaderDefault
	}
	headerExtra := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderExtra))
	if headerExtra == "" {
		headerExtra = apiExtraHeaderDefault
	}

	return &Auth{
		enabled:     cfg.Auth.Enabled,
		headerKey:   headerKey,
		headerExtra: headerExtra,
		clients:     m,
		limiter:     newKeyLimiter(cfg.RateLimit),
	}
}

// RateLimit throttles by API key, falling back to the client IP.
func (a *Auth) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.limiter.enabled() && !a.limiter.allow(a.clientKey(c)) {
			abortError(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// Require authenticates the caller and checks it holds perm.
func (a *Auth) Require(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Next()
			return
		}

		apiKey := strings.TrimSpace(c.GetHeader(a.headerKey))
		extra := strings.TrimSpace(c.GetHeader(a.headerExtra))
		if apiKey == "" || extra == "" {
			abortError(c, http.StatusUnauthorized, "missing api key headers")
			return
		}

		client, ok := a.clients[apiKey]
		if !ok {
			abortError(c, http.StatusUnauthorized, "invalid api key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
			abortError(c, http.StatusUnauthorized, "invalid extra header")
			return
		}
		if !hasPermission(client, perm) {
			abortError(c, http.StatusForbidden, "permission denied")
			return
		}

		c.Set(ctxClientName, client.Name)
		c.Next()
	}
}

// hasPermission treats an empty permission list as allow-all; admin implies every permission.
func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		p = strings.TrimSpace(p)
		if p == required || p == PermAdmin {
			return true
		}
	}
	return false
}

func (a *Auth) clientKey(c *gin.Context) string {
	if apiKey := strings.TrimSpace(c.GetHeader(a.headerKey)); apiKey != "" {
		return apiKey
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return clientKeyUnknown
}
