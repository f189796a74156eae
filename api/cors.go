package api

import (
	"chatrelay/common"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowedOrigins holds the parsed set of allowed origins for CORS checks.
type AllowedOrigins struct {
	origins map[string]struct{}
}

// IsAllowed checks if the given origin is in the allowlist.
// Returns true if origin is empty (non-browser clients) or if it matches an allowed origin.
func (ao *AllowedOrigins) IsAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := ao.origins[origin]
	return ok
}

// NewAllowedOrigins validates each origin. An origin must be a URL with scheme
// and host, and no path, query or fragment.
func NewAllowedOrigins(originList []string) (*AllowedOrigins, error) {
	origins := make(map[string]struct{})

	for _, origin := range originList {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
		}

		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid origin %q: must have scheme and host", origin)
		}

		if parsed.Path != "" {
			return nil, fmt.Errorf("invalid origin %q: must not have path", origin)
		}

		if parsed.RawQuery != "" {
			return nil, fmt.Errorf("invalid origin %q: must not have query", origin)
		}

		if parsed.Fragment != "" {
			return nil, fmt.Errorf("invalid origin %q: must not have fragment", origin)
		}

		origins[fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)] = struct{}{}
	}

	return &AllowedOrigins{origins: origins}, nil
}

// ParseAllowedOrigins parses a comma-separated list of origins.
func ParseAllowedOrigins(originsStr string) (*AllowedOrigins, error) {
	if originsStr == "" {
		return &AllowedOrigins{origins: map[string]struct{}{}}, nil
	}
	return NewAllowedOrigins(strings.Split(originsStr, ","))
}

// BuildDefaultAllowedOrigins allows the relay's own port on loopback, plus the
// web UI dev server in development.
func BuildDefaultAllowedOrigins(port int) *AllowedOrigins {
	origins := make(map[string]struct{})

	origins[fmt.Sprintf("http://localhost:%d", port)] = struct{}{}
	origins[fmt.Sprintf("http://127.0.0.1:%d", port)] = struct{}{}
	origins[fmt.Sprintf("http://[::1]:%d", port)] = struct{}{}

	if os.Getenv("CHATRELAY_APP_ENV") == "development" {
		origins["http://localhost:3000"] = struct{}{}
		origins["http://127.0.0.1:3000"] = struct{}{}
	}

	return &AllowedOrigins{origins: origins}
}

// GetAllowedOrigins resolves the allowlist: CHATRELAY_ALLOWED_ORIGINS first,
// then server.allowed_origins from config, then the defaults.
func GetAllowedOrigins(config common.ServerConfig) (*AllowedOrigins, error) {
	if envOrigins := os.Getenv("CHATRELAY_ALLOWED_ORIGINS"); envOrigins != "" {
		return ParseAllowedOrigins(envOrigins)
	}
	if len(config.AllowedOrigins) > 0 {
		return NewAllowedOrigins(config.AllowedOrigins)
	}
	return BuildDefaultAllowedOrigins(config.Port), nil
}

// CORSMiddleware returns a Gin middleware that enforces Origin allowlist and sets CORS headers.
func CORSMiddleware(allowedOrigins *AllowedOrigins) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" {
			if !allowedOrigins.IsAllowed(origin) {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}

			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", requestIdHeader)

			if c.Request.Method == http.MethodOptions {
				c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,"+requestIdHeader)
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}

		c.Next()
	}
}
