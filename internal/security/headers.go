// Package security provides security middleware for the Nexa Guard API.
package security

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// apiCSP is the policy for JSON responses; nothing is rendered from them.
const apiCSP = "default-src 'none'; connect-src 'self' ws: wss:; frame-ancestors 'none'"

// PageCSP is set by the few handlers that serve self-contained HTML with
// inline script and style.
const PageCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:; frame-ancestors 'none'"

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "X-Request-ID"}, ", ")
)

var staticHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
}

// HeadersMiddleware sets hardening headers and the API content policy.
// HTML handlers override Content-Security-Policy with PageCSP.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range staticHeaders {
			h.Set(kv[0], kv[1])
		}
		h.Set("Content-Security-Policy", apiCSP)
		c.Next()
	}
}

// Origins is a browser origin allow list. An empty list, or one containing
// "*", allows every origin.
type Origins struct {
	list     []string
	wildcard bool
}

// NewOrigins builds an allow list, ignoring blank entries.
func NewOrigins(list []string) Origins {
	var o Origins
	for _, s := range list {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		switch s {
		case "":
		case "*":
			o.wildcard = true
		default:
			o.list = append(o.list, s)
		}
	}
	if len(o.list) == 0 {
		o.wildcard = true
	}
	return o
}

// Any reports whether every origin is allowed.
func (o Origins) Any() bool { return o.wildcard }

// Allows reports whether origin may call the API.
func (o Origins) Allows(origin string) bool {
	return o.wildcard || slices.Contains(o.list, origin)
}

// CORSMiddleware answers preflights and echoes allowed origins. Credentials
// are only advertised for an explicit allow list.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	origins := NewOrigins(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && origins.Allows(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", "86400")
			if !origins.Any() {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
