package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/api/history", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Security-Policy", PageCSP)
		c.String(http.StatusOK, "<html></html>")
	})
	return r
}

func serve(r *gin.Engine, method, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHeadersMiddleware(t *testing.T) {
	r := newRouter(HeadersMiddleware())

	w := serve(r, "GET", "/api/history", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, apiCSP, w.Header().Get("Content-Security-Policy"))
}

func TestHeadersMiddleware_PageOverride(t *testing.T) {
	r := newRouter(HeadersMiddleware())

	w := serve(r, "GET", "/feed", "")
	assert.Equal(t, PageCSP, w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestOrigins(t *testing.T) {
	tests := []struct {
		name   string
		list   []string
		origin string
		allow  bool
		any    bool
	}{
		{"empty allows all", nil, "chrome-extension://abcdef", true, true},
		{"blank entries allow all", []string{" ", ""}, "https://x.example", true, true},
		{"wildcard", []string{"https://a.example", "*"}, "https://x.example", true, true},
		{"listed", []string{"https://a.example"}, "https://a.example", true, false},
		{"trailing slash trimmed", []string{"https://a.example/"}, "https://a.example", true, false},
		{"unlisted", []string{"https://a.example"}, "https://evil.example", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrigins(tt.list)
			assert.Equal(t, tt.allow, o.Allows(tt.origin))
			assert.Equal(t, tt.any, o.Any())
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantOrigin  string
		wantCredits string
	}{
		{"allowed origin", []string{"https://app.example"}, "https://app.example", "https://app.example", "true"},
		{"disallowed origin", []string{"https://app.example"}, "https://evil.example", "", ""},
		{"open list", nil, "https://anything.example", "https://anything.example", ""},
		{"no origin header", nil, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(CORSMiddleware(tt.allowed))

			w := serve(r, "GET", "/api/history", tt.origin)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredits, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORSMiddleware([]string{"*"}))

	w := serve(r, "OPTIONS", "/api/history", "https://app.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"), "no credentials with a wildcard")
}
