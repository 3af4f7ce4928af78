package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRequestIDRouter(seen *string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		*seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected func(t *testing.T, id string)
	}{
		{
			name:   "generates when absent",
			header: "",
			expected: func(t *testing.T, id string) {
				assert.Len(t, id, 32)
			},
		},
		{
			name:   "propagates caller id",
			header: "carrier-abc-123",
			expected: func(t *testing.T, id string) {
				assert.Equal(t, "carrier-abc-123", id)
			},
		},
		{
			name:   "truncates oversized id",
			header: strings.Repeat("a", MaxRequestIDLength+50),
			expected: func(t *testing.T, id string) {
				assert.Len(t, id, MaxRequestIDLength)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			r := newRequestIDRouter(&seen)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			tt.expected(t, seen)
			assert.Equal(t, seen, w.Header().Get(HeaderRequestID))
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	var first, second string
	newRequestIDRouter(&first).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	newRequestIDRouter(&second).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, first, second)
}

func TestSecure(t *testing.T) {
	r := gin.New()
	r.Use(Secure())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}
