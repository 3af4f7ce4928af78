package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	shipment := `{"carrierCode":"ARAS","carrierEventId":"ev-1","trackingNumber":"TRK1","status":"DELIVERED"}`
	padded := `{"carrierCode":"ARAS","description":"` + strings.Repeat("x", 256) + `"}`

	tests := []struct {
		name       string
		body       string
		streamed   bool
		wantStatus int
		wantBody   string
	}{
		{name: "shipment event fits", body: shipment, wantStatus: http.StatusAccepted},
		{name: "declared oversize body", body: padded, wantStatus: http.StatusRequestEntityTooLarge, wantBody: "REQUEST_TOO_LARGE"},
		{name: "streamed oversize body", body: padded, streamed: true, wantStatus: http.StatusRequestEntityTooLarge, wantBody: "streamed"},
		{name: "streamed body within limit", body: shipment, streamed: true, wantStatus: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(BodyLimit(128))
			engine.POST("/webhooks/shipments", func(c *gin.Context) {
				var payload map[string]any
				if err := c.ShouldBindJSON(&payload); err != nil {
					if BodyTooLarge(err) {
						c.String(http.StatusRequestEntityTooLarge, "streamed")
						return
					}
					c.String(http.StatusBadRequest, err.Error())
					return
				}
				c.Status(http.StatusAccepted)
			})

			req := httptest.NewRequest(http.MethodPost, "/webhooks/shipments", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.streamed {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestBodyLimit_BodilessRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(BodyLimit(8))
	engine.GET("/outbox/stats", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outbox/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
