//nolint:noctx // Test file uses http.NewRequest for simplicity
package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/aimd54/fanscore/pkg/logger"
)

func setupRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(logger.NewWithWriter("debug", "json", buf)))

	api := router.Group("/api/v1", Identity("X-User-ID"))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return router
}

func TestIdentity(t *testing.T) {
	var buf bytes.Buffer
	router := setupRouter(&buf)

	req, _ := http.NewRequest("GET", "/api/v1/me", http.NoBody)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u1"}`, w.Body.String())
	assert.Contains(t, buf.String(), `"route":"/api/v1/me"`)
}

func TestIdentity_MissingHeader(t *testing.T) {
	var buf bytes.Buffer
	router := setupRouter(&buf)

	req, _ := http.NewRequest("GET", "/api/v1/me", http.NoBody)
	req.Header.Set("X-User-ID", "   ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing X-User-ID header")
	assert.Contains(t, buf.String(), `"status":401`)
}
