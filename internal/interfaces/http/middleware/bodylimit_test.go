package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitEngine(limit int64) *gin.Engine {
	engine := gin.New()
	engine.Use(BodyLimit(limit))
	engine.Any("/queues/orders", func(c *gin.Context) {
		n, err := io.Copy(io.Discard, c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "limit %d", tooLarge.Limit)
			return
		}
		c.String(http.StatusOK, "%d", n)
	})
	return engine
}

func postOrders(engine *gin.Engine, body string, declared int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/queues/orders", strings.NewReader(body))
	req.ContentLength = declared
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBodyLimit(t *testing.T) {
	payload := `[{"increment_id":"100000031"}]`

	t.Run("passes bodies under the cap", func(t *testing.T) {
		w := postOrders(bodyLimitEngine(1024), payload, int64(len(payload)))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "30", w.Body.String())
	})

	t.Run("rejects an oversized declared length before the handler", func(t *testing.T) {
		w := postOrders(bodyLimitEngine(16), payload, int64(len(payload)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "exceeds maximum allowed size")
	})

	t.Run("stops a chunked body at the cap", func(t *testing.T) {
		w := postOrders(bodyLimitEngine(16), payload, -1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "limit 16", w.Body.String())
	})

	t.Run("zero disables the limit", func(t *testing.T) {
		big := strings.Repeat("x", 4096)
		w := postOrders(bodyLimitEngine(0), big, int64(len(big)))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
