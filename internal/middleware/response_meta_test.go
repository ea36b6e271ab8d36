package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/horario-api/pkg/middleware/requestid"
)

func TestResponseMetaCarriesCacheHitAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured map[string]interface{}

	router := gin.New()
	router.Use(requestid.Middleware(), WithResponseMeta())
	router.GET("/timetable", func(c *gin.Context) {
		SetCacheHit(c, true)
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/timetable", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, captured[cacheHitKey])
	require.Equal(t, "req-1", captured["request_id"])
	require.Contains(t, captured, "processing_time_ms")
}

func TestSetCacheHitWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	require.Nil(t, ExtractMeta(c))
	SetCacheHit(c, false)
	require.Equal(t, false, ExtractMeta(c)[cacheHitKey])
}
