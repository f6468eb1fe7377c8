package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performRequest(router *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(seen *string) *gin.Engine {
		router := gin.New()
		router.Use(CorrelationID())
		router.GET("/test", func(c *gin.Context) {
			*seen = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("MintsIDWhenAbsent", func(t *testing.T) {
		var seen string
		rr := performRequest(newRouter(&seen), nil)

		require.Equal(t, http.StatusOK, rr.Code)
		echoed := rr.Header().Get(CorrelationIDHeader)
		require.NotEmpty(t, echoed)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err)
		assert.Equal(t, echoed, seen)
	})

	t.Run("KeepsCallerSuppliedID", func(t *testing.T) {
		var seen string
		rr := performRequest(newRouter(&seen), map[string]string{
			CorrelationIDHeader: "caller-id-42",
		})

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "caller-id-42", rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "caller-id-42", seen)
	})
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("EmptyWithoutMiddleware", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Empty(t, GetCorrelationID(c))
	})

	t.Run("EmptyWhenValueIsNotAString", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 12345)
		assert.Empty(t, GetCorrelationID(c))
	})
}
