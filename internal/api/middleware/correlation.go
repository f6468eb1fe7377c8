package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request identifier across service boundaries
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the identifier is stashed under
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with an identifier, minting one when the
// caller did not supply its own. The identifier is echoed back in the response
// headers so clients can quote it when reporting problems.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" when the
// middleware has not run
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
