package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const principalHeader = "X-Principal-ID"
const principalKey = "principal"

// principalMiddleware extracts the already-authenticated principal
// identifier. Authentication itself happens upstream; requests that
// reach this service without a principal are rejected.
func principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := c.GetHeader(principalHeader)
		if principal == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: ErrorDetail{
					Code:    "MISSING_PRINCIPAL",
					Message: "X-Principal-ID header is required",
				},
			})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func principalFrom(c *gin.Context) string {
	return c.GetString(principalKey)
}

// CORS middleware for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Principal-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
