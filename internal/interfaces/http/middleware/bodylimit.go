package middleware

import (
	"net/http"

	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit answers 413 when Content-Length is over maxBytes. Chunked bodies
// have no length up front, so reads past maxBytes fail inside the binder
// instead. maxBytes <= 0 turns the check off.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abort(c, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
