package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/receptionist/internal/identity"
)

// AuthRequired rejects requests without a valid dashboard bearer token.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return identity.GinMiddleware(s.verifier, func(c *gin.Context, err error) {
		AbortWithError(c, ErrUnauthorized)
	})
}
