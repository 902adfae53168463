package identity

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/receptionist/internal/observability/context"
)

// GinMiddleware authenticates the bearer token and stores the identity on the
// request context. onError decides the response for rejected requests.
func GinMiddleware(v *Verifier, onError func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		id, err := v.Verify(raw)
		if err != nil {
			onError(c, err)
			return
		}

		ctx := WithIdentity(c.Request.Context(), id)
		ctx = obscontext.WithOwner(ctx, id.Email, id.BusinessID)
		c.Request = c.Request.WithContext(ctx)
		if id.BusinessID != "" {
			c.Set("business_id", id.BusinessID)
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
