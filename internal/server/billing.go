package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/receptionist/internal/billing/domain"
	"go.uber.org/zap"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBodyBytes = 1 << 20

type checkoutRequest struct {
	PriceID string `json:"price_id"`
}

type portalRequest struct {
	ReturnURL string `json:"return_url"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.billingSvc.Checkout(c.Request.Context(), billingdomain.CheckoutRequest{
		PriceID: strings.TrimSpace(req.PriceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreatePortalSession(c *gin.Context) {
	var req portalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	url, err := s.billingSvc.Portal(c.Request.Context(), strings.TrimSpace(req.ReturnURL))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		AbortWithError(c, newValidationError("body", "invalid_payload", "unreadable body"))
		return
	}

	if err := s.billingSvc.HandleWebhook(c.Request.Context(), payload, c.Request.Header); err != nil {
		if !errors.Is(err, billingdomain.ErrInvalidSignature) {
			s.log.Error("stripe webhook failed", zap.Error(err))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
