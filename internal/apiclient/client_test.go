package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/receptionist/internal/activation"
	"github.com/smallbiznis/receptionist/internal/onboarding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, register func(r *gin.Engine), cfg Config) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer tok_123" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"type": "unauthorized", "message": "unauthorized"}})
			return
		}
		c.Next()
	})
	register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/"
	if cfg.Token == "" {
		cfg.Token = "tok_123"
	}
	client, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = New(Config{BaseURL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestCreateAndUpdateBusiness(t *testing.T) {
	var update map[string]any
	client := newTestClient(t, func(r *gin.Engine) {
		r.POST("/api/business", func(c *gin.Context) {
			var req map[string]string
			require.NoError(t, c.ShouldBindJSON(&req))
			assert.Equal(t, "Acme Dental", req["name"])
			assert.Equal(t, "America/New_York", req["timezone"])
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": "42", "name": req["name"]}})
		})
		r.PUT("/api/business/:id", func(c *gin.Context) {
			assert.Equal(t, "42", c.Param("id"))
			require.NoError(t, c.ShouldBindJSON(&update))
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": "42"}})
		})
	}, Config{})

	id, err := client.CreateBusiness(context.Background(), onboarding.CreateBusinessInput{Name: "Acme Dental", Timezone: "America/New_York"})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	err = client.UpdateBusiness(context.Background(), id, onboarding.BusinessUpdate{
		Name:          "Acme Dental",
		PhoneNumber:   "+12125551234",
		GreetingStyle: onboarding.GreetingFriendly,
	})
	require.NoError(t, err)
	assert.Equal(t, "+12125551234", update["phone_number"])
	assert.Equal(t, "friendly", update["greeting_style"])
	assert.Equal(t, []any{}, update["faqs"])
}

func TestUpdateBusinessLeavesUnsetProfileFields(t *testing.T) {
	var update map[string]any
	client := newTestClient(t, func(r *gin.Engine) {
		r.PUT("/api/business/:id", func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&update))
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": "42"}})
		})
	}, Config{})

	err := client.UpdateBusiness(context.Background(), "42", onboarding.BusinessUpdate{
		PhoneNumber: "+12125551234",
		Timezone:    "America/Chicago",
	})
	require.NoError(t, err)
	assert.NotContains(t, update, "name")
	assert.NotContains(t, update, "industry")
	assert.NotContains(t, update, "description")
	assert.Equal(t, "America/Chicago", update["timezone"])
}

func TestErrorsMapToOnboardingSignals(t *testing.T) {
	client := newTestClient(t, func(r *gin.Engine) {
		r.POST("/api/numbers/buy", func(c *gin.Context) {
			c.JSON(http.StatusConflict, gin.H{"error": gin.H{"type": "number_unavailable", "message": "the selected number is no longer available"}})
		})
		r.POST("/api/business", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"type":    "validation_error",
				"message": "validation error",
				"errors":  []gin.H{{"field": "name", "code": "invalid_name", "message": "name is required"}},
			}})
		})
		r.POST("/api/numbers/release", func(c *gin.Context) {
			c.Status(http.StatusServiceUnavailable)
		})
	}, Config{})

	_, err := client.PurchaseNumber(context.Background(), "+12125551234", "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, onboarding.ErrConflict)
	assert.NotErrorIs(t, err, onboarding.ErrPayment)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "number_unavailable", apiErr.Type)

	_, err = client.CreateBusiness(context.Background(), onboarding.CreateBusinessInput{})
	assert.ErrorIs(t, err, onboarding.ErrValidation)
	require.True(t, errors.As(err, &apiErr))
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "name", apiErr.Fields[0].Field)

	err = client.ReleaseNumber(context.Background(), "42")
	assert.ErrorIs(t, err, onboarding.ErrUnavailable)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestErrorIs(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusConflict, onboarding.ErrConflict},
		{http.StatusPaymentRequired, onboarding.ErrPayment},
		{http.StatusBadRequest, onboarding.ErrValidation},
		{http.StatusNotFound, onboarding.ErrNotFound},
		{http.StatusUnauthorized, onboarding.ErrUnauthorized},
		{http.StatusForbidden, onboarding.ErrUnauthorized},
		{http.StatusTooManyRequests, onboarding.ErrUnavailable},
		{http.StatusBadGateway, onboarding.ErrUnavailable},
	}
	for _, tt := range tests {
		err := error(&Error{Status: tt.status})
		assert.ErrorIs(t, err, tt.target, "status %d", tt.status)
	}
	assert.NotErrorIs(t, error(&Error{Status: http.StatusConflict}), onboarding.ErrPayment)
}

func TestSearchNumbers(t *testing.T) {
	var queries []string
	client := newTestClient(t, func(r *gin.Engine) {
		r.GET("/api/numbers/search", func(c *gin.Context) {
			queries = append(queries, c.Request.URL.RawQuery)
			if c.Query("area_code") == "212" {
				c.JSON(http.StatusOK, gin.H{"data": []gin.H{}})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": []gin.H{{"phoneNumber": "+13055550100", "friendlyName": "(305) 555-0100", "region": "FL"}}})
		})
	}, Config{})

	found, err := client.SearchNumbers(context.Background(), "212")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = client.SearchNumbers(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []onboarding.Candidate{{PhoneNumber: "+13055550100", FriendlyName: "(305) 555-0100", Region: "FL"}}, found)
	assert.Equal(t, []string{"area_code=212", ""}, queries)
}

func TestCheckoutAndCalendarURL(t *testing.T) {
	client := newTestClient(t, func(r *gin.Engine) {
		r.POST("/api/stripe/checkout", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"url": "https://checkout.stripe.com/c/pay/cs_1", "session_id": "cs_1"})
		})
	}, Config{})

	url, err := client.CreateCheckoutSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", url)

	target, err := client.CalendarAuthorizationURL("42")
	require.NoError(t, err)
	assert.Equal(t, client.baseURL+"/oauth/google/start?business_id=42", target)

	_, err = client.CalendarAuthorizationURL(" ")
	assert.ErrorIs(t, err, onboarding.ErrValidation)
}

func TestActivationBackend(t *testing.T) {
	enabled := true
	client := newTestClient(t, func(r *gin.Engine) {
		view := func() gin.H {
			return gin.H{
				"id":                   "42",
				"phone_number":         "+12125551234",
				"subscription_status":  "active",
				"minutes_used":         10,
				"minutes_limit":        100,
				"receptionist_enabled": enabled,
			}
		}
		r.GET("/api/business/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": view()})
		})
		r.POST("/api/business/receptionist/toggle", func(c *gin.Context) {
			var req struct {
				Enabled bool `json:"enabled"`
			}
			require.NoError(t, c.ShouldBindJSON(&req))
			enabled = req.Enabled
			c.JSON(http.StatusOK, gin.H{"data": view()})
		})
	}, Config{})

	rec, err := client.GetBusiness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, activation.On, activation.Derive(rec))

	toggle := activation.NewToggle(client, nil, nil)
	require.NoError(t, toggle.Load(context.Background()))
	require.NoError(t, toggle.Set(context.Background(), false))
	assert.Equal(t, activation.Off, toggle.Display())
	assert.False(t, enabled)
}

func TestGetBusinessWithoutOne(t *testing.T) {
	client := newTestClient(t, func(r *gin.Engine) {
		r.GET("/api/business/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": nil})
		})
	}, Config{})

	_, err := client.GetBusiness(context.Background())
	assert.ErrorIs(t, err, ErrNoBusiness)
}

func TestUnauthorized(t *testing.T) {
	client := newTestClient(t, func(r *gin.Engine) {
		r.GET("/api/business/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": nil})
		})
	}, Config{Token: "wrong"})

	_, err := client.GetBusiness(context.Background())
	assert.ErrorIs(t, err, onboarding.ErrUnauthorized)
}

func TestTimeout(t *testing.T) {
	client := newTestClient(t, func(r *gin.Engine) {
		r.GET("/api/numbers/search", func(c *gin.Context) {
			select {
			case <-c.Request.Context().Done():
			case <-time.After(2 * time.Second):
			}
			c.JSON(http.StatusOK, gin.H{"data": []gin.H{}})
		})
	}, Config{Timeout: 50 * time.Millisecond})

	_, err := client.SearchNumbers(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, onboarding.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
