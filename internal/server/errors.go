package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/receptionist/internal/billing/domain"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	calendardomain "github.com/smallbiznis/receptionist/internal/calendar/domain"
	calldomain "github.com/smallbiznis/receptionist/internal/call/domain"
	"github.com/smallbiznis/receptionist/internal/identity"
	phonedomain "github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds error_type and error_code to the request logger.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

// errorRule maps any of its sentinels to one response. Rules are checked in
// order, so payment and conflict outcomes win over generic classes.
type errorRule struct {
	targets []error
	status  int
	typ     string
	message string
}

func rule(status int, typ, message string, targets ...error) errorRule {
	return errorRule{targets: targets, status: status, typ: typ, message: message}
}

var errorRules = []errorRule{
	rule(http.StatusUnauthorized, "unauthorized", "unauthorized",
		ErrUnauthorized, businessdomain.ErrUnauthenticated, identity.ErrMissingToken, identity.ErrInvalidToken),
	rule(http.StatusPaymentRequired, "payment_failed", "the number fee could not be charged",
		phonedomain.ErrPaymentFailed),
	rule(http.StatusForbidden, "forbidden", "forbidden",
		ErrForbidden, businessdomain.ErrForbidden),
	rule(http.StatusForbidden, "invalid_signature", "request signature does not match",
		calldomain.ErrInvalidSignature),
	rule(http.StatusConflict, "number_unavailable", "the selected number is no longer available",
		phonedomain.ErrNumberUnavailable),
	rule(http.StatusConflict, "number_already_assigned", "the business already has a phone number",
		phonedomain.ErrNumberAlreadyAssigned),
	rule(http.StatusConflict, "conflict", "conflict",
		ErrConflict),
	rule(http.StatusNotFound, "not_found", "not found",
		ErrNotFound, businessdomain.ErrNotFound, gorm.ErrRecordNotFound,
		calldomain.ErrBusinessNotFound, calldomain.ErrCallNotFound, calldomain.ErrUnknownNumber),
	rule(http.StatusTooManyRequests, "rate_limited", "too many requests",
		phonedomain.ErrRateLimited),
	rule(http.StatusServiceUnavailable, "service_unavailable", "service unavailable",
		ErrServiceUnavailable,
		phonedomain.ErrProviderUnavailable,
		billingdomain.ErrNotConfigured,
		billingdomain.ErrGatewayFailed,
		calendardomain.ErrNotConfigured,
		calldomain.ErrCallbackNotEnabled),
}

// validationRule describes a 400 for a single sentinel. An empty field is
// derived from the code by dropping its invalid_ prefix.
type validationRule struct {
	target  error
	field   string
	message string
}

var validationRules = []validationRule{
	{target: ErrInvalidRequest, field: "request", message: "invalid request"},
	{target: businessdomain.ErrInvalidName, message: "business name is required"},
	{target: businessdomain.ErrInvalidID},
	{target: businessdomain.ErrInvalidTimezone},
	{target: businessdomain.ErrInvalidGreetingStyle},
	{target: businessdomain.ErrInvalidPhoneNumber, message: "phone number must be in E.164 format"},
	{target: businessdomain.ErrInvalidSubscriptionStatus},
	{target: businessdomain.ErrPhoneNumberRequired, field: "phone_number", message: "a phone number is required before the receptionist can be enabled"},
	{target: phonedomain.ErrInvalidAreaCode, message: "area code must be 3 digits or a 5 digit zip code"},
	{target: phonedomain.ErrInvalidPhoneNumber, message: "phone number must be in E.164 format"},
	{target: billingdomain.ErrBusinessRequired, field: "business_id", message: "create a business first"},
	{target: billingdomain.ErrUnknownPrice, field: "price_id"},
	{target: billingdomain.ErrInvalidSignature, field: "Stripe-Signature"},
	{target: billingdomain.ErrInvalidPayload, field: "body"},
	{target: calendardomain.ErrInvalidBusinessID},
	{target: calendardomain.ErrInvalidState},
	{target: calldomain.ErrInvalidCallSID, field: "CallSid"},
	{target: calldomain.ErrInvalidCallStatus, field: "CallStatus"},
	{target: calldomain.ErrPhoneRequired, field: "phone_number", message: "phone number is required"},
}

func (r validationRule) detail() ValidationError {
	code := r.target.Error()
	field := r.field
	if field == "" {
		field = strings.TrimPrefix(code, "invalid_")
	}
	message := r.message
	if message == "" {
		message = "invalid value"
	}
	return ValidationError{Field: field, Code: code, Message: message}
}

var internalError = errorPayload{Type: "internal_error", Message: "internal server error"}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalError
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: "validation error", Errors: vErr.Errors}
	}
	for _, rule := range validationRules {
		if errors.Is(err, rule.target) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors:  []ValidationError{rule.detail()},
			}
		}
	}

	for _, rule := range errorRules {
		for _, target := range rule.targets {
			if errors.Is(err, target) {
				return rule.status, errorPayload{Type: rule.typ, Message: rule.message}
			}
		}
	}
	return http.StatusInternalServerError, internalError
}
