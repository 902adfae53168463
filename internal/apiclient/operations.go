package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/receptionist/internal/activation"
	"github.com/smallbiznis/receptionist/internal/onboarding"
)

func (c *Client) CreateBusiness(ctx context.Context, in onboarding.CreateBusinessInput) (string, error) {
	req := map[string]string{
		"name":        in.Name,
		"industry":    in.Industry,
		"description": in.Description,
		"timezone":    in.Timezone,
	}
	var resp dataEnvelope[businessPayload]
	if err := c.do(ctx, http.MethodPost, "/api/business", req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("create business: empty id")
	}
	return resp.Data.ID, nil
}

// Profile fields are omitted when blank so a resumed session, which never
// saw them, leaves the stored values alone.
type updateBusinessRequest struct {
	Name           string           `json:"name,omitempty"`
	Industry       string           `json:"industry,omitempty"`
	Description    string           `json:"description,omitempty"`
	PhoneNumber    string           `json:"phone_number"`
	Timezone       string           `json:"timezone"`
	GreetingStyle  string           `json:"greeting_style"`
	BusinessHours  string           `json:"business_hours"`
	CommonServices string           `json:"common_services"`
	FAQs           []onboarding.FAQ `json:"faqs"`
}

func (c *Client) UpdateBusiness(ctx context.Context, businessID string, update onboarding.BusinessUpdate) error {
	if strings.TrimSpace(businessID) == "" {
		return fmt.Errorf("update business: %w", onboarding.ErrValidation)
	}
	faqs := update.FAQs
	if faqs == nil {
		faqs = []onboarding.FAQ{}
	}
	req := updateBusinessRequest{
		Name:           update.Name,
		Industry:       update.Industry,
		Description:    update.Description,
		PhoneNumber:    update.PhoneNumber,
		Timezone:       update.Timezone,
		GreetingStyle:  string(update.GreetingStyle),
		BusinessHours:  update.BusinessHours,
		CommonServices: update.CommonServices,
		FAQs:           faqs,
	}
	return c.do(ctx, http.MethodPut, "/api/business/"+url.PathEscape(businessID), req, nil)
}

func (c *Client) SearchNumbers(ctx context.Context, areaCode string) ([]onboarding.Candidate, error) {
	path := "/api/numbers/search"
	if areaCode = strings.TrimSpace(areaCode); areaCode != "" {
		path += "?" + url.Values{"area_code": {areaCode}}.Encode()
	}
	var resp dataEnvelope[[]onboarding.Candidate]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type purchaseRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	BusinessID  string `json:"businessId"`
}

func (c *Client) PurchaseNumber(ctx context.Context, number, businessID string) (string, error) {
	var resp dataEnvelope[struct {
		PhoneNumber string `json:"phoneNumber"`
	}]
	if err := c.do(ctx, http.MethodPost, "/api/numbers/buy", purchaseRequest{PhoneNumber: number, BusinessID: businessID}, &resp); err != nil {
		return "", err
	}
	if resp.Data.PhoneNumber != "" {
		return resp.Data.PhoneNumber, nil
	}
	return number, nil
}

func (c *Client) ReleaseNumber(ctx context.Context, businessID string) error {
	req := map[string]string{"businessId": businessID}
	return c.do(ctx, http.MethodPost, "/api/numbers/release", req, nil)
}

func (c *Client) CreateCheckoutSession(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/stripe/checkout", nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("checkout: empty url")
	}
	return resp.URL, nil
}

// CalendarAuthorizationURL is the browser entry point of the Google
// Calendar grant. The API correlates the callback through business_id.
func (c *Client) CalendarAuthorizationURL(businessID string) (string, error) {
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return "", fmt.Errorf("calendar authorization: business id required: %w", onboarding.ErrValidation)
	}
	return c.baseURL + "/oauth/google/start?" + url.Values{"business_id": {businessID}}.Encode(), nil
}

func (c *Client) GetBusiness(ctx context.Context) (activation.Record, error) {
	var resp dataEnvelope[*businessPayload]
	if err := c.do(ctx, http.MethodGet, "/api/business/me", nil, &resp); err != nil {
		return activation.Record{}, err
	}
	if resp.Data == nil {
		return activation.Record{}, ErrNoBusiness
	}
	return resp.Data.record(), nil
}

func (c *Client) SetReceptionistEnabled(ctx context.Context, enabled bool) (activation.Record, error) {
	var resp dataEnvelope[businessPayload]
	req := map[string]bool{"enabled": enabled}
	if err := c.do(ctx, http.MethodPost, "/api/business/receptionist/toggle", req, &resp); err != nil {
		return activation.Record{}, err
	}
	return resp.Data.record(), nil
}
