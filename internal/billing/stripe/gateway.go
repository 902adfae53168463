package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/smallbiznis/receptionist/internal/billing/domain"
	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
)

const defaultAPIBase = "https://api.stripe.com"

type Config struct {
	SecretKey string
	APIBase   string
}

// Gateway talks to the Stripe REST API with form-encoded requests.
type Gateway struct {
	secretKey  string
	apiBase    string
	httpClient *http.Client
}

func NewGateway(cfg Config, client *http.Client) (*Gateway, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, domain.ErrNotConfigured
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = defaultAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		secretKey:  secret,
		apiBase:    base,
		httpClient: obstracing.WrapHTTPClient(client),
	}, nil
}

// APIError is the error object returned by Stripe.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("stripe: %s (status %d)", e.Message, e.StatusCode)
}

type customerList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type objectRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// FindOrCreateCustomer reuses the first customer registered under the email.
func (g *Gateway) FindOrCreateCustomer(ctx context.Context, req domain.CustomerRequest) (string, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" {
		query := url.Values{}
		query.Set("email", email)
		query.Set("limit", "1")

		var list customerList
		if err := g.do(ctx, http.MethodGet, "/v1/customers?"+query.Encode(), nil, &list); err != nil {
			return "", err
		}
		if len(list.Data) > 0 && list.Data[0].ID != "" {
			return list.Data[0].ID, nil
		}
	}

	form := url.Values{}
	if email != "" {
		form.Set("email", email)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		form.Set("name", name)
	}
	if req.BusinessID != "" {
		form.Set("metadata[business_id]", req.BusinessID)
	}

	var created objectRef
	if err := g.do(ctx, http.MethodPost, "/v1/customers", form, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("stripe: customer response missing id")
	}
	return created.ID, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", req.CustomerID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", req.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("allow_promotion_codes", "true")
	if req.BusinessID != "" {
		form.Set("client_reference_id", req.BusinessID)
		form.Set("metadata[business_id]", req.BusinessID)
		form.Set("subscription_data[metadata][business_id]", req.BusinessID)
	}

	var session objectRef
	if err := g.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.URL == "" {
		return domain.CheckoutSession{}, errors.New("stripe: checkout session missing url")
	}
	return domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (g *Gateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	if returnURL != "" {
		form.Set("return_url", returnURL)
	}

	var session objectRef
	if err := g.do(ctx, http.MethodPost, "/v1/billing_portal/sessions", form, &session); err != nil {
		return "", err
	}
	if session.URL == "" {
		return "", errors.New("stripe: portal session missing url")
	}
	return session.URL, nil
}

// ChargeOneOff adds an invoice item and finalizes an auto-advancing invoice so
// the saved payment method is charged immediately.
func (g *Gateway) ChargeOneOff(ctx context.Context, charge domain.OneOffCharge) (string, error) {
	currency := strings.ToLower(strings.TrimSpace(charge.Currency))
	if currency == "" {
		currency = "usd"
	}

	item := url.Values{}
	item.Set("customer", charge.CustomerID)
	item.Set("amount", strconv.FormatInt(charge.AmountCents, 10))
	item.Set("currency", currency)
	if charge.Description != "" {
		item.Set("description", charge.Description)
	}
	if err := g.do(ctx, http.MethodPost, "/v1/invoiceitems", item, nil); err != nil {
		return "", err
	}

	invoiceForm := url.Values{}
	invoiceForm.Set("customer", charge.CustomerID)
	invoiceForm.Set("auto_advance", "true")
	invoiceForm.Set("pending_invoice_items_behavior", "include")

	var invoice objectRef
	if err := g.do(ctx, http.MethodPost, "/v1/invoices", invoiceForm, &invoice); err != nil {
		return "", err
	}
	if invoice.ID == "" {
		return "", errors.New("stripe: invoice response missing id")
	}

	if err := g.do(ctx, http.MethodPost, "/v1/invoices/"+url.PathEscape(invoice.ID)+"/finalize", url.Values{}, nil); err != nil {
		return invoice.ID, err
	}
	return invoice.ID, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		apiErr := envelope.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
