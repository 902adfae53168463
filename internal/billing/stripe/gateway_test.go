package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/receptionist/internal/billing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, mux *http.ServeMux) *Gateway {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g, err := NewGateway(Config{SecretKey: "sk_test", APIBase: srv.URL}, srv.Client())
	require.NoError(t, err)
	return g
}

func TestNewGatewayRequiresKey(t *testing.T) {
	_, err := NewGateway(Config{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestFindOrCreateCustomerReusesExisting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "owner@acme.test", r.URL.Query().Get("email"))
		_, _ = w.Write([]byte(`{"data":[{"id":"cus_existing"}]}`))
	})

	id, err := newTestGateway(t, mux).FindOrCreateCustomer(context.Background(), domain.CustomerRequest{Email: "owner@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", id)
}

func TestFindOrCreateCustomerCreates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "owner@acme.test", r.PostForm.Get("email"))
		assert.Equal(t, "Acme Dental", r.PostForm.Get("name"))
		assert.Equal(t, "42", r.PostForm.Get("metadata[business_id]"))
		_, _ = w.Write([]byte(`{"id":"cus_new"}`))
	})

	id, err := newTestGateway(t, mux).FindOrCreateCustomer(context.Background(), domain.CustomerRequest{
		Email:      "owner@acme.test",
		Name:       "Acme Dental",
		BusinessID: "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)
}

func TestCreateCheckoutSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/checkout/sessions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "price_starter", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "https://dash.test/app?success=sub_active", r.PostForm.Get("success_url"))
		assert.Equal(t, "42", r.PostForm.Get("client_reference_id"))
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.test/cs_1"}`))
	})

	session, err := newTestGateway(t, mux).CreateCheckoutSession(context.Background(), domain.CheckoutSessionRequest{
		CustomerID: "cus_1",
		PriceID:    "price_starter",
		SuccessURL: "https://dash.test/app?success=sub_active",
		CancelURL:  "https://dash.test/app/subscribe",
		BusinessID: "42",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, session)
}

func TestChargeOneOffFinalizesInvoice(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/invoiceitems", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "item")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "200", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		_, _ = w.Write([]byte(`{"id":"ii_1"}`))
	})
	mux.HandleFunc("/v1/invoices", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "invoice")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostForm.Get("auto_advance"))
		_, _ = w.Write([]byte(`{"id":"in_1"}`))
	})
	mux.HandleFunc("/v1/invoices/in_1/finalize", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "finalize")
		_, _ = w.Write([]byte(`{"id":"in_1"}`))
	})

	invoiceID, err := newTestGateway(t, mux).ChargeOneOff(context.Background(), domain.OneOffCharge{
		CustomerID:  "cus_1",
		AmountCents: 200,
		Description: "Phone Number Purchase: +12125550123",
	})
	require.NoError(t, err)
	assert.Equal(t, "in_1", invoiceID)
	assert.Equal(t, []string{"item", "invoice", "finalize"}, calls)
}

func TestAPIErrorDecoding(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/billing_portal/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})

	_, err := newTestGateway(t, mux).CreatePortalSession(context.Background(), "cus_1", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "card_declined", apiErr.Code)
}
