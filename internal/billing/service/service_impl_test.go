package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/receptionist/internal/billing/domain"
	"github.com/smallbiznis/receptionist/internal/billing/stripe"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	businessrepo "github.com/smallbiznis/receptionist/internal/business/repository"
	businesssvc "github.com/smallbiznis/receptionist/internal/business/service"
	"github.com/smallbiznis/receptionist/internal/clock"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/identity"
	"github.com/smallbiznis/receptionist/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_test"

type fakeGateway struct {
	customers   int
	checkouts   []domain.CheckoutSessionRequest
	charges     []domain.OneOffCharge
	portalURL   string
	checkoutErr error
}

func (g *fakeGateway) FindOrCreateCustomer(_ context.Context, req domain.CustomerRequest) (string, error) {
	g.customers++
	return "cus_" + req.BusinessID, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	if g.checkoutErr != nil {
		return domain.CheckoutSession{}, g.checkoutErr
	}
	g.checkouts = append(g.checkouts, req)
	return domain.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	g.portalURL = returnURL
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *fakeGateway) ChargeOneOff(_ context.Context, charge domain.OneOffCharge) (string, error) {
	g.charges = append(g.charges, charge)
	return "in_1", nil
}

type fixture struct {
	svc        *Service
	gateway    *fakeGateway
	businesses businessdomain.Service
	ctx        context.Context
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&businessdomain.Business{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	businesses := businesssvc.New(businesssvc.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  businessrepo.Provide(),
		Clock: clock.NewFakeClock(now),
	})
	verifier, err := stripe.NewWebhookVerifier(webhookSecret, clock.NewFakeClock(now))
	require.NoError(t, err)

	gateway := &fakeGateway{}
	svc := New(Params{
		Config:     config.Config{DashboardURL: "https://dash.test/"},
		Log:        zap.NewNop(),
		Businesses: businesses,
		Plans:      config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog()),
		Gateway:    gateway,
		Webhooks:   verifier,
	}).(*Service)

	ctx := identity.WithIdentity(context.Background(), identity.Identity{Email: "owner@acme.test"})
	return &fixture{svc: svc, gateway: gateway, businesses: businesses, ctx: ctx, now: now}
}

func (f *fixture) signed(payload string) http.Header {
	headers := http.Header{}
	headers.Set("Stripe-Signature", stripe.SignatureHeader(webhookSecret, []byte(payload), f.now))
	return headers
}

func TestCheckoutRequiresBusiness(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(f.ctx, domain.CheckoutRequest{})
	assert.ErrorIs(t, err, domain.ErrBusinessRequired)
}

func TestCheckoutCreatesCustomerOnce(t *testing.T) {
	f := newFixture(t)
	business, err := f.businesses.Create(f.ctx, businessdomain.CreateRequest{Name: "Acme Dental"})
	require.NoError(t, err)

	res, err := f.svc.Checkout(f.ctx, domain.CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", res.URL)

	_, err = f.svc.Checkout(f.ctx, domain.CheckoutRequest{PriceID: "price_business"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.customers)

	require.Len(t, f.gateway.checkouts, 2)
	first := f.gateway.checkouts[0]
	assert.Equal(t, "price_starter", first.PriceID)
	assert.Equal(t, "https://dash.test/app?success=sub_active", first.SuccessURL)
	assert.Equal(t, "https://dash.test/app/subscribe", first.CancelURL)
	assert.Equal(t, business.ID.String(), first.BusinessID)
	assert.Equal(t, "price_business", f.gateway.checkouts[1].PriceID)

	loaded, err := f.businesses.Get(f.ctx, business.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "cus_"+business.ID.String(), loaded.StripeCustomerID)

	_, err = f.svc.Checkout(f.ctx, domain.CheckoutRequest{PriceID: "price_nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownPrice)
}

func TestCheckoutGatewayFailure(t *testing.T) {
	f := newFixture(t)
	_, err := f.businesses.Create(f.ctx, businessdomain.CreateRequest{Name: "Acme Dental"})
	require.NoError(t, err)
	f.gateway.checkoutErr = errors.New("stripe down")

	_, err = f.svc.Checkout(f.ctx, domain.CheckoutRequest{})
	assert.ErrorIs(t, err, domain.ErrGatewayFailed)
}

func TestPortalDefaultsReturnURL(t *testing.T) {
	f := newFixture(t)
	_, err := f.businesses.Create(f.ctx, businessdomain.CreateRequest{Name: "Acme Dental"})
	require.NoError(t, err)

	url, err := f.svc.Portal(f.ctx, "")
	require.NoError(t, err)
	assert.Contains(t, url, "https://billing.stripe.test/cus_")
	assert.Equal(t, "https://dash.test/app/settings", f.gateway.portalURL)
}

func TestChargeNumberFee(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.ChargeNumberFee(f.ctx, "cus_1", "+12125550123"))
	require.Len(t, f.gateway.charges, 1)
	assert.Equal(t, int64(200), f.gateway.charges[0].AmountCents)
	assert.Equal(t, "Phone Number Purchase: +12125550123", f.gateway.charges[0].Description)

	unconfigured := New(Params{Log: zap.NewNop(), Plans: config.NewStaticPlanCatalogHolder(config.DefaultPlanCatalog())})
	assert.NoError(t, unconfigured.ChargeNumberFee(f.ctx, "cus_1", "+12125550123"))
}

func TestHandleWebhookAppliesSubscription(t *testing.T) {
	f := newFixture(t)
	business, err := f.businesses.Create(f.ctx, businessdomain.CreateRequest{Name: "Acme Dental"})
	require.NoError(t, err)
	require.NoError(t, f.businesses.LinkStripeCustomer(f.ctx, business.ID, "cus_1"))

	payload := `{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_1","status":"past_due","items":{"data":[{"price":{"id":"price_professional"}}]}}}}`
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(payload), f.signed(payload)))

	loaded, err := f.businesses.Get(f.ctx, business.ID.String())
	require.NoError(t, err)
	assert.Equal(t, businessdomain.SubscriptionPastDue, loaded.SubscriptionStatus)
	assert.Equal(t, 425, loaded.MinutesLimit)
}

func TestHandleWebhookCheckoutUsesDefaultPlan(t *testing.T) {
	f := newFixture(t)
	business, err := f.businesses.Create(f.ctx, businessdomain.CreateRequest{Name: "Acme Dental"})
	require.NoError(t, err)

	payload := `{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_1","customer":"cus_9","mode":"subscription","metadata":{"business_id":"` + business.ID.String() + `"}}}}`
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(payload), f.signed(payload)))

	loaded, err := f.businesses.Get(f.ctx, business.ID.String())
	require.NoError(t, err)
	assert.Equal(t, businessdomain.SubscriptionActive, loaded.SubscriptionStatus)
	assert.Equal(t, 100, loaded.MinutesLimit)
	assert.Equal(t, "cus_9", loaded.StripeCustomerID)
}

func TestHandleWebhookRejectsAndIgnores(t *testing.T) {
	f := newFixture(t)

	payload := `{"id":"evt_3","type":"invoice.paid","data":{"object":{}}}`
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(payload), f.signed(payload)))

	bad := http.Header{}
	bad.Set("Stripe-Signature", "t=1,v1=deadbeef")
	assert.ErrorIs(t, f.svc.HandleWebhook(context.Background(), []byte(payload), bad), domain.ErrInvalidSignature)

	unknown := `{"id":"evt_4","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_missing","status":"canceled"}}}`
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(unknown), f.signed(unknown)))
}
