package domain

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type CustomerRequest struct {
	Email      string
	Name       string
	BusinessID string
}

type CheckoutSessionRequest struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	BusinessID string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type OneOffCharge struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	Description string
}

// SubscriptionEvent is the normalized form of a Stripe subscription webhook.
type SubscriptionEvent struct {
	ID             string
	Type           string
	CustomerID     string
	SubscriptionID string
	BusinessID     string
	Status         string
	PriceID        string
}
