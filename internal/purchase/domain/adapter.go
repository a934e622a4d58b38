package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// CheckoutRequest carries everything the card provider needs to allocate
// a hosted payment session. Course and user IDs travel as opaque metadata
// the provider echoes back in webhook events.
type CheckoutRequest struct {
	PurchaseID  snowflake.ID
	CourseID    snowflake.ID
	UserID      snowflake.ID
	CourseTitle string
	Amount      int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// OrderRequest is the synchronous order-allocation call for the order
// provider.
type OrderRequest struct {
	CourseID snowflake.ID
	UserID   snowflake.ID
	Amount   int64
	Currency string
	Receipt  string
}

// ProviderOrder is the provider's order object, returned verbatim to the
// client so it can drive the provider's payment widget.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

const (
	EventTypeSessionCompleted = "checkout.session.completed"
	EventTypeSessionExpired   = "checkout.session.expired"
)

// WebhookEvent is the canonical completion/failure notification parsed
// from a provider webhook after its signature has been verified.
type WebhookEvent struct {
	Provider string
	Type     string
	// Reference is the provider's session identifier; it selects the
	// purchase record the event applies to.
	Reference string
	// SettledAmount is the amount the provider reports as charged, in
	// minor units. Nil when the provider does not report one, in which
	// case the recorded amount stands.
	SettledAmount *int64
}

// CardCheckoutProvider is the async card provider: hosted sessions out,
// signed webhooks in.
type CardCheckoutProvider interface {
	Provider() string
	CreateSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	VerifyWebhook(payload []byte, headers http.Header) error
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}

// OrderProvider is the sync order provider: orders out, client-relayed
// HMAC confirmations in.
type OrderProvider interface {
	Provider() string
	CreateOrder(ctx context.Context, req OrderRequest) (ProviderOrder, error)
	VerifyConfirmation(orderRef, paymentRef, signature string) error
}
