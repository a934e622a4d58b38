package domain

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	coursedomain "github.com/skillbase/skillbase/internal/course/domain"
)

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type OrderResponse struct {
	Order  ProviderOrder        `json:"order"`
	Course coursedomain.Summary `json:"course"`
}

type StatusResponse struct {
	Course      coursedomain.Course `json:"course"`
	IsPurchased bool                `json:"is_purchased"`
}

type RefundRequest struct {
	Reason          string
	Amount          *int64
	RefundReference string
}

// Service is the purchase state machine plus the provider-facing
// operations that feed it.
type Service interface {
	// CreateCheckout allocates a hosted card-checkout session and a
	// pending purchase record priced from the course, never from client
	// input.
	CreateCheckout(ctx context.Context, userID, courseID snowflake.ID) (CheckoutResponse, error)

	// CreateOrder allocates a provider order synchronously and a pending
	// purchase record keyed by the order id.
	CreateOrder(ctx context.Context, userID, courseID snowflake.ID) (OrderResponse, error)

	// HandleWebhook authenticates and applies a card-provider webhook.
	// Unrecognized event types are acknowledged without state change.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error

	// VerifyConfirmation checks the client-relayed HMAC for an order
	// payment and, on success, completes the purchase. Returns the
	// course granted.
	VerifyConfirmation(ctx context.Context, orderRef, paymentRef, signature string) (snowflake.ID, error)

	// Complete transitions pending -> completed and runs the enrollment
	// fan-out exactly once. Re-delivery of a completion for an already
	// completed record is a successful no-op.
	Complete(ctx context.Context, providerReference string, settledAmount *int64) error

	// Fail transitions pending -> failed. Repeats are no-ops.
	Fail(ctx context.Context, providerReference string) error

	// Refund transitions completed -> refunded. Enrollment is not
	// reversed. Amount defaults to the full original amount.
	Refund(ctx context.Context, providerReference string, req RefundRequest) (PurchaseRecord, error)

	GetStatus(ctx context.Context, userID, courseID snowflake.ID) (StatusResponse, error)
	ListPurchased(ctx context.Context, userID snowflake.ID) ([]coursedomain.Summary, error)
}
