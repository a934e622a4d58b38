package orderpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/skillbase/skillbase/internal/config"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
)

type Adapter struct {
	keyID     string
	keySecret string
	apiBase   string
	client    *http.Client
}

func New(cfg config.OrderpayConfig) *Adapter {
	return &Adapter{
		keyID:     strings.TrimSpace(cfg.KeyID),
		keySecret: strings.TrimSpace(cfg.KeySecret),
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		client:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (a *Adapter) Provider() string {
	return purchasedomain.ProviderOrderpay
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

func (a *Adapter) CreateOrder(ctx context.Context, req purchasedomain.OrderRequest) (purchasedomain.ProviderOrder, error) {
	if a.keyID == "" || a.keySecret == "" {
		return purchasedomain.ProviderOrder{}, purchasedomain.ErrUpstream
	}

	body := createOrderRequest{
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Notes: map[string]string{
			"course_id": req.CourseID.String(),
			"user_id":   req.UserID.String(),
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return purchasedomain.ProviderOrder{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return purchasedomain.ProviderOrder{}, err
	}
	httpReq.SetBasicAuth(a.keyID, a.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return purchasedomain.ProviderOrder{}, purchasedomain.ErrUpstream
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return purchasedomain.ProviderOrder{}, purchasedomain.ErrUpstream
	}

	var order purchasedomain.ProviderOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return purchasedomain.ProviderOrder{}, purchasedomain.ErrUpstream
	}
	if strings.TrimSpace(order.ID) == "" {
		return purchasedomain.ProviderOrder{}, purchasedomain.ErrUpstream
	}
	return order, nil
}

// VerifyConfirmation checks the client-relayed payment signature: a hex
// HMAC-SHA256 of "<orderRef>|<paymentRef>" keyed with the API secret.
func (a *Adapter) VerifyConfirmation(orderRef, paymentRef, signature string) error {
	if a.keySecret == "" {
		return purchasedomain.ErrInvalidSignature
	}
	orderRef = strings.TrimSpace(orderRef)
	paymentRef = strings.TrimSpace(paymentRef)
	signature = strings.TrimSpace(signature)
	if orderRef == "" || paymentRef == "" || signature == "" {
		return purchasedomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.keySecret))
	_, _ = mac.Write([]byte(orderRef + "|" + paymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return purchasedomain.ErrInvalidSignature
	}
	return nil
}
