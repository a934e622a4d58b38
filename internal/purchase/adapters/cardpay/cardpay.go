package cardpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skillbase/skillbase/internal/config"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
)

// SignatureHeader carries the provider's webhook signature in the form
// "t=<unix>,v1=<hex hmac>", computed over "<t>.<raw payload>".
const SignatureHeader = "Cardpay-Signature"

type Adapter struct {
	apiKey        string
	webhookSecret string
	apiBase       string
	client        *http.Client
}

func New(cfg config.CardpayConfig) *Adapter {
	return &Adapter{
		apiKey:        strings.TrimSpace(cfg.APIKey),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		apiBase:       strings.TrimRight(cfg.APIBase, "/"),
		client:        &http.Client{Timeout: 12 * time.Second},
	}
}

func (a *Adapter) Provider() string {
	return purchasedomain.ProviderCardpay
}

func (a *Adapter) CreateSession(ctx context.Context, req purchasedomain.CheckoutRequest) (purchasedomain.CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("line_items[0][name]", req.CourseTitle)
	values.Set("line_items[0][amount]", strconv.FormatInt(req.Amount, 10))
	values.Set("line_items[0][currency]", strings.ToLower(req.Currency))
	values.Set("line_items[0][quantity]", "1")
	values.Set("success_url", req.SuccessURL)
	values.Set("cancel_url", req.CancelURL)
	values.Set("metadata[course_id]", req.CourseID.String())
	values.Set("metadata[user_id]", req.UserID.String())

	session, err := a.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, "purchase:"+req.PurchaseID.String())
	if err != nil {
		return purchasedomain.CheckoutSession{}, err
	}
	return session, nil
}

func (a *Adapter) VerifyWebhook(payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return purchasedomain.ErrInvalidSignature
	}
	sigHeader := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHeader == "" {
		return purchasedomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return purchasedomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return purchasedomain.ErrInvalidSignature
}

func (a *Adapter) ParseWebhook(payload []byte) (*purchasedomain.WebhookEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, purchasedomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, purchasedomain.ErrInvalidPayload
	}

	switch strings.TrimSpace(event.Type) {
	case purchasedomain.EventTypeSessionCompleted:
		return a.parseSession(event, purchasedomain.EventTypeSessionCompleted)
	case purchasedomain.EventTypeSessionExpired:
		return a.parseSession(event, purchasedomain.EventTypeSessionExpired)
	default:
		return nil, purchasedomain.ErrEventIgnored
	}
}

type webhookEvent struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Created int64            `json:"created"`
	Data    webhookEventData `json:"data"`
}

type webhookEventData struct {
	Object json.RawMessage `json:"object"`
}

type checkoutSession struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

func (a *Adapter) parseSession(event webhookEvent, eventType string) (*purchasedomain.WebhookEvent, error) {
	var session checkoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, purchasedomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, purchasedomain.ErrInvalidPayload
	}

	out := &purchasedomain.WebhookEvent{
		Provider:  purchasedomain.ProviderCardpay,
		Type:      eventType,
		Reference: session.ID,
	}
	if eventType == purchasedomain.EventTypeSessionCompleted && session.AmountTotal > 0 {
		settled := session.AmountTotal
		out.SettledAmount = &settled
	}
	return out, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) doRequest(ctx context.Context, method, path string, values url.Values, idempotencyKey string) (purchasedomain.CheckoutSession, error) {
	if a.apiKey == "" {
		return purchasedomain.CheckoutSession{}, purchasedomain.ErrUpstream
	}

	req, err := http.NewRequestWithContext(ctx, method, a.apiBase+path, strings.NewReader(values.Encode()))
	if err != nil {
		return purchasedomain.CheckoutSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return purchasedomain.CheckoutSession{}, purchasedomain.ErrUpstream
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var provErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&provErr)
		return purchasedomain.CheckoutSession{}, purchasedomain.ErrUpstream
	}

	var session checkoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return purchasedomain.CheckoutSession{}, purchasedomain.ErrUpstream
	}
	if session.ID == "" {
		return purchasedomain.CheckoutSession{}, purchasedomain.ErrUpstream
	}
	return purchasedomain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}
