package cardpay_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/config"
	"github.com/skillbase/skillbase/internal/purchase/adapters/cardpay"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
)

func signPayload(secret string, payload []byte) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookAcceptsValidSignature(t *testing.T) {
	adapter := cardpay.New(config.CardpayConfig{WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	headers := http.Header{}
	headers.Set(cardpay.SignatureHeader, signPayload("whsec_test", payload))

	if err := adapter.VerifyWebhook(payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyWebhookRejectsTamperedPayload(t *testing.T) {
	adapter := cardpay.New(config.CardpayConfig{WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	headers := http.Header{}
	headers.Set(cardpay.SignatureHeader, signPayload("whsec_test", payload))

	tampered := []byte(`{"id":"evt_2","type":"checkout.session.completed"}`)
	if err := adapter.VerifyWebhook(tampered, headers); !errors.Is(err, purchasedomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookRejectsMissingOrMalformedHeader(t *testing.T) {
	adapter := cardpay.New(config.CardpayConfig{WebhookSecret: "whsec_test"})
	payload := []byte(`{}`)

	cases := map[string]string{
		"missing":      "",
		"no timestamp": "v1=deadbeef",
		"no signature": "t=1700000000",
		"garbage":      "not-a-signature",
	}
	for name, header := range cases {
		headers := http.Header{}
		if header != "" {
			headers.Set(cardpay.SignatureHeader, header)
		}
		if err := adapter.VerifyWebhook(payload, headers); !errors.Is(err, purchasedomain.ErrInvalidSignature) {
			t.Fatalf("%s: expected ErrInvalidSignature, got %v", name, err)
		}
	}
}

func TestParseWebhook(t *testing.T) {
	adapter := cardpay.New(config.CardpayConfig{WebhookSecret: "whsec_test"})

	completed := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_123", "amount_total": 4999, "currency": "usd"}}
	}`)
	event, err := adapter.ParseWebhook(completed)
	if err != nil {
		t.Fatalf("parse completed: %v", err)
	}
	if event.Type != purchasedomain.EventTypeSessionCompleted {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.Reference != "cs_123" {
		t.Fatalf("unexpected reference %q", event.Reference)
	}
	if event.SettledAmount == nil || *event.SettledAmount != 4999 {
		t.Fatalf("unexpected settled amount %v", event.SettledAmount)
	}

	expired := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_123"}}
	}`)
	event, err = adapter.ParseWebhook(expired)
	if err != nil {
		t.Fatalf("parse expired: %v", err)
	}
	if event.Type != purchasedomain.EventTypeSessionExpired {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.SettledAmount != nil {
		t.Fatalf("expired event should not carry a settled amount")
	}

	ignored := []byte(`{"id":"evt_3","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`)
	if _, err := adapter.ParseWebhook(ignored); !errors.Is(err, purchasedomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}

	if _, err := adapter.ParseWebhook([]byte(`not json`)); !errors.Is(err, purchasedomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	var gotAuth, gotIdempotency string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":  "cs_test_1",
			"url": "https://pay.example.com/cs_test_1",
		})
	}))
	defer srv.Close()

	adapter := cardpay.New(config.CardpayConfig{
		APIKey:  "sk_test",
		APIBase: srv.URL,
	})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	purchaseID := node.Generate()
	courseID := node.Generate()
	userID := node.Generate()

	session, err := adapter.CreateSession(context.Background(), purchasedomain.CheckoutRequest{
		PurchaseID:  purchaseID,
		CourseID:    courseID,
		UserID:      userID,
		CourseTitle: "Intro to Distributed Systems",
		Amount:      4999,
		Currency:    "USD",
		SuccessURL:  "https://app.example.com/payment-success",
		CancelURL:   "https://app.example.com/payment-cancel",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_test_1" {
		t.Fatalf("unexpected session id %q", session.ID)
	}
	if session.URL != "https://pay.example.com/cs_test_1" {
		t.Fatalf("unexpected session url %q", session.URL)
	}

	if gotAuth != "Bearer sk_test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotIdempotency != "purchase:"+purchaseID.String() {
		t.Fatalf("unexpected idempotency key %q", gotIdempotency)
	}
	if got := gotForm["metadata[course_id]"]; len(got) != 1 || got[0] != courseID.String() {
		t.Fatalf("unexpected course metadata %v", got)
	}
	if got := gotForm["metadata[user_id]"]; len(got) != 1 || got[0] != userID.String() {
		t.Fatalf("unexpected user metadata %v", got)
	}
	if got := gotForm["line_items[0][amount]"]; len(got) != 1 || got[0] != "4999" {
		t.Fatalf("unexpected amount %v", got)
	}
}

func TestCreateSessionUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	adapter := cardpay.New(config.CardpayConfig{APIKey: "sk_test", APIBase: srv.URL})

	_, err := adapter.CreateSession(context.Background(), purchasedomain.CheckoutRequest{
		CourseTitle: "x",
		Amount:      100,
		Currency:    "USD",
	})
	if !errors.Is(err, purchasedomain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
