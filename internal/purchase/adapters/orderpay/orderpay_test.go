package orderpay_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/config"
	"github.com/skillbase/skillbase/internal/purchase/adapters/orderpay"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
)

func confirmationSignature(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyConfirmation(t *testing.T) {
	adapter := orderpay.New(config.OrderpayConfig{KeyID: "key_id", KeySecret: "key_secret"})

	signature := confirmationSignature("key_secret", "order_1", "pay_1")
	if err := adapter.VerifyConfirmation("order_1", "pay_1", signature); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := adapter.VerifyConfirmation("order_1", "pay_2", signature); !errors.Is(err, purchasedomain.ErrInvalidSignature) {
		t.Fatalf("swapped payment ref: expected ErrInvalidSignature, got %v", err)
	}
	if err := adapter.VerifyConfirmation("order_1", "pay_1", "deadbeef"); !errors.Is(err, purchasedomain.ErrInvalidSignature) {
		t.Fatalf("wrong signature: expected ErrInvalidSignature, got %v", err)
	}
	if err := adapter.VerifyConfirmation("", "pay_1", signature); !errors.Is(err, purchasedomain.ErrInvalidSignature) {
		t.Fatalf("empty order ref: expected ErrInvalidSignature, got %v", err)
	}
	if err := adapter.VerifyConfirmation("order_1", "pay_1", ""); !errors.Is(err, purchasedomain.ErrInvalidSignature) {
		t.Fatalf("empty signature: expected ErrInvalidSignature, got %v", err)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotUser, gotPass string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_abc",
			"amount":   4999,
			"currency": "INR",
			"receipt":  gotBody["receipt"],
			"status":   "created",
		})
	}))
	defer srv.Close()

	adapter := orderpay.New(config.OrderpayConfig{
		KeyID:     "key_id",
		KeySecret: "key_secret",
		APIBase:   srv.URL,
	})

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	courseID := node.Generate()

	order, err := adapter.CreateOrder(context.Background(), purchasedomain.OrderRequest{
		CourseID: courseID,
		UserID:   node.Generate(),
		Amount:   4999,
		Currency: "inr",
		Receipt:  "course_" + courseID.String(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "order_abc" {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if order.Receipt != "course_"+courseID.String() {
		t.Fatalf("unexpected receipt %q", order.Receipt)
	}

	if gotUser != "key_id" || gotPass != "key_secret" {
		t.Fatalf("unexpected basic auth %q/%q", gotUser, gotPass)
	}
	if gotBody["currency"] != "INR" {
		t.Fatalf("currency not upper-cased: %v", gotBody["currency"])
	}
	notes, ok := gotBody["notes"].(map[string]any)
	if !ok || notes["course_id"] != courseID.String() {
		t.Fatalf("unexpected notes %v", gotBody["notes"])
	}
}

func TestCreateOrderUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := orderpay.New(config.OrderpayConfig{KeyID: "k", KeySecret: "s", APIBase: srv.URL})

	_, err := adapter.CreateOrder(context.Background(), purchasedomain.OrderRequest{Amount: 100, Currency: "INR"})
	if !errors.Is(err, purchasedomain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
