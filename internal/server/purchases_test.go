package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/skillbase/skillbase/internal/config"
	coursedomain "github.com/skillbase/skillbase/internal/course/domain"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
	"github.com/skillbase/skillbase/internal/usercontext"
	"go.uber.org/zap"
)

const testJWTSecret = "test_jwt_secret"

type fakePurchaseService struct {
	checkoutCalls int
	webhookCalls  int
	checkoutErr   error
	webhookErr    error
	lastUserID    snowflake.ID
}

func (f *fakePurchaseService) CreateCheckout(ctx context.Context, userID, courseID snowflake.ID) (purchasedomain.CheckoutResponse, error) {
	f.checkoutCalls++
	f.lastUserID = userID
	if f.checkoutErr != nil {
		return purchasedomain.CheckoutResponse{}, f.checkoutErr
	}
	return purchasedomain.CheckoutResponse{CheckoutURL: "https://pay.example.com/session"}, nil
}

func (f *fakePurchaseService) CreateOrder(ctx context.Context, userID, courseID snowflake.ID) (purchasedomain.OrderResponse, error) {
	return purchasedomain.OrderResponse{Order: purchasedomain.ProviderOrder{ID: "order_1"}}, nil
}

func (f *fakePurchaseService) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	f.webhookCalls++
	return f.webhookErr
}

func (f *fakePurchaseService) VerifyConfirmation(ctx context.Context, orderRef, paymentRef, signature string) (snowflake.ID, error) {
	return snowflake.ID(1), nil
}

func (f *fakePurchaseService) Complete(ctx context.Context, providerReference string, settledAmount *int64) error {
	return nil
}

func (f *fakePurchaseService) Fail(ctx context.Context, providerReference string) error {
	return nil
}

func (f *fakePurchaseService) Refund(ctx context.Context, providerReference string, req purchasedomain.RefundRequest) (purchasedomain.PurchaseRecord, error) {
	return purchasedomain.PurchaseRecord{}, purchasedomain.ErrInvalidTransition
}

func (f *fakePurchaseService) GetStatus(ctx context.Context, userID, courseID snowflake.ID) (purchasedomain.StatusResponse, error) {
	return purchasedomain.StatusResponse{}, coursedomain.ErrNotFound
}

func (f *fakePurchaseService) ListPurchased(ctx context.Context, userID snowflake.ID) ([]coursedomain.Summary, error) {
	return []coursedomain.Summary{}, nil
}

func newTestServer(t *testing.T, svc purchasedomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	node, err := snowflake.NewNode(9)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	srv := &Server{
		engine:      engine,
		cfg:         config.Config{AuthJWTSecret: testJWTSecret},
		log:         zap.NewNop(),
		genID:       node,
		purchaseSvc: svc,
	}
	srv.registerPaymentRoutes()
	return srv
}

func userToken(t *testing.T, userID snowflake.ID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestCheckoutRequiresAuth(t *testing.T) {
	svc := &fakePurchaseService{}
	srv := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout-session", bytes.NewBufferString(`{"course_id":"1"}`))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.checkoutCalls != 0 {
		t.Fatalf("handler should not run without auth")
	}
}

func TestCheckoutWithValidToken(t *testing.T) {
	svc := &fakePurchaseService{}
	srv := newTestServer(t, svc)

	userID := srv.genID.Generate()
	courseID := srv.genID.Generate()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout-session",
		bytes.NewBufferString(`{"course_id":"`+courseID.String()+`"}`))
	req.Header.Set("Authorization", "Bearer "+userToken(t, userID))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.checkoutCalls != 1 {
		t.Fatalf("expected one checkout call, got %d", svc.checkoutCalls)
	}
	if svc.lastUserID != userID {
		t.Fatalf("user id not propagated: got %v want %v", svc.lastUserID, userID)
	}
}

func TestCheckoutRejectsForgedToken(t *testing.T) {
	svc := &fakePurchaseService{}
	srv := newTestServer(t, svc)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "12345",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := forged.SignedString([]byte("wrong_secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout-session", bytes.NewBufferString(`{"course_id":"1"}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"bad signature", purchasedomain.ErrInvalidSignature, http.StatusBadRequest},
		{"unknown reference", purchasedomain.ErrNotFound, http.StatusNotFound},
		{"terminal state", purchasedomain.ErrInvalidTransition, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakePurchaseService{webhookErr: tc.err}
			srv := newTestServer(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString(`{}`))
			rec := httptest.NewRecorder()
			srv.engine.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if svc.webhookCalls != 1 {
				t.Fatalf("expected one webhook call, got %d", svc.webhookCalls)
			}
			if tc.status == http.StatusOK {
				var ack map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
					t.Fatalf("decode ack: %v", err)
				}
				if received, ok := ack["received"].(bool); !ok || !received {
					t.Fatalf("expected {\"received\": true} ack, got %s", rec.Body.String())
				}
			}
		})
	}
}

func TestProviderOutageMapsToBadGateway(t *testing.T) {
	svc := &fakePurchaseService{checkoutErr: purchasedomain.ErrUpstream}
	srv := newTestServer(t, svc)

	userID := srv.genID.Generate()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/checkout-session", bytes.NewBufferString(`{"course_id":"1"}`))
	req.Header.Set("Authorization", "Bearer "+userToken(t, userID))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestRefundConflict(t *testing.T) {
	svc := &fakePurchaseService{}
	srv := newTestServer(t, svc)

	userID := srv.genID.Generate()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/purchases/order_1/refund", bytes.NewBufferString(`{"reason":"dup"}`))
	req.Header.Set("Authorization", "Bearer "+userToken(t, userID))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := usercontext.WithUserID(context.Background(), snowflake.ID(42))
	got, ok := usercontext.UserIDFromContext(ctx)
	if !ok || got != snowflake.ID(42) {
		t.Fatalf("unexpected user id %v ok=%v", got, ok)
	}
}
