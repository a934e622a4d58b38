package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	coursedomain "github.com/skillbase/skillbase/internal/course/domain"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
	"github.com/skillbase/skillbase/internal/usercontext"
)

type checkoutRequest struct {
	CourseID string `json:"course_id" binding:"required"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	userID, ok := usercontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	courseID, err := parseCourseID(req.CourseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.purchaseSvc.CreateCheckout(c.Request.Context(), userID, courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.purchaseSvc.HandleWebhook(c.Request.Context(), payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) CreateOrder(c *gin.Context) {
	userID, ok := usercontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	courseID, err := parseCourseID(req.CourseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.purchaseSvc.CreateOrder(c.Request.Context(), userID, courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type verifyOrderRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (s *Server) VerifyOrderPayment(c *gin.Context) {
	var req verifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	courseID, err := s.purchaseSvc.VerifyConfirmation(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"course_id": courseID.String(),
	})
}

func (s *Server) GetPurchaseStatus(c *gin.Context) {
	userID, ok := usercontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	courseID, err := parseCourseID(c.Param("courseId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.purchaseSvc.GetStatus(c.Request.Context(), userID, courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListPurchasedCourses(c *gin.Context) {
	userID, ok := usercontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	courses, err := s.purchaseSvc.ListPurchased(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

type refundRequest struct {
	Reason          string `json:"reason"`
	Amount          *int64 `json:"amount"`
	RefundReference string `json:"refund_reference"`
}

func (s *Server) RefundPurchase(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.purchaseSvc.Refund(c.Request.Context(), reference, purchasedomain.RefundRequest{
		Reason:          strings.TrimSpace(req.Reason),
		Amount:          req.Amount,
		RefundReference: strings.TrimSpace(req.RefundReference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func parseCourseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, coursedomain.ErrInvalidID
	}
	return id, nil
}
