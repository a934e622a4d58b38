package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/config"
	coursedomain "github.com/skillbase/skillbase/internal/course/domain"
	enrollmentdomain "github.com/skillbase/skillbase/internal/enrollment/domain"
	"github.com/skillbase/skillbase/internal/metrics"
	"github.com/skillbase/skillbase/internal/purchase/domain"
	pkgdb "github.com/skillbase/skillbase/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Node       *snowflake.Node
	Repo       domain.Repository
	Courses    coursedomain.Repository
	Enrollment enrollmentdomain.Service
	Card       domain.CardCheckoutProvider
	Orders     domain.OrderProvider
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	node       *snowflake.Node
	repo       domain.Repository
	courses    coursedomain.Repository
	enrollment enrollmentdomain.Service
	card       domain.CardCheckoutProvider
	orders     domain.OrderProvider
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("purchase.service"),
		node:       p.Node,
		repo:       p.Repo,
		courses:    p.Courses,
		enrollment: p.Enrollment,
		card:       p.Card,
		orders:     p.Orders,
		metrics:    p.Metrics,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, userID, courseID snowflake.ID) (domain.CheckoutResponse, error) {
	course, err := s.courses.FindByID(ctx, s.db, courseID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if course == nil {
		return domain.CheckoutResponse{}, coursedomain.ErrNotFound
	}
	if course.Price <= 0 {
		return domain.CheckoutResponse{}, domain.ErrInvalidAmount
	}

	purchaseID := s.node.Generate()
	session, err := s.card.CreateSession(ctx, domain.CheckoutRequest{
		PurchaseID:  purchaseID,
		CourseID:    course.ID,
		UserID:      userID,
		CourseTitle: course.Title,
		Amount:      course.Price,
		Currency:    course.Currency,
		SuccessURL:  s.cfg.ClientURL + "/payment-success",
		CancelURL:   s.cfg.ClientURL + "/payment-cancel",
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	now := time.Now().UTC()
	record := &domain.PurchaseRecord{
		ID:                purchaseID,
		CourseID:          course.ID,
		UserID:            userID,
		Amount:            course.Price,
		Currency:          strings.ToUpper(course.Currency),
		Provider:          s.card.Provider(),
		ProviderReference: session.ID,
		Status:            domain.StatusPending,
		Metadata: datatypes.JSONMap{
			"course_id": course.ID.String(),
			"user_id":   userID.String(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// A reused session id means the provider response cannot be
		// trusted; the existing record keeps its own lifecycle.
		if pkgdb.IsDuplicateKeyErr(err) {
			s.log.Warn("provider reused checkout reference",
				zap.String("provider_reference", session.ID),
			)
			return domain.CheckoutResponse{}, domain.ErrUpstream
		}
		return domain.CheckoutResponse{}, err
	}

	// A session without a redirect URL cannot be paid, but the pending
	// record stays so a late webhook still reconciles against something.
	if session.URL == "" {
		s.log.Warn("checkout session missing redirect url",
			zap.String("provider_reference", session.ID),
		)
		return domain.CheckoutResponse{}, domain.ErrUpstream
	}

	s.log.Info("checkout session created",
		zap.String("purchase_id", purchaseID.String()),
		zap.String("provider_reference", session.ID),
		zap.String("course_id", course.ID.String()),
	)
	return domain.CheckoutResponse{CheckoutURL: session.URL}, nil
}

func (s *Service) CreateOrder(ctx context.Context, userID, courseID snowflake.ID) (domain.OrderResponse, error) {
	course, err := s.courses.FindByID(ctx, s.db, courseID)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if course == nil {
		return domain.OrderResponse{}, coursedomain.ErrNotFound
	}
	if course.Price <= 0 {
		return domain.OrderResponse{}, domain.ErrInvalidAmount
	}

	order, err := s.orders.CreateOrder(ctx, domain.OrderRequest{
		CourseID: course.ID,
		UserID:   userID,
		Amount:   course.Price,
		Currency: course.Currency,
		Receipt:  "course_" + course.ID.String(),
	})
	if err != nil {
		return domain.OrderResponse{}, err
	}

	now := time.Now().UTC()
	record := &domain.PurchaseRecord{
		ID:                s.node.Generate(),
		CourseID:          course.ID,
		UserID:            userID,
		Amount:            course.Price,
		Currency:          strings.ToUpper(course.Currency),
		Provider:          s.orders.Provider(),
		ProviderReference: order.ID,
		Status:            domain.StatusPending,
		Metadata: datatypes.JSONMap{
			"course_id": course.ID.String(),
			"user_id":   userID.String(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			s.log.Warn("provider reused order reference",
				zap.String("provider_reference", order.ID),
			)
			return domain.OrderResponse{}, domain.ErrUpstream
		}
		return domain.OrderResponse{}, err
	}

	s.log.Info("payment order created",
		zap.String("purchase_id", record.ID.String()),
		zap.String("provider_reference", order.ID),
		zap.String("course_id", course.ID.String()),
	)
	return domain.OrderResponse{Order: order, Course: course.Summary()}, nil
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.card.VerifyWebhook(payload, headers); err != nil {
		return err
	}

	event, err := s.card.ParseWebhook(payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			// Acknowledge so the provider stops retrying event types we
			// never act on.
			s.metrics.RecordWebhookEvent(s.card.Provider(), "ignored")
			return nil
		}
		return err
	}
	s.metrics.RecordWebhookEvent(event.Provider, event.Type)

	switch event.Type {
	case domain.EventTypeSessionCompleted:
		return s.Complete(ctx, event.Reference, event.SettledAmount)
	case domain.EventTypeSessionExpired:
		return s.Fail(ctx, event.Reference)
	default:
		return nil
	}
}

func (s *Service) VerifyConfirmation(ctx context.Context, orderRef, paymentRef, signature string) (snowflake.ID, error) {
	if err := s.orders.VerifyConfirmation(orderRef, paymentRef, signature); err != nil {
		return 0, err
	}

	record, err := s.repo.FindByReference(ctx, s.db, orderRef)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, domain.ErrNotFound
	}

	if err := s.Complete(ctx, orderRef, nil); err != nil {
		return 0, err
	}
	return record.CourseID, nil
}

// Complete drives the pending -> completed transition. The repository's
// guarded update picks exactly one winner per reference; only the winner
// runs the enrollment fan-out, so a webhook delivered twice grants once.
func (s *Service) Complete(ctx context.Context, providerReference string, settledAmount *int64) error {
	won, err := s.repo.MarkCompleted(ctx, s.db, providerReference, settledAmount, time.Now().UTC())
	if err != nil {
		return err
	}

	if !won {
		record, err := s.repo.FindByReference(ctx, s.db, providerReference)
		if err != nil {
			return err
		}
		if record == nil {
			return domain.ErrNotFound
		}
		if record.Status == domain.StatusCompleted {
			// Redelivery of a completion we already applied. Grant is
			// idempotent, so re-running it here repairs any fan-out step
			// that failed after the original transition won.
			return s.enrollment.Grant(ctx, record.UserID, record.CourseID)
		}
		return domain.ErrInvalidTransition
	}

	record, err := s.repo.FindByReference(ctx, s.db, providerReference)
	if err != nil {
		return err
	}
	if record == nil {
		return domain.ErrNotFound
	}

	s.metrics.RecordPurchaseCompleted(record.Provider)
	s.log.Info("purchase completed",
		zap.String("provider_reference", providerReference),
		zap.String("user_id", record.UserID.String()),
		zap.String("course_id", record.CourseID.String()),
	)

	// The purchase is durably completed at this point. A fan-out failure
	// is surfaced so the provider redelivers; the redelivery takes the
	// already-completed path above and re-runs the idempotent Grant.
	if err := s.enrollment.Grant(ctx, record.UserID, record.CourseID); err != nil {
		s.log.Error("enrollment fan-out failed",
			zap.String("provider_reference", providerReference),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) Fail(ctx context.Context, providerReference string) error {
	ok, err := s.repo.MarkFailed(ctx, s.db, providerReference, time.Now().UTC())
	if err != nil {
		return err
	}
	if ok {
		s.log.Info("purchase failed", zap.String("provider_reference", providerReference))
		return nil
	}

	record, err := s.repo.FindByReference(ctx, s.db, providerReference)
	if err != nil {
		return err
	}
	if record == nil {
		return domain.ErrNotFound
	}
	if record.Status == domain.StatusFailed {
		return nil
	}
	return domain.ErrInvalidTransition
}

func (s *Service) Refund(ctx context.Context, providerReference string, req domain.RefundRequest) (domain.PurchaseRecord, error) {
	record, err := s.repo.FindByReference(ctx, s.db, providerReference)
	if err != nil {
		return domain.PurchaseRecord{}, err
	}
	if record == nil {
		return domain.PurchaseRecord{}, domain.ErrNotFound
	}

	amount := record.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 || amount > record.Amount {
		return domain.PurchaseRecord{}, domain.ErrInvalidAmount
	}

	ok, err := s.repo.MarkRefunded(ctx, s.db, providerReference, req.Reason, amount, req.RefundReference, time.Now().UTC())
	if err != nil {
		return domain.PurchaseRecord{}, err
	}
	if !ok {
		// Only a completed purchase can be refunded, and only once.
		return domain.PurchaseRecord{}, domain.ErrInvalidTransition
	}

	updated, err := s.repo.FindByReference(ctx, s.db, providerReference)
	if err != nil {
		return domain.PurchaseRecord{}, err
	}
	if updated == nil {
		return domain.PurchaseRecord{}, domain.ErrNotFound
	}

	s.metrics.RecordPurchaseRefunded(updated.Provider)
	s.log.Info("purchase refunded",
		zap.String("provider_reference", providerReference),
		zap.Int64("refund_amount", amount),
	)
	return *updated, nil
}

func (s *Service) GetStatus(ctx context.Context, userID, courseID snowflake.ID) (domain.StatusResponse, error) {
	course, err := s.courses.FindByID(ctx, s.db, courseID)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	if course == nil {
		return domain.StatusResponse{}, coursedomain.ErrNotFound
	}

	lectures, err := s.courses.ListLectures(ctx, s.db, course.ID)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	course.Lectures = lectures

	purchased, err := s.repo.HasCompleted(ctx, s.db, userID, courseID)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	return domain.StatusResponse{Course: *course, IsPurchased: purchased}, nil
}

func (s *Service) ListPurchased(ctx context.Context, userID snowflake.ID) ([]coursedomain.Summary, error) {
	ids, err := s.repo.ListCompletedCourseIDs(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []coursedomain.Summary{}, nil
	}

	courses, err := s.courses.ListByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	summaries := make([]coursedomain.Summary, 0, len(courses))
	for _, course := range courses {
		summaries = append(summaries, course.Summary())
	}
	return summaries, nil
}
