package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PurchaseRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO purchases (
			id, course_id, user_id, amount, currency, provider, provider_reference,
			status, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CourseID,
		record.UserID,
		record.Amount,
		record.Currency,
		record.Provider,
		record.ProviderReference,
		record.Status,
		record.Metadata,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, providerReference string) (*domain.PurchaseRecord, error) {
	var record domain.PurchaseRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, user_id, amount, currency, provider, provider_reference,
			status, refund_reason, refund_amount, refund_reference, metadata,
			created_at, updated_at
		 FROM purchases
		 WHERE provider_reference = ?
		 LIMIT 1`,
		providerReference,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

// MarkCompleted relies on the conditional UPDATE to serialize concurrent
// completions: only the caller whose update matches the pending row wins.
func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, providerReference string, settledAmount *int64, now time.Time) (bool, error) {
	var res *gorm.DB
	if settledAmount != nil {
		res = db.WithContext(ctx).Exec(
			`UPDATE purchases
			 SET status = ?, amount = ?, updated_at = ?
			 WHERE provider_reference = ? AND status = ?`,
			domain.StatusCompleted,
			*settledAmount,
			now,
			providerReference,
			domain.StatusPending,
		)
	} else {
		res = db.WithContext(ctx).Exec(
			`UPDATE purchases
			 SET status = ?, updated_at = ?
			 WHERE provider_reference = ? AND status = ?`,
			domain.StatusCompleted,
			now,
			providerReference,
			domain.StatusPending,
		)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, providerReference string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, updated_at = ?
		 WHERE provider_reference = ? AND status = ?`,
		domain.StatusFailed,
		now,
		providerReference,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, providerReference string, reason string, amount int64, refundReference string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE purchases
		 SET status = ?, refund_reason = ?, refund_amount = ?, refund_reference = ?, updated_at = ?
		 WHERE provider_reference = ? AND status = ?`,
		domain.StatusRefunded,
		reason,
		amount,
		refundReference,
		now,
		providerReference,
		domain.StatusCompleted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) HasCompleted(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM purchases
		 WHERE user_id = ? AND course_id = ? AND status = ?`,
		userID,
		courseID,
		domain.StatusCompleted,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListCompletedCourseIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT course_id FROM purchases
		 WHERE user_id = ? AND status = ?`,
		userID,
		domain.StatusCompleted,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
