package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert persists a new purchase record. The unique index on
	// provider_reference makes a duplicate reference a hard failure.
	Insert(ctx context.Context, db *gorm.DB, record *PurchaseRecord) error

	FindByReference(ctx context.Context, db *gorm.DB, providerReference string) (*PurchaseRecord, error)

	// MarkCompleted performs the guarded pending -> completed transition.
	// It reports whether this call won the transition; concurrent
	// completions for the same reference serialize here, so at most one
	// caller ever sees true.
	MarkCompleted(ctx context.Context, db *gorm.DB, providerReference string, settledAmount *int64, now time.Time) (bool, error)

	// MarkFailed performs the guarded pending -> failed transition.
	MarkFailed(ctx context.Context, db *gorm.DB, providerReference string, now time.Time) (bool, error)

	// MarkRefunded performs the guarded completed -> refunded transition.
	MarkRefunded(ctx context.Context, db *gorm.DB, providerReference string, reason string, amount int64, refundReference string, now time.Time) (bool, error)

	HasCompleted(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (bool, error)
	ListCompletedCourseIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]snowflake.ID, error)
}
