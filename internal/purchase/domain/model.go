package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the purchase lifecycle state. Legal transitions are
// pending -> completed, pending -> failed and completed -> refunded;
// failed and refunded are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

const (
	ProviderCardpay  = "cardpay"
	ProviderOrderpay = "orderpay"
)

// PurchaseRecord tracks one attempt to buy one course. ProviderReference
// is the payment provider's session/order identifier and doubles as the
// idempotency key for completion notifications, which arrive at least once.
type PurchaseRecord struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	CourseID          snowflake.ID      `gorm:"not null;index" json:"course_id"`
	UserID            snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Amount            int64             `gorm:"not null" json:"amount"`
	Currency          string            `gorm:"not null" json:"currency"`
	Provider          string            `gorm:"type:text;not null" json:"provider"`
	ProviderReference string            `gorm:"type:text;not null;uniqueIndex" json:"provider_reference"`
	Status            Status            `gorm:"type:text;not null" json:"status"`
	RefundReason      *string           `json:"refund_reason,omitempty"`
	RefundAmount      *int64            `json:"refund_amount,omitempty"`
	RefundReference   *string           `json:"refund_reference,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

func (PurchaseRecord) TableName() string { return "purchases" }
