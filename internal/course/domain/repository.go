package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Course, error)
	ListLectures(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]Lecture, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Course, error)
}
