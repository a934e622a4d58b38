package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/course/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Course, error) {
	var course domain.Course
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, description, thumbnail, price, currency, created_at, updated_at
		 FROM courses WHERE id = ?`,
		id,
	).Scan(&course).Error
	if err != nil {
		return nil, err
	}
	if course.ID == 0 {
		return nil, nil
	}
	return &course, nil
}

func (r *repo) ListLectures(ctx context.Context, db *gorm.DB, courseID snowflake.ID) ([]domain.Lecture, error) {
	var lectures []domain.Lecture
	err := db.WithContext(ctx).Raw(
		`SELECT id, course_id, title, video_url, position, is_preview_open, created_at
		 FROM lectures WHERE course_id = ?
		 ORDER BY position, id`,
		courseID,
	).Scan(&lectures).Error
	if err != nil {
		return nil, err
	}
	return lectures, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var courses []domain.Course
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, description, thumbnail, price, currency, created_at, updated_at
		 FROM courses WHERE id IN ?
		 ORDER BY title, id`,
		ids,
	).Scan(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}
