package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/enrollment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) OpenCourseLectures(ctx context.Context, db *gorm.DB, courseID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lectures
		 SET is_preview_open = TRUE
		 WHERE course_id = ? AND is_preview_open = FALSE`,
		courseID,
	).Error
}

func (r *repo) AddEnrolledCourse(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_enrollments (user_id, course_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID,
		courseID,
		time.Now().UTC(),
	).Error
}

func (r *repo) AddEnrolledStudent(ctx context.Context, db *gorm.DB, courseID, userID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO course_enrollments (course_id, user_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (course_id, user_id) DO NOTHING`,
		courseID,
		userID,
		time.Now().UTC(),
	).Error
}

func (r *repo) IsStudentEnrolled(ctx context.Context, db *gorm.DB, courseID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM course_enrollments WHERE course_id = ? AND user_id = ?`,
		courseID,
		userID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
