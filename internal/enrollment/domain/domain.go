package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service grants a user access to a course after a confirmed payment.
// Every step is an idempotent set-add or flag flip, so Grant is safe to
// re-run in full after a partial failure.
type Service interface {
	Grant(ctx context.Context, userID, courseID snowflake.ID) error
}

type Repository interface {
	// OpenCourseLectures flips a course's lecture set from preview-gated
	// to open. Already-open lectures are untouched.
	OpenCourseLectures(ctx context.Context, db *gorm.DB, courseID snowflake.ID) error

	// AddEnrolledCourse adds the course to the user's enrolled-course set.
	// Duplicate adds are no-ops.
	AddEnrolledCourse(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) error

	// AddEnrolledStudent adds the user to the course's enrolled-student set.
	// Duplicate adds are no-ops.
	AddEnrolledStudent(ctx context.Context, db *gorm.DB, courseID, userID snowflake.ID) error

	IsStudentEnrolled(ctx context.Context, db *gorm.DB, courseID, userID snowflake.ID) (bool, error)
}
