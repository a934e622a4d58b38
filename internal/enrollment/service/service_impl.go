package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/skillbase/skillbase/internal/enrollment/domain"
	"github.com/skillbase/skillbase/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("enrollment.service"),
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Grant runs the enrollment fan-out: open the course's lectures, add the
// course to the user's enrolled set, add the user to the course's student
// set. The steps run in this order and each is idempotent, so a crash
// between steps is repaired by running Grant again. There is no rollback
// path; access once granted stays granted.
func (s *Service) Grant(ctx context.Context, userID, courseID snowflake.ID) error {
	if err := s.repo.OpenCourseLectures(ctx, s.db, courseID); err != nil {
		return err
	}
	if err := s.repo.AddEnrolledCourse(ctx, s.db, userID, courseID); err != nil {
		return err
	}
	if err := s.repo.AddEnrolledStudent(ctx, s.db, courseID, userID); err != nil {
		return err
	}

	s.metrics.RecordEnrollmentGranted()
	s.log.Info("enrollment granted",
		zap.String("user_id", userID.String()),
		zap.String("course_id", courseID.String()),
	)
	return nil
}
