package service

import (
	"context"

	"github.com/openytelse/regelport/internal/clock"
	"github.com/openytelse/regelport/internal/observability/metrics"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    subsumsjondomain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    subsumsjondomain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) subsumsjondomain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("subsumsjon"),
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *service) Lagre(ctx context.Context, sub subsumsjondomain.Subsumsjon) (int64, error) {
	inserted, err := s.repo.Insert(ctx, s.db, sub, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if inserted == 0 {
		s.log.Debug("duplicate subsumsjon ignored", zap.String("behov_id", sub.BehovID))
		return 0, nil
	}
	s.metrics.SubsumsjonLagret.Inc()
	s.log.Info("subsumsjon stored", zap.String("behov_id", sub.BehovID))
	return inserted, nil
}

func (s *service) GetByBehovID(ctx context.Context, behovID string) (subsumsjondomain.Subsumsjon, error) {
	return s.repo.FindByBehovID(ctx, s.db, behovID)
}

func (s *service) GetByResultID(ctx context.Context, subsumsjonsID string) (subsumsjondomain.Subsumsjon, error) {
	return s.repo.FindByResultID(ctx, s.db, subsumsjonsID)
}

func (s *service) GetByResultIDs(ctx context.Context, subsumsjonsIDs []string) ([]subsumsjondomain.Subsumsjon, error) {
	return s.repo.FindByResultIDs(ctx, s.db, subsumsjonsIDs)
}

func (s *service) RegistrerBrukt(ctx context.Context, brukt subsumsjondomain.InternSubsumsjonBrukt) error {
	if _, err := s.repo.InsertBrukt(ctx, s.db, brukt, s.clock.Now()); err != nil {
		return err
	}
	if err := s.repo.MarkerSomBrukt(ctx, s.db, brukt); err != nil {
		return err
	}
	s.metrics.SubsumsjonBrukt.Inc()
	s.log.Info("subsumsjon marked brukt",
		zap.String("subsumsjons_id", brukt.ID),
		zap.Int64("ekstern_id", brukt.EksternID),
	)
	return nil
}
