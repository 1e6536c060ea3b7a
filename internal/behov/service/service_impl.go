package service

import (
	"context"

	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/clock"
	"github.com/openytelse/regelport/internal/ident"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     behovdomain.Repository
	Producer behovdomain.Producer
	IDs      *ident.Source
	Clock    clock.Clock
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     behovdomain.Repository
	producer behovdomain.Producer
	ids      *ident.Source
	clock    clock.Clock
}

func New(p Params) behovdomain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("behov"),
		repo:     p.Repo,
		producer: p.Producer,
		ids:      p.IDs,
		clock:    p.Clock,
	}
}

func (s *service) Opprett(ctx context.Context, behov behovdomain.Behov) (behovdomain.InternBehov, error) {
	behandlingsID, err := s.repo.HentEllerOpprettBehandling(ctx, s.db, behov.RegelKontekst)
	if err != nil {
		return behovdomain.InternBehov{}, err
	}

	intern := behovdomain.InternBehov{
		BehovID:        s.ids.New(),
		AktørID:        behov.AktørID,
		BehandlingsID:  behandlingsID,
		BeregningsDato: behov.BeregningsDato,
		Fakta:          behov.Fakta,
	}

	if err := s.repo.Insert(ctx, s.db, intern, s.clock.Now()); err != nil {
		return behovdomain.InternBehov{}, err
	}

	// The behov is committed before publish: a broker failure leaves it
	// durably pending and safe to replay, never half-created.
	if err := s.producer.Publiser(ctx, intern); err != nil {
		s.log.Error("publish behov failed, request stays pending",
			zap.String("behov_id", intern.BehovID),
			zap.Error(err),
		)
	}

	return intern, nil
}

func (s *service) GetByID(ctx context.Context, behovID string) (behovdomain.InternBehov, error) {
	return s.repo.FindByID(ctx, s.db, behovID)
}

func (s *service) Status(ctx context.Context, behovID string) (behovdomain.BehovStatus, error) {
	return s.repo.Status(ctx, s.db, behovID)
}
