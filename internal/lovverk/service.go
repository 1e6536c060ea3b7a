package lovverk

import (
	"context"
	"errors"
	"fmt"

	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/config"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lovverk",
	fx.Provide(New),
)

// ErrMinsteinntektMangler marks a prior subsumsjon without a
// minimum-income sub-result, which the comparison cannot work without.
var ErrMinsteinntektMangler = errors.New("minsteinntekt_resultat_missing")

// Service re-runs historical requests under a new as-of date and reports
// whether any outcome changed, meaning the consumer must re-fetch a
// determination.
type Service interface {
	KreverNyBehandling(ctx context.Context, subsumsjonsIDer []string, dato behovdomain.Dato) (bool, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	BehovSvc  behovdomain.Service
	SubsumSvc subsumsjondomain.Service
	Config    config.Config
}

type service struct {
	log       *zap.Logger
	behovSvc  behovdomain.Service
	subsumSvc subsumsjondomain.Service
	poll      PollConfig
}

func New(p Params) Service {
	return &service{
		log:       p.Log.Named("lovverk"),
		behovSvc:  p.BehovSvc,
		subsumSvc: p.SubsumSvc,
		poll: PollConfig{
			MaxAttempts: p.Config.PollMaxAttempts,
			Interval:    p.Config.PollInterval,
		},
	}
}

func (s *service) KreverNyBehandling(ctx context.Context, subsumsjonsIDer []string, dato behovdomain.Dato) (bool, error) {
	tidligere, err := s.subsumSvc.GetByResultIDs(ctx, subsumsjonsIDer)
	if err != nil {
		return false, err
	}

	for _, prior := range tidligere {
		endret, err := s.vurder(ctx, prior, dato)
		if err != nil {
			return false, err
		}
		if endret {
			// One changed outcome is enough to demand a new determination.
			return true, nil
		}
	}
	return false, nil
}

// vurder re-submits the prior request with the new date and compares the
// minimum-income outcome once the fresh result lands.
func (s *service) vurder(ctx context.Context, prior subsumsjondomain.Subsumsjon, dato behovdomain.Dato) (bool, error) {
	if prior.MinsteinntektResultat == nil {
		return false, fmt.Errorf("%w: behov %s", ErrMinsteinntektMangler, prior.BehovID)
	}

	gammel, err := s.behovSvc.GetByID(ctx, prior.BehovID)
	if err != nil {
		return false, err
	}

	nyBehov := behovdomain.Behov{
		RegelKontekst: behovdomain.RegelKontekst{
			ID:   gammel.BehandlingsID.RegelKontekst.ID,
			Type: behovdomain.KontekstRevurdering,
		},
		AktørID:        gammel.AktørID,
		BeregningsDato: dato,
		Fakta:          gammel.Fakta,
	}

	intern, err := s.behovSvc.Opprett(ctx, nyBehov)
	if err != nil {
		return false, err
	}

	log := s.log.With(
		zap.String("prior_behov_id", prior.BehovID),
		zap.String("behov_id", intern.BehovID),
	)

	err = pollUntil(ctx, s.poll, func(ctx context.Context) (bool, error) {
		status, err := s.behovSvc.Status(ctx, intern.BehovID)
		if err != nil {
			return false, err
		}
		return status.Status == behovdomain.StatusDone, nil
	})
	if err != nil {
		log.Error("re-run did not complete", zap.Error(err))
		return false, err
	}

	ny, err := s.subsumSvc.GetByBehovID(ctx, intern.BehovID)
	if err != nil {
		return false, err
	}
	if ny.MinsteinntektResultat == nil {
		return false, fmt.Errorf("%w: behov %s", ErrMinsteinntektMangler, intern.BehovID)
	}

	endret := ny.MinsteinntektResultat.OppfyllerMinsteinntekt != prior.MinsteinntektResultat.OppfyllerMinsteinntekt
	log.Info("re-run compared", zap.Bool("endret", endret), zap.String("dato", dato.String()))
	return endret, nil
}
