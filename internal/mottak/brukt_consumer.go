package mottak

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"
	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/observability/metrics"
	"github.com/openytelse/regelport/internal/regelbus"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BruktMottak consumes the case-management system's usage notifications and
// turns them into retention-exempting brukt markers.
type BruktMottak struct {
	consumer  *regelbus.Consumer
	db        *gorm.DB
	behovRepo behovdomain.Repository
	svc       subsumsjondomain.Service
	topic     string
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type BruktParams struct {
	fx.In

	Consumer  *regelbus.Consumer
	DB        *gorm.DB
	BehovRepo behovdomain.Repository
	Svc       subsumsjondomain.Service
	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics
}

func NewBruktMottak(p BruktParams) *BruktMottak {
	return &BruktMottak{
		consumer:  p.Consumer,
		db:        p.DB,
		behovRepo: p.BehovRepo,
		svc:       p.Svc,
		topic:     p.Config.BruktTopic,
		log:       p.Log.Named("mottak").With(zap.String("component", "brukt")),
		metrics:   p.Metrics,
	}
}

// Run blocks until ctx is canceled.
func (m *BruktMottak) Run(ctx context.Context) {
	m.consumer.Run(ctx, m.topic, func(ctx context.Context, msg regelbus.Message) {
		var event subsumsjondomain.SubsumsjonBrukt
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			m.log.Error("malformed brukt event", zap.String("message_id", msg.ID), zap.Error(err))
			return
		}
		if err := m.behandle(ctx, event); err != nil {
			m.log.Error("brukt event failed",
				zap.String("id", event.ID),
				zap.String("ekstern_id", event.EksternID),
				zap.Error(err),
			)
		}
	})
}

func (m *BruktMottak) behandle(ctx context.Context, event subsumsjondomain.SubsumsjonBrukt) error {
	// A closed case with an aborted outcome never used the result.
	if event.Avbrutt() {
		m.metrics.BruktEventFiltrert.Inc()
		m.log.Debug("aborted case filtered", zap.String("id", event.ID))
		return nil
	}

	eksternID, err := subsumsjondomain.ParseEksternID(event.EksternID)
	if err != nil {
		return err
	}
	arenaTS, err := subsumsjondomain.ParseArenaTS(event.ArenaTS)
	if err != nil {
		return err
	}

	behandling, err := m.behovRepo.HentBehandlingVedKontekst(ctx, m.db, behovdomain.RegelKontekst{
		ID:   strconv.FormatInt(eksternID, 10),
		Type: behovdomain.KontekstVedtak,
	})
	if err != nil {
		return err
	}

	return m.svc.RegistrerBrukt(ctx, subsumsjondomain.InternSubsumsjonBrukt{
		ID:            event.ID,
		EksternID:     eksternID,
		BehandlingsID: behandling.ID,
		ArenaTS:       arenaTS,
	})
}
