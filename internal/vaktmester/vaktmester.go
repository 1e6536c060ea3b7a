package vaktmester

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openytelse/regelport/internal/clock"
	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/observability/metrics"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jobTimeout = 5 * time.Minute

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      subsumsjondomain.Repository
	Clock     clock.Clock
	Retention *config.RetentionHolder
	GenID     *snowflake.Node
	Metrics   *metrics.Metrics
}

// Vaktmester deletes stale unused subsumsjons and reconciles brukt markers
// that arrived before their subsumsjon did.
type Vaktmester struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      subsumsjondomain.Repository
	clock     clock.Clock
	retention *config.RetentionHolder
	genID     *snowflake.Node
	metrics   *metrics.Metrics
}

func New(p Params) *Vaktmester {
	return &Vaktmester{
		db:        p.DB,
		log:       p.Log.Named("vaktmester").With(zap.String("component", "vaktmester")),
		repo:      p.Repo,
		clock:     p.Clock,
		retention: p.Retention,
		genID:     p.GenID,
		metrics:   p.Metrics,
	}
}

// Rydd deletes every unused subsumsjon older than the retention lifespan.
// Rows marked brukt are never touched regardless of age. Returns the number
// of rows deleted.
func (v *Vaktmester) Rydd(ctx context.Context) (int, error) {
	lifespan := v.retention.Get().Lifespan()
	cutoff := v.clock.Now().Add(-lifespan)

	kandidater, err := v.repo.Slettekandidater(ctx, v.db, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, kandidat := range kandidater {
		if err := v.repo.Delete(ctx, v.db, kandidat.BehovID); err != nil {
			return deleted, err
		}
		v.metrics.SubsumsjonSlettet.Inc()
		deleted++
	}

	v.log.Info("rydd finished",
		zap.Int("deleted", deleted),
		zap.Time("cutoff", cutoff),
		zap.Duration("lifespan", lifespan),
	)
	return deleted, nil
}

// MarkerBrukteSubsumsjoner replays every stored usage record through the
// brukt marker. Marking is idempotent, so the pass is safe to re-run; it
// catches records whose subsumsjon arrived after the usage event, or whose
// earlier mark failed.
func (v *Vaktmester) MarkerBrukteSubsumsjoner(ctx context.Context) error {
	brukte, err := v.repo.ListBrukte(ctx, v.db)
	if err != nil {
		return err
	}

	for i, brukt := range brukte {
		if err := v.repo.MarkerSomBrukt(ctx, v.db, brukt); err != nil {
			return fmt.Errorf("marker subsumsjon %s: %w", brukt.ID, err)
		}
		if (i+1)%100 == 0 {
			v.log.Info("marking brukte subsumsjoner", zap.Int("processed", i+1))
		}
	}

	v.log.Info("marker brukte finished", zap.Int("processed", len(brukte)))
	return nil
}

// RunForever runs both jobs on the configured interval until ctx is
// canceled.
func (v *Vaktmester) RunForever(ctx context.Context) {
	for {
		interval := v.retention.Get().RunInterval
		select {
		case <-ctx.Done():
			v.log.Info("vaktmester stopped")
			return
		case <-time.After(interval):
		}

		v.runJob(ctx, "marker_brukte", func(ctx context.Context) error {
			return v.MarkerBrukteSubsumsjoner(ctx)
		})
		v.runJob(ctx, "rydd", func(ctx context.Context) error {
			_, err := v.Rydd(ctx)
			return err
		})
	}
}

func (v *Vaktmester) runJob(parent context.Context, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	start := v.clock.Now()
	log := v.log.With(
		zap.String("job", name),
		zap.String("run_id", v.genID.Generate().String()),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := fn(ctx); err != nil {
		log.Error("job failed", zap.Error(err), zap.Duration("elapsed", v.clock.Now().Sub(start)))
		return
	}
	log.Debug("job done", zap.Duration("elapsed", v.clock.Now().Sub(start)))
}
