package service

import (
	"context"
	"testing"
	"time"

	"github.com/openytelse/regelport/internal/clock"
	"github.com/openytelse/regelport/internal/observability/metrics"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// repoStub keeps subsumsjons in memory with the same idempotency contract
// as the real store.
type repoStub struct {
	subsumsjoner map[string]subsumsjondomain.Subsumsjon
	brukte       map[string]subsumsjondomain.InternSubsumsjonBrukt
	markert      []string
}

func newRepoStub() *repoStub {
	return &repoStub{
		subsumsjoner: make(map[string]subsumsjondomain.Subsumsjon),
		brukte:       make(map[string]subsumsjondomain.InternSubsumsjonBrukt),
	}
}

func (r *repoStub) Insert(_ context.Context, _ *gorm.DB, sub subsumsjondomain.Subsumsjon, _ time.Time) (int64, error) {
	if _, ok := r.subsumsjoner[sub.BehovID]; ok {
		return 0, nil
	}
	r.subsumsjoner[sub.BehovID] = sub
	return 1, nil
}

func (r *repoStub) FindByBehovID(_ context.Context, _ *gorm.DB, behovID string) (subsumsjondomain.Subsumsjon, error) {
	sub, ok := r.subsumsjoner[behovID]
	if !ok {
		return subsumsjondomain.Subsumsjon{}, subsumsjondomain.ErrSubsumsjonNotFound
	}
	return sub, nil
}

func (r *repoStub) FindByResultID(_ context.Context, _ *gorm.DB, subsumsjonsID string) (subsumsjondomain.Subsumsjon, error) {
	for _, sub := range r.subsumsjoner {
		for _, id := range sub.ResultatIDer() {
			if id == subsumsjonsID {
				return sub, nil
			}
		}
	}
	return subsumsjondomain.Subsumsjon{}, subsumsjondomain.ErrSubsumsjonNotFound
}

func (r *repoStub) FindByResultIDs(ctx context.Context, db *gorm.DB, ids []string) ([]subsumsjondomain.Subsumsjon, error) {
	out := make([]subsumsjondomain.Subsumsjon, 0, len(ids))
	for _, id := range ids {
		sub, err := r.FindByResultID(ctx, db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (r *repoStub) MarkerSomBrukt(_ context.Context, _ *gorm.DB, brukt subsumsjondomain.InternSubsumsjonBrukt) error {
	r.markert = append(r.markert, brukt.ID)
	return nil
}

func (r *repoStub) InsertBrukt(_ context.Context, _ *gorm.DB, brukt subsumsjondomain.InternSubsumsjonBrukt, _ time.Time) (int64, error) {
	if _, ok := r.brukte[brukt.ID]; ok {
		return 0, nil
	}
	r.brukte[brukt.ID] = brukt
	return 1, nil
}

func (r *repoStub) ListBrukte(context.Context, *gorm.DB) ([]subsumsjondomain.InternSubsumsjonBrukt, error) {
	out := make([]subsumsjondomain.InternSubsumsjonBrukt, 0, len(r.brukte))
	for _, b := range r.brukte {
		out = append(out, b)
	}
	return out, nil
}

func (r *repoStub) Slettekandidater(context.Context, *gorm.DB, time.Time) ([]subsumsjondomain.Slettekandidat, error) {
	return nil, nil
}

func (r *repoStub) Delete(_ context.Context, _ *gorm.DB, behovID string) error {
	delete(r.subsumsjoner, behovID)
	return nil
}

func newTestService(t *testing.T) (subsumsjondomain.Service, *repoStub) {
	t.Helper()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	repo := newRepoStub()
	svc := New(Params{
		Log:     zap.NewNop(),
		Repo:    repo,
		Clock:   clock.NewFakeClock(time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Metrics: m,
	})
	return svc, repo
}

func TestLagreIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	sub := subsumsjondomain.Subsumsjon{
		BehovID:      "01hv",
		SatsResultat: &subsumsjondomain.SatsResultat{SubsumsjonsID: "01sa"},
	}

	inserted, err := svc.Lagre(ctx, sub)
	require.NoError(t, err)
	require.EqualValues(t, 1, inserted)

	inserted, err = svc.Lagre(ctx, sub)
	require.NoError(t, err)
	require.EqualValues(t, 0, inserted)

	require.Len(t, repo.subsumsjoner, 1)
}

func TestRegistrerBruktMarksOwner(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Lagre(ctx, subsumsjondomain.Subsumsjon{
		BehovID:      "01hv",
		SatsResultat: &subsumsjondomain.SatsResultat{SubsumsjonsID: "01sa"},
	})
	require.NoError(t, err)

	brukt := subsumsjondomain.InternSubsumsjonBrukt{
		ID:            "01sa",
		EksternID:     29501880,
		BehandlingsID: "01beh",
		ArenaTS:       time.Now().UTC(),
	}
	require.NoError(t, svc.RegistrerBrukt(ctx, brukt))

	require.Contains(t, repo.brukte, "01sa")
	require.Equal(t, []string{"01sa"}, repo.markert)

	// Replay is harmless: the record is already stored, the mark repeats.
	require.NoError(t, svc.RegistrerBrukt(ctx, brukt))
	require.Len(t, repo.brukte, 1)
}
