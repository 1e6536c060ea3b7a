package vaktmester

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/clock"
	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/ident"
	"github.com/openytelse/regelport/internal/observability/metrics"
	subsumsjonrepo "github.com/openytelse/regelport/internal/subsumsjon/repository"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testIDs = ident.NewSource()

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, ddl := range []string{
		`CREATE TABLE behandling (
			behandlings_id TEXT PRIMARY KEY,
			regelkontekst_id TEXT NOT NULL,
			regelkontekst_type TEXT NOT NULL,
			created DATETIME NOT NULL,
			UNIQUE (regelkontekst_id, regelkontekst_type)
		)`,
		`CREATE TABLE behov (
			behov_id TEXT PRIMARY KEY,
			behandlings_id TEXT NOT NULL,
			aktor_id TEXT NOT NULL,
			beregnings_dato DATETIME NOT NULL,
			data TEXT NOT NULL,
			created DATETIME NOT NULL
		)`,
		`CREATE TABLE subsumsjon (
			behov_id TEXT PRIMARY KEY,
			behandlings_id TEXT NOT NULL,
			data TEXT NOT NULL,
			brukt BOOLEAN NOT NULL DEFAULT 0,
			created DATETIME NOT NULL
		)`,
		`CREATE TABLE subsumsjon_brukt (
			id TEXT PRIMARY KEY,
			ekstern_id INTEGER NOT NULL,
			behandlings_id TEXT NOT NULL,
			arena_ts DATETIME NOT NULL,
			created DATETIME NOT NULL
		)`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newVaktmester(t *testing.T, db *gorm.DB, fc *clock.FakeClock) (*Vaktmester, subsumsjondomain.Repository) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	repo := subsumsjonrepo.Provide()
	v := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repo,
		Clock: fc,
		Retention: config.NewStaticRetentionHolder(config.RetentionConfig{
			LifespanDays: 180,
			RunInterval:  time.Hour,
		}),
		GenID:   node,
		Metrics: m,
	})
	return v, repo
}

// plantSubsumsjon seeds the behandling/behov pair plus a subsumsjon created
// at the given time. Returns the behovId and the sats sub-result id.
func plantSubsumsjon(t *testing.T, db *gorm.DB, repo subsumsjondomain.Repository, created time.Time) (string, string) {
	t.Helper()

	behandlingsID := testIDs.New()
	behovID := testIDs.New()
	satsID := testIDs.New()

	err := db.Exec(
		`INSERT INTO behandling (behandlings_id, regelkontekst_id, regelkontekst_type, created) VALUES (?, ?, ?, ?)`,
		behandlingsID, behovID, "SOKNAD", created,
	).Error
	if err != nil {
		t.Fatalf("seed behandling: %v", err)
	}
	err = db.Exec(
		`INSERT INTO behov (behov_id, behandlings_id, aktor_id, beregnings_dato, data, created) VALUES (?, ?, ?, ?, ?, ?)`,
		behovID, behandlingsID, "123", created, `{}`, created,
	).Error
	if err != nil {
		t.Fatalf("seed behov: %v", err)
	}

	dagsats := 1431
	sub := subsumsjondomain.Subsumsjon{
		BehovID:      behovID,
		Faktum:       subsumsjondomain.Faktum{AktørID: "123", RegelKontekst: behovdomain.RegelKontekst{ID: behovID, Type: behovdomain.KontekstSoknad}},
		SatsResultat: &subsumsjondomain.SatsResultat{SubsumsjonsID: satsID, DagSats: &dagsats},
	}
	if _, err := repo.Insert(context.Background(), db, sub, created); err != nil {
		t.Fatalf("seed subsumsjon: %v", err)
	}
	return behovID, satsID
}

func TestRyddDeletesOnlyExpiredUnused(t *testing.T) {
	db := setupDB(t)
	now := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	v, repo := newVaktmester(t, db, fc)
	ctx := context.Background()

	gammelUbrukt, _ := plantSubsumsjon(t, db, repo, now.Add(-200*24*time.Hour))
	gammelBrukt, bruktSatsID := plantSubsumsjon(t, db, repo, now.Add(-200*24*time.Hour))
	ung, _ := plantSubsumsjon(t, db, repo, now.Add(-10*24*time.Hour))

	err := repo.MarkerSomBrukt(ctx, db, subsumsjondomain.InternSubsumsjonBrukt{ID: bruktSatsID})
	if err != nil {
		t.Fatalf("marker som brukt: %v", err)
	}

	deleted, err := v.Rydd(ctx)
	if err != nil {
		t.Fatalf("rydd: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}

	if _, err := repo.FindByBehovID(ctx, db, gammelUbrukt); err != subsumsjondomain.ErrSubsumsjonNotFound {
		t.Fatalf("expected expired unused subsumsjon deleted, got %v", err)
	}
	if _, err := repo.FindByBehovID(ctx, db, gammelBrukt); err != nil {
		t.Fatalf("expected brukt subsumsjon kept: %v", err)
	}
	if _, err := repo.FindByBehovID(ctx, db, ung); err != nil {
		t.Fatalf("expected young subsumsjon kept: %v", err)
	}
}

func TestRyddAfterClockAdvance(t *testing.T) {
	db := setupDB(t)
	now := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	v, repo := newVaktmester(t, db, fc)
	ctx := context.Background()

	behovID, _ := plantSubsumsjon(t, db, repo, now)

	deleted, err := v.Rydd(ctx)
	if err != nil {
		t.Fatalf("rydd: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected nothing expired yet, got %d", deleted)
	}

	fc.Advance(181 * 24 * time.Hour)

	deleted, err = v.Rydd(ctx)
	if err != nil {
		t.Fatalf("rydd: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected expiry after advance, got %d", deleted)
	}
	if _, err := repo.FindByBehovID(ctx, db, behovID); err != subsumsjondomain.ErrSubsumsjonNotFound {
		t.Fatalf("expected subsumsjon deleted, got %v", err)
	}
}

func TestMarkerBrukteSubsumsjonerReconciles(t *testing.T) {
	db := setupDB(t)
	now := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	fc := clock.NewFakeClock(now)
	v, repo := newVaktmester(t, db, fc)
	ctx := context.Background()

	behovID, satsID := plantSubsumsjon(t, db, repo, now)

	// Usage event landed, but the mark itself is missing (e.g. the event
	// arrived before the subsumsjon did).
	_, err := repo.InsertBrukt(ctx, db, subsumsjondomain.InternSubsumsjonBrukt{
		ID:            satsID,
		EksternID:     29501880,
		BehandlingsID: testIDs.New(),
		ArenaTS:       now,
	}, now)
	if err != nil {
		t.Fatalf("insert brukt: %v", err)
	}

	if err := v.MarkerBrukteSubsumsjoner(ctx); err != nil {
		t.Fatalf("marker brukte: %v", err)
	}

	fc.Advance(200 * 24 * time.Hour)
	deleted, err := v.Rydd(ctx)
	if err != nil {
		t.Fatalf("rydd: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected reconciled subsumsjon exempt from deletion, got %d", deleted)
	}
	if _, err := repo.FindByBehovID(ctx, db, behovID); err != nil {
		t.Fatalf("expected subsumsjon kept: %v", err)
	}
}
