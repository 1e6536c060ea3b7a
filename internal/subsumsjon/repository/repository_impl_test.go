package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/ident"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	pkgdb "github.com/openytelse/regelport/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

var testIDs = ident.NewSource()

// seedBehov plants the behandling and behov rows a subsumsjon must refer to.
func seedBehov(t *testing.T, db *gorm.DB) string {
	t.Helper()

	behandlingsID := testIDs.New()
	behovID := testIDs.New()
	now := time.Now().UTC()

	err := db.Exec(
		`INSERT INTO behandling (behandlings_id, regelkontekst_id, regelkontekst_type, created) VALUES (?, ?, ?, ?)`,
		behandlingsID, behovID, "SOKNAD", now,
	).Error
	if err != nil {
		t.Fatalf("seed behandling: %v", err)
	}

	err = db.Exec(
		`INSERT INTO behov (behov_id, behandlings_id, aktor_id, beregnings_dato, data, created) VALUES (?, ?, ?, ?, ?, ?)`,
		behovID, behandlingsID, "123", now, `{}`, now,
	).Error
	if err != nil {
		t.Fatalf("seed behov: %v", err)
	}
	return behovID
}

type resultIDer struct {
	grunnlag      string
	minsteinntekt string
	periode       string
	sats          string
}

func komplettSubsumsjon(behovID string, oppfyller bool) (subsumsjondomain.Subsumsjon, resultIDer) {
	ids := resultIDer{
		grunnlag:      testIDs.New(),
		minsteinntekt: testIDs.New(),
		periode:       testIDs.New(),
		sats:          testIDs.New(),
	}
	grunnlag := 372084
	uker := 104
	dagsats := 1431

	sub := subsumsjondomain.Subsumsjon{
		BehovID: behovID,
		Faktum: subsumsjondomain.Faktum{
			AktørID:        "123",
			RegelKontekst:  behovdomain.RegelKontekst{ID: behovID, Type: behovdomain.KontekstSoknad},
			BeregningsDato: behovdomain.NyDato(2020, time.January, 13),
		},
		GrunnlagResultat:      &subsumsjondomain.GrunnlagResultat{SubsumsjonsID: ids.grunnlag, Grunnlag: &grunnlag},
		MinsteinntektResultat: &subsumsjondomain.MinsteinntektResultat{SubsumsjonsID: ids.minsteinntekt, OppfyllerMinsteinntekt: oppfyller},
		PeriodeResultat:       &subsumsjondomain.PeriodeResultat{SubsumsjonsID: ids.periode, AntallUker: &uker},
		SatsResultat:          &subsumsjondomain.SatsResultat{SubsumsjonsID: ids.sats, DagSats: &dagsats},
	}
	return sub, ids
}

func TestInsertIdempotent(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	behovID := seedBehov(t, db)
	sub, _ := komplettSubsumsjon(behovID, true)

	inserted, err := r.Insert(ctx, db, sub, time.Now().UTC())
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 row inserted, got %d", inserted)
	}

	inserted, err = r.Insert(ctx, db, sub, time.Now().UTC())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected duplicate to be a no-op, got %d rows", inserted)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM subsumsjon`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 subsumsjon row, got %d", count)
	}
}

func TestInsertRequiresExistingBehov(t *testing.T) {
	db := setupDB(t)
	r := &repo{}

	sub, _ := komplettSubsumsjon(testIDs.New(), true)

	_, err := r.Insert(context.Background(), db, sub, time.Now().UTC())
	if err == nil {
		t.Fatal("expected error for subsumsjon without behov")
	}
	var storeErr *pkgdb.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %T: %v", err, err)
	}
}

func TestFindByBehovID(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	behovID := seedBehov(t, db)
	sub, _ := komplettSubsumsjon(behovID, true)
	if _, err := r.Insert(ctx, db, sub, time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err := r.FindByBehovID(ctx, db, behovID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.BehovID != behovID {
		t.Fatalf("expected behovId %q, got %q", behovID, found.BehovID)
	}
	if found.GrunnlagResultat == nil || *found.GrunnlagResultat.Grunnlag != 372084 {
		t.Fatalf("expected grunnlag back, got %v", found.GrunnlagResultat)
	}

	if _, err := r.FindByBehovID(ctx, db, testIDs.New()); !errors.Is(err, subsumsjondomain.ErrSubsumsjonNotFound) {
		t.Fatalf("expected ErrSubsumsjonNotFound, got %v", err)
	}
}

func TestFindByResultIDMatchesEveryPath(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	behovID := seedBehov(t, db)
	sub, ids := komplettSubsumsjon(behovID, true)
	if _, err := r.Insert(ctx, db, sub, time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	for _, id := range []string{ids.grunnlag, ids.minsteinntekt, ids.periode, ids.sats} {
		found, err := r.FindByResultID(ctx, db, id)
		if err != nil {
			t.Fatalf("find by result %q: %v", id, err)
		}
		if found.BehovID != behovID {
			t.Fatalf("expected behovId %q for result %q, got %q", behovID, id, found.BehovID)
		}
	}

	if _, err := r.FindByResultID(ctx, db, testIDs.New()); !errors.Is(err, subsumsjondomain.ErrSubsumsjonNotFound) {
		t.Fatalf("expected ErrSubsumsjonNotFound, got %v", err)
	}
}

func TestMarkerSomBruktExemptsFromRetention(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	gammel := time.Now().UTC().Add(-200 * 24 * time.Hour)

	bruktBehov := seedBehov(t, db)
	bruktSub, bruktIDs := komplettSubsumsjon(bruktBehov, true)
	if _, err := r.Insert(ctx, db, bruktSub, gammel); err != nil {
		t.Fatalf("insert brukt: %v", err)
	}

	ubruktBehov := seedBehov(t, db)
	ubruktSub, _ := komplettSubsumsjon(ubruktBehov, false)
	if _, err := r.Insert(ctx, db, ubruktSub, gammel); err != nil {
		t.Fatalf("insert ubrukt: %v", err)
	}

	err := r.MarkerSomBrukt(ctx, db, subsumsjondomain.InternSubsumsjonBrukt{ID: bruktIDs.sats})
	if err != nil {
		t.Fatalf("marker som brukt: %v", err)
	}

	kandidater, err := r.Slettekandidater(ctx, db, time.Now().UTC().Add(-180*24*time.Hour))
	if err != nil {
		t.Fatalf("slettekandidater: %v", err)
	}
	if len(kandidater) != 1 {
		t.Fatalf("expected 1 kandidat, got %d", len(kandidater))
	}
	if kandidater[0].BehovID != ubruktBehov {
		t.Fatalf("expected unused subsumsjon as kandidat, got %q", kandidater[0].BehovID)
	}
}

func TestSlettekandidaterHonorsCutoff(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	ungBehov := seedBehov(t, db)
	ungSub, _ := komplettSubsumsjon(ungBehov, true)
	if _, err := r.Insert(ctx, db, ungSub, time.Now().UTC()); err != nil {
		t.Fatalf("insert ung: %v", err)
	}

	kandidater, err := r.Slettekandidater(ctx, db, time.Now().UTC().Add(-180*24*time.Hour))
	if err != nil {
		t.Fatalf("slettekandidater: %v", err)
	}
	if len(kandidater) != 0 {
		t.Fatalf("expected no kandidater for young rows, got %d", len(kandidater))
	}
}

func TestDelete(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	behovID := seedBehov(t, db)
	sub, _ := komplettSubsumsjon(behovID, true)
	if _, err := r.Insert(ctx, db, sub, time.Now().UTC()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := r.Delete(ctx, db, behovID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.FindByBehovID(ctx, db, behovID); !errors.Is(err, subsumsjondomain.ErrSubsumsjonNotFound) {
		t.Fatalf("expected row gone, got %v", err)
	}
}

func TestInsertBruktIdempotent(t *testing.T) {
	db := setupDB(t)
	r := &repo{}
	ctx := context.Background()

	brukt := subsumsjondomain.InternSubsumsjonBrukt{
		ID:            testIDs.New(),
		EksternID:     12345678,
		BehandlingsID: testIDs.New(),
		ArenaTS:       time.Now().UTC(),
	}

	inserted, err := r.InsertBrukt(ctx, db, brukt, time.Now().UTC())
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 row, got %d", inserted)
	}

	inserted, err = r.InsertBrukt(ctx, db, brukt, time.Now().UTC())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected replay to be a no-op, got %d rows", inserted)
	}

	brukte, err := r.ListBrukte(ctx, db)
	if err != nil {
		t.Fatalf("list brukte: %v", err)
	}
	if len(brukte) != 1 || brukte[0].EksternID != 12345678 {
		t.Fatalf("expected one stored record, got %v", brukte)
	}
}
