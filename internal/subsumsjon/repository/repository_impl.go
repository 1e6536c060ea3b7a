package repository

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	pkgdb "github.com/openytelse/regelport/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subsumsjondomain.Repository {
	return &repo{}
}

type subsumsjonRow struct {
	BehovID       string    `gorm:"column:behov_id"`
	BehandlingsID string    `gorm:"column:behandlings_id"`
	Data          []byte    `gorm:"column:data"`
	Brukt         bool      `gorm:"column:brukt"`
	Created       time.Time `gorm:"column:created"`
}

type bruktRow struct {
	ID            string    `gorm:"column:id"`
	EksternID     int64     `gorm:"column:ekstern_id"`
	BehandlingsID string    `gorm:"column:behandlings_id"`
	ArenaTS       time.Time `gorm:"column:arena_ts"`
	Created       time.Time `gorm:"column:created"`
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub subsumsjondomain.Subsumsjon, created time.Time) (int64, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return 0, pkgdb.NewStoreError("insert subsumsjon", err)
	}

	behandlingsID, err := behandlingForBehov(ctx, db, sub.BehovID)
	if err != nil {
		return 0, err
	}

	tx := db.WithContext(ctx).Exec(
		`INSERT INTO subsumsjon (behov_id, behandlings_id, data, brukt, created)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (behov_id) DO NOTHING`,
		sub.BehovID,
		behandlingsID,
		string(data),
		false,
		created,
	)
	if tx.Error != nil {
		return 0, pkgdb.NewStoreError("insert subsumsjon", tx.Error)
	}
	return tx.RowsAffected, nil
}

// behandlingForBehov resolves the owning behandling and doubles as the
// referential-integrity gate: a subsumsjon without a prior behov is an
// upstream ordering bug, never silently persisted.
func behandlingForBehov(ctx context.Context, db *gorm.DB, behovID string) (string, error) {
	var row struct {
		BehandlingsID string `gorm:"column:behandlings_id"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT behandlings_id FROM behov WHERE behov_id = ?`,
		behovID,
	).Scan(&row).Error
	if err != nil {
		return "", pkgdb.NewStoreError("insert subsumsjon", err)
	}
	if row.BehandlingsID == "" {
		return "", pkgdb.NewStoreError("insert subsumsjon", errors.New("no behov for behovId "+behovID))
	}
	return row.BehandlingsID, nil
}

func (r *repo) FindByBehovID(ctx context.Context, db *gorm.DB, behovID string) (subsumsjondomain.Subsumsjon, error) {
	var row subsumsjonRow
	err := db.WithContext(ctx).Raw(
		`SELECT behov_id, behandlings_id, data, brukt, created FROM subsumsjon WHERE behov_id = ?`,
		behovID,
	).Scan(&row).Error
	if err != nil {
		return subsumsjondomain.Subsumsjon{}, pkgdb.NewStoreError("hent subsumsjon", err)
	}
	if row.BehovID == "" {
		return subsumsjondomain.Subsumsjon{}, subsumsjondomain.ErrSubsumsjonNotFound
	}
	return unmarshalSubsumsjon(row)
}

func (r *repo) FindByResultID(ctx context.Context, db *gorm.DB, subsumsjonsID string) (subsumsjondomain.Subsumsjon, error) {
	var row subsumsjonRow
	err := resultIDQuery(db.WithContext(ctx), subsumsjonsID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return subsumsjondomain.Subsumsjon{}, subsumsjondomain.ErrSubsumsjonNotFound
		}
		return subsumsjondomain.Subsumsjon{}, pkgdb.NewStoreError("hent subsumsjon ved resultat", err)
	}
	return unmarshalSubsumsjon(row)
}

func (r *repo) FindByResultIDs(ctx context.Context, db *gorm.DB, subsumsjonsIDs []string) ([]subsumsjondomain.Subsumsjon, error) {
	out := make([]subsumsjondomain.Subsumsjon, 0, len(subsumsjonsIDs))
	for _, id := range subsumsjonsIDs {
		sub, err := r.FindByResultID(ctx, db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (r *repo) MarkerSomBrukt(ctx context.Context, db *gorm.DB, brukt subsumsjondomain.InternSubsumsjonBrukt) error {
	err := resultIDQuery(db.WithContext(ctx), brukt.ID).Update("brukt", true).Error
	if err != nil {
		return pkgdb.NewStoreError("marker som brukt", err)
	}
	return nil
}

func (r *repo) InsertBrukt(ctx context.Context, db *gorm.DB, brukt subsumsjondomain.InternSubsumsjonBrukt, created time.Time) (int64, error) {
	tx := db.WithContext(ctx).Exec(
		`INSERT INTO subsumsjon_brukt (id, ekstern_id, behandlings_id, arena_ts, created)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		brukt.ID,
		brukt.EksternID,
		brukt.BehandlingsID,
		brukt.ArenaTS,
		created,
	)
	if tx.Error != nil {
		return 0, pkgdb.NewStoreError("insert subsumsjon brukt", tx.Error)
	}
	return tx.RowsAffected, nil
}

func (r *repo) ListBrukte(ctx context.Context, db *gorm.DB) ([]subsumsjondomain.InternSubsumsjonBrukt, error) {
	var rows []bruktRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, ekstern_id, behandlings_id, arena_ts, created FROM subsumsjon_brukt ORDER BY id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgdb.NewStoreError("list subsumsjon brukt", err)
	}

	out := make([]subsumsjondomain.InternSubsumsjonBrukt, 0, len(rows))
	for _, row := range rows {
		out = append(out, subsumsjondomain.InternSubsumsjonBrukt{
			ID:            row.ID,
			EksternID:     row.EksternID,
			BehandlingsID: row.BehandlingsID,
			ArenaTS:       row.ArenaTS.UTC(),
		})
	}
	return out, nil
}

func (r *repo) Slettekandidater(ctx context.Context, db *gorm.DB, eldreEnn time.Time) ([]subsumsjondomain.Slettekandidat, error) {
	var rows []subsumsjonRow
	err := db.WithContext(ctx).Raw(
		`SELECT behov_id, created FROM subsumsjon WHERE brukt = ? AND created < ? ORDER BY behov_id`,
		false,
		eldreEnn,
	).Scan(&rows).Error
	if err != nil {
		return nil, pkgdb.NewStoreError("slettekandidater", err)
	}

	out := make([]subsumsjondomain.Slettekandidat, 0, len(rows))
	for _, row := range rows {
		out = append(out, subsumsjondomain.Slettekandidat{BehovID: row.BehovID, Created: row.Created})
	}
	return out, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, behovID string) error {
	err := db.WithContext(ctx).Exec(
		`DELETE FROM subsumsjon WHERE behov_id = ?`,
		behovID,
	).Error
	if err != nil {
		return pkgdb.NewStoreError("delete subsumsjon", err)
	}
	return nil
}

// resultIDQuery matches a subsumsjon row on any of the four sub-result id
// paths inside the stored JSON document.
func resultIDQuery(db *gorm.DB, subsumsjonsID string) *gorm.DB {
	return db.Table("subsumsjon").
		Where(datatypes.JSONQuery("data").Equals(subsumsjonsID, "grunnlagResultat", "subsumsjonsId")).
		Or(datatypes.JSONQuery("data").Equals(subsumsjonsID, "minsteinntektResultat", "subsumsjonsId")).
		Or(datatypes.JSONQuery("data").Equals(subsumsjonsID, "periodeResultat", "subsumsjonsId")).
		Or(datatypes.JSONQuery("data").Equals(subsumsjonsID, "satsResultat", "subsumsjonsId"))
}

func unmarshalSubsumsjon(row subsumsjonRow) (subsumsjondomain.Subsumsjon, error) {
	var sub subsumsjondomain.Subsumsjon
	if err := json.Unmarshal(row.Data, &sub); err != nil {
		return subsumsjondomain.Subsumsjon{}, pkgdb.NewStoreError("unmarshal subsumsjon", err)
	}
	return sub, nil
}
