package repository

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/ident"
	pkgdb "github.com/openytelse/regelport/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	ids *ident.Source
}

func Provide(ids *ident.Source) behovdomain.Repository {
	return &repo{ids: ids}
}

type behandlingRow struct {
	BehandlingsID     string    `gorm:"column:behandlings_id"`
	RegelkontekstID   string    `gorm:"column:regelkontekst_id"`
	RegelkontekstType string    `gorm:"column:regelkontekst_type"`
	Created           time.Time `gorm:"column:created"`
}

// Exported so reflection can set its fields when it is embedded in a scan
// destination; gorm silently skips unexported embedded structs.
type BehovRow struct {
	BehovID        string    `gorm:"column:behov_id"`
	BehandlingsID  string    `gorm:"column:behandlings_id"`
	AktorID        string    `gorm:"column:aktor_id"`
	BeregningsDato time.Time `gorm:"column:beregnings_dato"`
	Data           []byte    `gorm:"column:data"`
	Created        time.Time `gorm:"column:created"`
}

func (r *repo) HentEllerOpprettBehandling(ctx context.Context, db *gorm.DB, kontekst behovdomain.RegelKontekst) (behovdomain.BehandlingsID, error) {
	existing, err := r.HentBehandlingVedKontekst(ctx, db, kontekst)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, behovdomain.ErrBehandlingNotFound) {
		return behovdomain.BehandlingsID{}, err
	}

	id := r.ids.New()
	err = db.WithContext(ctx).Exec(
		`INSERT INTO behandling (behandlings_id, regelkontekst_id, regelkontekst_type, created)
		 VALUES (?, ?, ?, ?)`,
		id,
		kontekst.ID,
		string(kontekst.Type),
		time.Now().UTC(),
	).Error
	if err != nil {
		// Lost the race on the unique kontekst constraint: another caller
		// created the mapping first, so hand back theirs.
		if pkgdb.IsDuplicateKeyErr(err) {
			return r.HentBehandlingVedKontekst(ctx, db, kontekst)
		}
		return behovdomain.BehandlingsID{}, pkgdb.NewStoreError("opprett behandling", err)
	}

	return behovdomain.BehandlingsID{ID: id, RegelKontekst: kontekst}, nil
}

func (r *repo) HentBehandlingVedKontekst(ctx context.Context, db *gorm.DB, kontekst behovdomain.RegelKontekst) (behovdomain.BehandlingsID, error) {
	var row behandlingRow
	err := db.WithContext(ctx).Raw(
		`SELECT behandlings_id, regelkontekst_id, regelkontekst_type, created
		 FROM behandling WHERE regelkontekst_id = ? AND regelkontekst_type = ?`,
		kontekst.ID,
		string(kontekst.Type),
	).Scan(&row).Error
	if err != nil {
		return behovdomain.BehandlingsID{}, pkgdb.NewStoreError("hent behandling", err)
	}
	if row.BehandlingsID == "" {
		return behovdomain.BehandlingsID{}, behovdomain.ErrBehandlingNotFound
	}
	return behovdomain.BehandlingsID{
		ID: row.BehandlingsID,
		RegelKontekst: behovdomain.RegelKontekst{
			ID:   row.RegelkontekstID,
			Type: behovdomain.KontekstType(row.RegelkontekstType),
		},
	}, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, behov behovdomain.InternBehov, created time.Time) error {
	data, err := json.Marshal(behov.Fakta)
	if err != nil {
		return pkgdb.NewStoreError("opprett behov", err)
	}

	err = db.WithContext(ctx).Exec(
		`INSERT INTO behov (behov_id, behandlings_id, aktor_id, beregnings_dato, data, created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		behov.BehovID,
		behov.BehandlingsID.ID,
		behov.AktørID,
		behov.BeregningsDato.Time,
		string(data),
		created,
	).Error
	if err != nil {
		return pkgdb.NewStoreError("opprett behov", err)
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, behovID string) (behovdomain.InternBehov, error) {
	var row struct {
		BehovRow
		RegelkontekstID   string `gorm:"column:regelkontekst_id"`
		RegelkontekstType string `gorm:"column:regelkontekst_type"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT b.behov_id, b.behandlings_id, b.aktor_id, b.beregnings_dato, b.data, b.created,
		        beh.regelkontekst_id, beh.regelkontekst_type
		 FROM behov b
		 JOIN behandling beh ON beh.behandlings_id = b.behandlings_id
		 WHERE b.behov_id = ?`,
		behovID,
	).Scan(&row).Error
	if err != nil {
		return behovdomain.InternBehov{}, pkgdb.NewStoreError("hent behov", err)
	}
	if row.BehovID == "" {
		return behovdomain.InternBehov{}, behovdomain.ErrBehovNotFound
	}

	var fakta behovdomain.Fakta
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &fakta); err != nil {
			return behovdomain.InternBehov{}, pkgdb.NewStoreError("hent behov", err)
		}
	}

	return behovdomain.InternBehov{
		BehovID: row.BehovID,
		AktørID: row.AktorID,
		BehandlingsID: behovdomain.BehandlingsID{
			ID: row.BehandlingsID,
			RegelKontekst: behovdomain.RegelKontekst{
				ID:   row.RegelkontekstID,
				Type: behovdomain.KontekstType(row.RegelkontekstType),
			},
		},
		BeregningsDato: behovdomain.Dato{Time: row.BeregningsDato.UTC()},
		Fakta:          fakta,
	}, nil
}

func (r *repo) Status(ctx context.Context, db *gorm.DB, behovID string) (behovdomain.BehovStatus, error) {
	var row struct {
		BehovID string `gorm:"column:behov_id"`
		Done    bool   `gorm:"column:done"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT b.behov_id, s.behov_id IS NOT NULL AS done
		 FROM behov b
		 LEFT JOIN subsumsjon s ON s.behov_id = b.behov_id
		 WHERE b.behov_id = ?`,
		behovID,
	).Scan(&row).Error
	if err != nil {
		return behovdomain.BehovStatus{}, pkgdb.NewStoreError("behov status", err)
	}
	if row.BehovID == "" {
		return behovdomain.BehovStatus{}, behovdomain.ErrBehovNotFound
	}
	if row.Done {
		return behovdomain.BehovStatus{Status: behovdomain.StatusDone, BehovID: row.BehovID}, nil
	}
	return behovdomain.BehovStatus{Status: behovdomain.StatusPending, BehovID: row.BehovID}, nil
}
