package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// HentEllerOpprettBehandling resolves the correlation id for a kontekst,
	// creating it on first use. Safe under concurrent callers racing on the
	// same kontekst: first writer wins via the unique constraint, losers
	// read back the winner's row.
	HentEllerOpprettBehandling(ctx context.Context, db *gorm.DB, kontekst RegelKontekst) (BehandlingsID, error)

	// HentBehandlingVedKontekst returns an existing correlation without
	// creating one.
	HentBehandlingVedKontekst(ctx context.Context, db *gorm.DB, kontekst RegelKontekst) (BehandlingsID, error)

	Insert(ctx context.Context, db *gorm.DB, behov InternBehov, created time.Time) error
	FindByID(ctx context.Context, db *gorm.DB, behovID string) (InternBehov, error)

	// Status derives pending/done from the presence of a subsumsjon row.
	Status(ctx context.Context, db *gorm.DB, behovID string) (BehovStatus, error)
}
