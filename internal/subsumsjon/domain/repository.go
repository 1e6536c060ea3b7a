package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Slettekandidat identifies a subsumsjon eligible for retention deletion.
type Slettekandidat struct {
	BehovID string
	Created time.Time
}

type Repository interface {
	// Insert persists a subsumsjon. Returns 1 on insert, 0 when a row for
	// the behovId already exists (idempotent no-op). Fails with a store
	// error when no matching behov exists.
	Insert(ctx context.Context, db *gorm.DB, sub Subsumsjon, created time.Time) (int64, error)

	FindByBehovID(ctx context.Context, db *gorm.DB, behovID string) (Subsumsjon, error)

	// FindByResultID resolves a subsumsjon by any of its four nested
	// sub-result ids.
	FindByResultID(ctx context.Context, db *gorm.DB, subsumsjonsID string) (Subsumsjon, error)
	FindByResultIDs(ctx context.Context, db *gorm.DB, subsumsjonsIDs []string) ([]Subsumsjon, error)

	// MarkerSomBrukt flags the subsumsjon owning the used sub-result.
	// No-op when already flagged.
	MarkerSomBrukt(ctx context.Context, db *gorm.DB, brukt InternSubsumsjonBrukt) error

	// InsertBrukt persists a usage record, idempotent on its id.
	InsertBrukt(ctx context.Context, db *gorm.DB, brukt InternSubsumsjonBrukt, created time.Time) (int64, error)
	ListBrukte(ctx context.Context, db *gorm.DB) ([]InternSubsumsjonBrukt, error)

	// Slettekandidater lists unused subsumsjons created before the cutoff.
	Slettekandidater(ctx context.Context, db *gorm.DB, eldreEnn time.Time) ([]Slettekandidat, error)
	Delete(ctx context.Context, db *gorm.DB, behovID string) error
}
