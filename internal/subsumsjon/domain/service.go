package domain

import "context"

type Service interface {
	// Lagre persists an accepted result. Returns rows inserted (0 on an
	// idempotent duplicate).
	Lagre(ctx context.Context, sub Subsumsjon) (int64, error)

	GetByBehovID(ctx context.Context, behovID string) (Subsumsjon, error)
	GetByResultID(ctx context.Context, subsumsjonsID string) (Subsumsjon, error)
	GetByResultIDs(ctx context.Context, subsumsjonsIDs []string) ([]Subsumsjon, error)

	// RegistrerBrukt persists a usage record and flags the owning
	// subsumsjon. Both halves are idempotent, so replays are safe.
	RegistrerBrukt(ctx context.Context, brukt InternSubsumsjonBrukt) error
}
