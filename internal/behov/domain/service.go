package domain

import "context"

// Producer publishes an accepted behov to the rule engine topic.
type Producer interface {
	Publiser(ctx context.Context, behov InternBehov) error
}

type Service interface {
	// Opprett persists a new behov and publishes it to the rule engine.
	// The behov is durably pending before publish is attempted, so a
	// publish failure leaves a recoverable request, not a lost one.
	Opprett(ctx context.Context, behov Behov) (InternBehov, error)

	GetByID(ctx context.Context, behovID string) (InternBehov, error)
	Status(ctx context.Context, behovID string) (BehovStatus, error)
}
