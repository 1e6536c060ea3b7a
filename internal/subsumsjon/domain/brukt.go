package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// SubsumsjonBrukt is the external usage-notification event produced by the
// case-management system when it has acted on a sub-result.
type SubsumsjonBrukt struct {
	ID           string `json:"id"`
	EksternID    string `json:"eksternId"`
	ArenaTS      string `json:"arenaTs"`
	TS           int64  `json:"ts"`
	Utfall       string `json:"utfall"`
	VedtakStatus string `json:"vedtakStatus"`
}

// Avbrutt reports whether the event represents a closed case with an
// aborted outcome, which is not genuine usage and must be filtered out.
func (e SubsumsjonBrukt) Avbrutt() bool {
	return e.VedtakStatus == "AVSLU" && e.Utfall == "AVBRUTT"
}

// InternSubsumsjonBrukt is the persisted usage record, keyed by the
// sub-result id the consumer acted on. Marks the owning subsumsjon brukt,
// which exempts it from retention deletion permanently.
type InternSubsumsjonBrukt struct {
	ID            string    `json:"id"`
	EksternID     int64     `json:"eksternId"`
	BehandlingsID string    `json:"behandlingsId"`
	ArenaTS       time.Time `json:"arenaTs"`
}

var ErrUgyldigEksternID = errors.New("invalid_ekstern_id")

// ParseEksternID parses the external numeric case id, which may arrive in
// scientific notation (e.g. "1.2345678E7") and must resolve to an exact
// integer.
func ParseEksternID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrUgyldigEksternID
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}

	f, _, err := big.ParseFloat(trimmed, 10, 128, big.ToNearestEven)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUgyldigEksternID, raw)
	}
	n, acc := f.Int64()
	if acc != big.Exact {
		return 0, fmt.Errorf("%w: %q is not an exact integer", ErrUgyldigEksternID, raw)
	}
	return n, nil
}

var arenaLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseArenaTS parses the external event timestamp, which arrives without a
// zone offset.
func ParseArenaTS(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range arenaLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid arenaTs %q", raw)
}
