package ident

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("ident",
	fx.Provide(NewSource),
)

// ErrIllegalID marks an id that is not a valid ULID. Surfaced to HTTP
// clients as a 400, never as a server fault.
var ErrIllegalID = errors.New("illegal_ulid")

// Source issues ULIDs that are monotonic within the process, so ids sort
// by creation time even when generated in the same millisecond.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewSource() *Source {
	return &Source{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns a fresh ULID string in canonical lowercase form.
func (s *Source) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String())
}

// Parse validates a ULID in either case and returns its canonical form.
func Parse(raw string) (string, error) {
	id, err := ulid.ParseStrict(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", ErrIllegalID
	}
	return strings.ToLower(id.String()), nil
}
