package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// KontekstType identifies what kind of business object a calculation is
// performed for.
type KontekstType string

const (
	KontekstSoknad      KontekstType = "SOKNAD"
	KontekstVeiledning  KontekstType = "VEILEDNING"
	KontekstVedtak      KontekstType = "VEDTAK"
	KontekstRevurdering KontekstType = "REVURDERING"
	KontekstForskudd    KontekstType = "FORSKUDD"
	KontekstCorona      KontekstType = "CORONA"
)

var ErrUkjentKontekstType = errors.New("unknown_kontekst_type")

func ParseKontekstType(raw string) (KontekstType, error) {
	switch t := KontekstType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case KontekstSoknad, KontekstVeiledning, KontekstVedtak, KontekstRevurdering, KontekstForskudd, KontekstCorona:
		return t, nil
	default:
		return "", ErrUkjentKontekstType
	}
}

// RegelKontekst references the external business object (e.g. a case) a
// calculation is performed for. The same kontekst can be recalculated, so
// it is not unique across time.
type RegelKontekst struct {
	ID   string       `json:"id"`
	Type KontekstType `json:"type"`
}

// BehandlingsID is the internal correlation key. For a given
// (kontekst id, kontekst type) pair at most one BehandlingsID is ever
// created; it is immutable and never deleted.
type BehandlingsID struct {
	ID            string        `json:"id"`
	RegelKontekst RegelKontekst `json:"regelKontekst"`
}

// Dato is a calendar date serialized as ISO "2006-01-02" on the wire.
type Dato struct {
	time.Time
}

func NyDato(year int, month time.Month, day int) Dato {
	return Dato{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDato(raw string) (Dato, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return Dato{}, fmt.Errorf("invalid dato %q: %w", raw, err)
	}
	return Dato{Time: t}, nil
}

func (d Dato) String() string {
	return d.Format("2006-01-02")
}

func (d Dato) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Dato) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseDato(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// InntektsPeriode bounds the income months used for an earlier calculation.
type InntektsPeriode struct {
	FørsteMåned string `json:"førsteMåned"`
	SisteMåned  string `json:"sisteMåned"`
}

// Fakta carries the optional facts a caller may pin on a calculation
// request. Absent fields are omitted on the wire, never written as null.
type Fakta struct {
	HarAvtjentVerneplikt         *bool            `json:"harAvtjentVerneplikt,omitempty"`
	OppfyllerKravTilFangstOgFisk *bool            `json:"oppfyllerKravTilFangstOgFisk,omitempty"`
	BruktInntektsPeriode         *InntektsPeriode `json:"bruktInntektsPeriode,omitempty"`
	AntallBarn                   *int             `json:"antallBarn,omitempty"`
	ManueltGrunnlag              *int             `json:"manueltGrunnlag,omitempty"`
	InntektsID                   *string          `json:"inntektsId,omitempty"`
	Lærling                      *bool            `json:"lærling,omitempty"`
}

// Behov is a submitted calculation request before the store has assigned
// identifiers to it.
type Behov struct {
	RegelKontekst  RegelKontekst `json:"regelKontekst"`
	AktørID        string        `json:"aktørId"`
	BeregningsDato Dato          `json:"beregningsDato"`
	Fakta
}

// InternBehov is the persisted request. Created once, immutable thereafter,
// owned exclusively by the store.
type InternBehov struct {
	BehovID        string        `json:"behovId"`
	AktørID        string        `json:"aktørId"`
	BehandlingsID  BehandlingsID `json:"behandlingsId"`
	BeregningsDato Dato          `json:"beregningsDato"`
	Fakta
}

// Status is derived, not stored: a behov is pending until its subsumsjon
// arrives.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusDone    Status = "DONE"
)

// BehovStatus pairs the derived status with the behov it answers for.
type BehovStatus struct {
	Status  Status
	BehovID string
}

var (
	ErrBehovNotFound      = errors.New("behov_not_found")
	ErrBehandlingNotFound = errors.New("behandling_not_found")
)
