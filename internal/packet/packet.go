package packet

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Well-known keys on the wire envelope exchanged with the rule engine.
const (
	KeyBehovID                      = "behovId"
	KeyAktorID                      = "aktørId"
	KeyVedtakID                     = "vedtakId"
	KeyKontekstID                   = "kontekstId"
	KeyKontekstType                 = "kontekstType"
	KeyBehandlingsID                = "behandlingsId"
	KeyBeregningsDato               = "beregningsDato"
	KeyHarAvtjentVerneplikt         = "harAvtjentVerneplikt"
	KeyOppfyllerKravTilFangstOgFisk = "oppfyllerKravTilFangstOgFisk"
	KeyBruktInntektsPeriode         = "bruktInntektsPeriode"
	KeyAntallBarn                   = "antallBarn"
	KeyManueltGrunnlag              = "manueltGrunnlag"
	KeyInntektsID                   = "inntektsId"
	KeyLaerling                     = "lærling"

	KeyGrunnlagResultat      = "grunnlagResultat"
	KeyMinsteinntektResultat = "minsteinntektResultat"
	KeyPeriodeResultat       = "periodeResultat"
	KeySatsResultat          = "satsResultat"
	KeyProblem               = "problem"
)

// Packet is the schema-less key/value envelope used as the message-bus
// payload format. Absent optional keys are omitted, never written as null.
type Packet struct {
	fields map[string]any
}

func New() *Packet {
	return &Packet{fields: make(map[string]any)}
}

// FromJSON parses a wire payload. Numbers are kept as json.Number so large
// integer ids survive the round trip exactly.
func FromJSON(data []byte) (*Packet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("parse packet: %w", err)
	}
	return &Packet{fields: fields}, nil
}

func (p *Packet) ToJSON() ([]byte, error) {
	return json.Marshal(p.fields)
}

func (p *Packet) Set(key string, value any) {
	if value == nil {
		return
	}
	p.fields[key] = value
}

func (p *Packet) Has(key string) bool {
	v, ok := p.fields[key]
	return ok && v != nil
}

func (p *Packet) Get(key string) any {
	return p.fields[key]
}

func (p *Packet) String(key string) (string, bool) {
	v, ok := p.fields[key].(string)
	return v, ok
}

func (p *Packet) Bool(key string) (bool, bool) {
	v, ok := p.fields[key].(bool)
	return v, ok
}

func (p *Packet) Int(key string) (int, bool) {
	switch v := p.fields[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Map returns a nested object value, e.g. one of the result documents.
func (p *Packet) Map(key string) (map[string]any, bool) {
	v, ok := p.fields[key].(map[string]any)
	return v, ok
}

// HasProblem reports whether the rule engine flagged the computation failed.
func (p *Packet) HasProblem() bool {
	return p.Has(KeyProblem)
}

// BehovID returns the correlation id, empty when the packet cannot be
// correlated to a request.
func (p *Packet) BehovID() string {
	v, _ := p.String(KeyBehovID)
	return v
}
