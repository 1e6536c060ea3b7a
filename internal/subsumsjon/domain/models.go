package domain

import (
	"bytes"
	"errors"

	json "github.com/goccy/go-json"
	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
)

var ErrSubsumsjonNotFound = errors.New("subsumsjon_not_found")

// Faktum echoes the facts the calculation was performed on.
type Faktum struct {
	AktørID        string                    `json:"aktørId"`
	RegelKontekst  behovdomain.RegelKontekst `json:"regelKontekst"`
	BeregningsDato behovdomain.Dato          `json:"beregningsDato"`
	behovdomain.Fakta
}

// Subsumsjon is the persisted calculation result, keyed by behovId. It
// aggregates up to four independently-identified sub-results. Immutable
// after insert, except for retention deletion and the brukt marker.
type Subsumsjon struct {
	BehovID               string                 `json:"behovId"`
	Faktum                Faktum                 `json:"faktum"`
	GrunnlagResultat      *GrunnlagResultat      `json:"grunnlagResultat,omitempty"`
	MinsteinntektResultat *MinsteinntektResultat `json:"minsteinntektResultat,omitempty"`
	PeriodeResultat       *PeriodeResultat       `json:"periodeResultat,omitempty"`
	SatsResultat          *SatsResultat          `json:"satsResultat,omitempty"`
	Problem               map[string]any         `json:"problem,omitempty"`
}

// GrunnlagResultat is the basis-amount sub-result.
type GrunnlagResultat struct {
	SubsumsjonsID string
	Grunnlag      *int
	Ekstra        map[string]any
}

// MinsteinntektResultat is the minimum-income sub-result; its boolean
// outcome drives the re-evaluation comparison.
type MinsteinntektResultat struct {
	SubsumsjonsID          string
	OppfyllerMinsteinntekt bool
	Ekstra                 map[string]any
}

// PeriodeResultat is the benefit-period sub-result.
type PeriodeResultat struct {
	SubsumsjonsID string
	AntallUker    *int
	Ekstra        map[string]any
}

// SatsResultat is the daily/weekly-rate sub-result.
type SatsResultat struct {
	SubsumsjonsID string
	DagSats       *int
	Ekstra        map[string]any
}

// ResultatIDer lists the sub-result ids present on the subsumsjon.
func (s Subsumsjon) ResultatIDer() []string {
	var ids []string
	if s.GrunnlagResultat != nil {
		ids = append(ids, s.GrunnlagResultat.SubsumsjonsID)
	}
	if s.MinsteinntektResultat != nil {
		ids = append(ids, s.MinsteinntektResultat.SubsumsjonsID)
	}
	if s.PeriodeResultat != nil {
		ids = append(ids, s.PeriodeResultat.SubsumsjonsID)
	}
	if s.SatsResultat != nil {
		ids = append(ids, s.SatsResultat.SubsumsjonsID)
	}
	return ids
}

// The sub-result shapes are open maps on the wire: each carries its own
// subsumsjonsId plus whatever the engine's current rule set emits. Known
// fields are typed, everything else survives in Ekstra.

const feltSubsumsjonsID = "subsumsjonsId"

func (r GrunnlagResultat) MarshalJSON() ([]byte, error) {
	m := cloneEkstra(r.Ekstra)
	m[feltSubsumsjonsID] = r.SubsumsjonsID
	if r.Grunnlag != nil {
		m["grunnlag"] = *r.Grunnlag
	}
	return json.Marshal(m)
}

func (r *GrunnlagResultat) UnmarshalJSON(data []byte) error {
	m, err := decodeOpen(data)
	if err != nil {
		return err
	}
	*r = GrunnlagFraMap(m)
	return nil
}

func GrunnlagFraMap(m map[string]any) GrunnlagResultat {
	r := GrunnlagResultat{SubsumsjonsID: popString(m, feltSubsumsjonsID)}
	if v, ok := popInt(m, "grunnlag"); ok {
		r.Grunnlag = &v
	}
	r.Ekstra = rest(m)
	return r
}

func (r MinsteinntektResultat) MarshalJSON() ([]byte, error) {
	m := cloneEkstra(r.Ekstra)
	m[feltSubsumsjonsID] = r.SubsumsjonsID
	m["oppfyllerMinsteinntekt"] = r.OppfyllerMinsteinntekt
	return json.Marshal(m)
}

func (r *MinsteinntektResultat) UnmarshalJSON(data []byte) error {
	m, err := decodeOpen(data)
	if err != nil {
		return err
	}
	*r = MinsteinntektFraMap(m)
	return nil
}

func MinsteinntektFraMap(m map[string]any) MinsteinntektResultat {
	r := MinsteinntektResultat{SubsumsjonsID: popString(m, feltSubsumsjonsID)}
	if v, ok := m["oppfyllerMinsteinntekt"].(bool); ok {
		r.OppfyllerMinsteinntekt = v
		delete(m, "oppfyllerMinsteinntekt")
	}
	r.Ekstra = rest(m)
	return r
}

func (r PeriodeResultat) MarshalJSON() ([]byte, error) {
	m := cloneEkstra(r.Ekstra)
	m[feltSubsumsjonsID] = r.SubsumsjonsID
	if r.AntallUker != nil {
		m["periodeAntallUker"] = *r.AntallUker
	}
	return json.Marshal(m)
}

func (r *PeriodeResultat) UnmarshalJSON(data []byte) error {
	m, err := decodeOpen(data)
	if err != nil {
		return err
	}
	*r = PeriodeFraMap(m)
	return nil
}

func PeriodeFraMap(m map[string]any) PeriodeResultat {
	r := PeriodeResultat{SubsumsjonsID: popString(m, feltSubsumsjonsID)}
	if v, ok := popInt(m, "periodeAntallUker"); ok {
		r.AntallUker = &v
	}
	r.Ekstra = rest(m)
	return r
}

func (r SatsResultat) MarshalJSON() ([]byte, error) {
	m := cloneEkstra(r.Ekstra)
	m[feltSubsumsjonsID] = r.SubsumsjonsID
	if r.DagSats != nil {
		m["dagsats"] = *r.DagSats
	}
	return json.Marshal(m)
}

func (r *SatsResultat) UnmarshalJSON(data []byte) error {
	m, err := decodeOpen(data)
	if err != nil {
		return err
	}
	*r = SatsFraMap(m)
	return nil
}

func SatsFraMap(m map[string]any) SatsResultat {
	r := SatsResultat{SubsumsjonsID: popString(m, feltSubsumsjonsID)}
	if v, ok := popInt(m, "dagsats"); ok {
		r.DagSats = &v
	}
	r.Ekstra = rest(m)
	return r
}

func decodeOpen(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	m := make(map[string]any)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func cloneEkstra(ekstra map[string]any) map[string]any {
	m := make(map[string]any, len(ekstra)+2)
	for k, v := range ekstra {
		m[k] = v
	}
	return m
}

func popString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	delete(m, key)
	return v
}

func popInt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		delete(m, key)
		return int(n), true
	case float64:
		delete(m, key)
		return int(v), true
	case int:
		delete(m, key)
		return v, true
	default:
		return 0, false
	}
}

func rest(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
