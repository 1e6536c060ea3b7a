package domain

import (
	"reflect"
	"testing"

	json "github.com/goccy/go-json"
)

func TestGrunnlagResultatRoundTrip(t *testing.T) {
	payload := []byte(`{
		"subsumsjonsId": "01gr",
		"grunnlag": 372084,
		"beregningsregel": "ArbeidsinntektSiste12",
		"harAvkortet": true
	}`)

	var r GrunnlagResultat
	if err := json.Unmarshal(payload, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if r.SubsumsjonsID != "01gr" {
		t.Fatalf("expected subsumsjonsId 01gr, got %q", r.SubsumsjonsID)
	}
	if r.Grunnlag == nil || *r.Grunnlag != 372084 {
		t.Fatalf("expected grunnlag 372084, got %v", r.Grunnlag)
	}
	if r.Ekstra["beregningsregel"] != "ArbeidsinntektSiste12" {
		t.Fatalf("expected beregningsregel in ekstra, got %v", r.Ekstra)
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if m["subsumsjonsId"] != "01gr" || m["harAvkortet"] != true {
		t.Fatalf("expected folded ekstra fields, got %v", m)
	}
}

func TestMinsteinntektFraMap(t *testing.T) {
	r := MinsteinntektFraMap(map[string]any{
		"subsumsjonsId":          "01mi",
		"oppfyllerMinsteinntekt": true,
		"regelIdentifikator":     "Minsteinntekt.v1",
	})

	if r.SubsumsjonsID != "01mi" {
		t.Fatalf("expected subsumsjonsId 01mi, got %q", r.SubsumsjonsID)
	}
	if !r.OppfyllerMinsteinntekt {
		t.Fatal("expected oppfyllerMinsteinntekt true")
	}
	if !reflect.DeepEqual(r.Ekstra, map[string]any{"regelIdentifikator": "Minsteinntekt.v1"}) {
		t.Fatalf("expected one ekstra field, got %v", r.Ekstra)
	}
}

func TestPeriodeOgSatsFraMap(t *testing.T) {
	periode := PeriodeFraMap(map[string]any{
		"subsumsjonsId":     "01pe",
		"periodeAntallUker": json.Number("104"),
	})
	if periode.AntallUker == nil || *periode.AntallUker != 104 {
		t.Fatalf("expected 104 uker, got %v", periode.AntallUker)
	}

	sats := SatsFraMap(map[string]any{
		"subsumsjonsId": "01sa",
		"dagsats":       float64(1431),
	})
	if sats.DagSats == nil || *sats.DagSats != 1431 {
		t.Fatalf("expected dagsats 1431, got %v", sats.DagSats)
	}
	if sats.Ekstra != nil {
		t.Fatalf("expected no ekstra, got %v", sats.Ekstra)
	}
}

func TestResultatIDer(t *testing.T) {
	grunnlag := 100000
	sub := Subsumsjon{
		BehovID:          "01hv",
		GrunnlagResultat: &GrunnlagResultat{SubsumsjonsID: "01gr", Grunnlag: &grunnlag},
		SatsResultat:     &SatsResultat{SubsumsjonsID: "01sa"},
	}

	ids := sub.ResultatIDer()
	if !reflect.DeepEqual(ids, []string{"01gr", "01sa"}) {
		t.Fatalf("expected present result ids only, got %v", ids)
	}
}

func TestSubsumsjonJSONOmitsAbsentResults(t *testing.T) {
	sub := Subsumsjon{
		BehovID: "01hv",
		Faktum:  Faktum{AktørID: "123"},
	}

	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, key := range []string{"grunnlagResultat", "minsteinntektResultat", "periodeResultat", "satsResultat", "problem"} {
		if _, ok := m[key]; ok {
			t.Fatalf("expected %s omitted, got %v", key, m[key])
		}
	}
}
