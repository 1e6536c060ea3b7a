package mottak

import (
	"fmt"

	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/packet"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
)

// subsumsjonFraPacket rebuilds the result aggregate from an inbound wire
// packet. The engine echoes the request facts, so the faktum comes off the
// same envelope as the results.
func subsumsjonFraPacket(pkt *packet.Packet) (subsumsjondomain.Subsumsjon, error) {
	behovID := pkt.BehovID()
	if behovID == "" {
		return subsumsjondomain.Subsumsjon{}, fmt.Errorf("packet without %s", packet.KeyBehovID)
	}

	faktum, err := faktumFraPacket(pkt)
	if err != nil {
		return subsumsjondomain.Subsumsjon{}, err
	}

	sub := subsumsjondomain.Subsumsjon{
		BehovID: behovID,
		Faktum:  faktum,
	}

	if m, ok := pkt.Map(packet.KeyGrunnlagResultat); ok {
		r := subsumsjondomain.GrunnlagFraMap(m)
		sub.GrunnlagResultat = &r
	}
	if m, ok := pkt.Map(packet.KeyMinsteinntektResultat); ok {
		r := subsumsjondomain.MinsteinntektFraMap(m)
		sub.MinsteinntektResultat = &r
	}
	if m, ok := pkt.Map(packet.KeyPeriodeResultat); ok {
		r := subsumsjondomain.PeriodeFraMap(m)
		sub.PeriodeResultat = &r
	}
	if m, ok := pkt.Map(packet.KeySatsResultat); ok {
		r := subsumsjondomain.SatsFraMap(m)
		sub.SatsResultat = &r
	}
	if m, ok := pkt.Map(packet.KeyProblem); ok {
		sub.Problem = m
	}

	return sub, nil
}

func faktumFraPacket(pkt *packet.Packet) (subsumsjondomain.Faktum, error) {
	faktum := subsumsjondomain.Faktum{}
	faktum.AktørID, _ = pkt.String(packet.KeyAktorID)

	kontekstID, _ := pkt.String(packet.KeyKontekstID)
	kontekstType, _ := pkt.String(packet.KeyKontekstType)
	if kontekstID == "" {
		// Older engine generations only echo the raw vedtak id.
		if vedtakID, ok := pkt.String(packet.KeyVedtakID); ok {
			kontekstID = vedtakID
			kontekstType = string(behovdomain.KontekstVedtak)
		}
	}
	faktum.RegelKontekst = behovdomain.RegelKontekst{
		ID:   kontekstID,
		Type: behovdomain.KontekstType(kontekstType),
	}

	if raw, ok := pkt.String(packet.KeyBeregningsDato); ok {
		dato, err := behovdomain.ParseDato(raw)
		if err != nil {
			return subsumsjondomain.Faktum{}, err
		}
		faktum.BeregningsDato = dato
	}

	if v, ok := pkt.Bool(packet.KeyHarAvtjentVerneplikt); ok {
		faktum.HarAvtjentVerneplikt = &v
	}
	if v, ok := pkt.Bool(packet.KeyOppfyllerKravTilFangstOgFisk); ok {
		faktum.OppfyllerKravTilFangstOgFisk = &v
	}
	if m, ok := pkt.Map(packet.KeyBruktInntektsPeriode); ok {
		periode := behovdomain.InntektsPeriode{}
		periode.FørsteMåned, _ = m["førsteMåned"].(string)
		periode.SisteMåned, _ = m["sisteMåned"].(string)
		faktum.BruktInntektsPeriode = &periode
	}
	if v, ok := pkt.Int(packet.KeyAntallBarn); ok {
		faktum.AntallBarn = &v
	}
	if v, ok := pkt.Int(packet.KeyManueltGrunnlag); ok {
		faktum.ManueltGrunnlag = &v
	}
	if v, ok := pkt.String(packet.KeyInntektsID); ok {
		faktum.InntektsID = &v
	}
	if v, ok := pkt.Bool(packet.KeyLaerling); ok {
		faktum.Lærling = &v
	}

	return faktum, nil
}
