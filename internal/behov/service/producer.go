package service

import (
	"context"

	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/observability/metrics"
	"github.com/openytelse/regelport/internal/packet"
	"github.com/openytelse/regelport/internal/regelbus"
	"go.uber.org/zap"
)

type producer struct {
	bus     *regelbus.Producer
	topic   string
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewProducer(bus *regelbus.Producer, cfg config.Config, log *zap.Logger, m *metrics.Metrics) behovdomain.Producer {
	return &producer{
		bus:     bus,
		topic:   cfg.BehovTopic,
		log:     log.Named("behov").With(zap.String("component", "producer")),
		metrics: m,
	}
}

// Publiser flattens the behov into the wire envelope and publishes it keyed
// by behovId.
func (p *producer) Publiser(ctx context.Context, behov behovdomain.InternBehov) error {
	body, err := ToPacket(behov).ToJSON()
	if err != nil {
		return err
	}
	if err := p.bus.Publish(ctx, p.topic, behov.BehovID, body); err != nil {
		return err
	}
	p.metrics.BehovProduced.Inc()
	p.log.Info("behov published",
		zap.String("behov_id", behov.BehovID),
		zap.String("behandlings_id", behov.BehandlingsID.ID),
	)
	return nil
}

// ToPacket maps an InternBehov onto the generic envelope. Optional facts are
// set only when present.
func ToPacket(behov behovdomain.InternBehov) *packet.Packet {
	pkt := packet.New()
	pkt.Set(packet.KeyBehovID, behov.BehovID)
	pkt.Set(packet.KeyAktorID, behov.AktørID)
	pkt.Set(packet.KeyBehandlingsID, behov.BehandlingsID.ID)
	pkt.Set(packet.KeyKontekstID, behov.BehandlingsID.RegelKontekst.ID)
	pkt.Set(packet.KeyKontekstType, string(behov.BehandlingsID.RegelKontekst.Type))
	pkt.Set(packet.KeyBeregningsDato, behov.BeregningsDato.String())

	// The engine still keys off the raw vedtak id for VEDTAK konteksts.
	if behov.BehandlingsID.RegelKontekst.Type == behovdomain.KontekstVedtak {
		pkt.Set(packet.KeyVedtakID, behov.BehandlingsID.RegelKontekst.ID)
	}

	if behov.HarAvtjentVerneplikt != nil {
		pkt.Set(packet.KeyHarAvtjentVerneplikt, *behov.HarAvtjentVerneplikt)
	}
	if behov.OppfyllerKravTilFangstOgFisk != nil {
		pkt.Set(packet.KeyOppfyllerKravTilFangstOgFisk, *behov.OppfyllerKravTilFangstOgFisk)
	}
	if behov.BruktInntektsPeriode != nil {
		pkt.Set(packet.KeyBruktInntektsPeriode, map[string]any{
			"førsteMåned": behov.BruktInntektsPeriode.FørsteMåned,
			"sisteMåned":  behov.BruktInntektsPeriode.SisteMåned,
		})
	}
	if behov.AntallBarn != nil {
		pkt.Set(packet.KeyAntallBarn, *behov.AntallBarn)
	}
	if behov.ManueltGrunnlag != nil {
		pkt.Set(packet.KeyManueltGrunnlag, *behov.ManueltGrunnlag)
	}
	if behov.InntektsID != nil {
		pkt.Set(packet.KeyInntektsID, *behov.InntektsID)
	}
	if behov.Lærling != nil {
		pkt.Set(packet.KeyLaerling, *behov.Lærling)
	}

	return pkt
}
