package mottak

import (
	"context"

	"github.com/openytelse/regelport/internal/observability/metrics"
	"github.com/openytelse/regelport/internal/packet"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"go.uber.org/zap"
)

// Strategy decides whether an inbound result packet is complete enough to
// act on. Strategies are evaluated in order; the first interested one
// handles the packet.
type Strategy interface {
	Navn() string
	Interessert(pkt *packet.Packet) bool
	Behandle(ctx context.Context, pkt *packet.Packet) error
}

// problemStrategy observes failed computations. The failure is logged, not
// persisted.
type problemStrategy struct {
	log *zap.Logger
}

func (s *problemStrategy) Navn() string { return "problem" }

func (s *problemStrategy) Interessert(pkt *packet.Packet) bool {
	return pkt.HasProblem()
}

func (s *problemStrategy) Behandle(_ context.Context, pkt *packet.Packet) error {
	problem, _ := pkt.Map(packet.KeyProblem)
	s.log.Warn("computation failed at the rule engine",
		zap.String("behov_id", pkt.BehovID()),
		zap.Any("problem", problem),
	)
	return nil
}

// manuellGrunnlagStrategy accepts the reduced rule set that applies when a
// caseworker overrides the basis amount: basis and rate results are enough.
type manuellGrunnlagStrategy struct {
	svc subsumsjondomain.Service
}

func (s *manuellGrunnlagStrategy) Navn() string { return "manuell_grunnlag" }

func (s *manuellGrunnlagStrategy) Interessert(pkt *packet.Packet) bool {
	return !pkt.HasProblem() &&
		pkt.Has(packet.KeyManueltGrunnlag) &&
		pkt.Has(packet.KeyGrunnlagResultat) &&
		pkt.Has(packet.KeySatsResultat)
}

func (s *manuellGrunnlagStrategy) Behandle(ctx context.Context, pkt *packet.Packet) error {
	sub, err := subsumsjonFraPacket(pkt)
	if err != nil {
		return err
	}
	_, err = s.svc.Lagre(ctx, sub)
	return err
}

// komplettStrategy accepts packets carrying all four sub-results.
type komplettStrategy struct {
	svc subsumsjondomain.Service
}

func (s *komplettStrategy) Navn() string { return "komplett" }

func (s *komplettStrategy) Interessert(pkt *packet.Packet) bool {
	return !pkt.HasProblem() &&
		pkt.Has(packet.KeyGrunnlagResultat) &&
		pkt.Has(packet.KeyMinsteinntektResultat) &&
		pkt.Has(packet.KeyPeriodeResultat) &&
		pkt.Has(packet.KeySatsResultat)
}

func (s *komplettStrategy) Behandle(ctx context.Context, pkt *packet.Packet) error {
	sub, err := subsumsjonFraPacket(pkt)
	if err != nil {
		return err
	}
	_, err = s.svc.Lagre(ctx, sub)
	return err
}

// Kjede is the ordered strategy chain applied to every inbound packet.
type Kjede struct {
	strategies []Strategy
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NyKjede(svc subsumsjondomain.Service, log *zap.Logger, m *metrics.Metrics) *Kjede {
	return &Kjede{
		strategies: []Strategy{
			&problemStrategy{log: log},
			&manuellGrunnlagStrategy{svc: svc},
			&komplettStrategy{svc: svc},
		},
		log:     log,
		metrics: m,
	}
}

// Behandle runs the packet through the chain. Packets no strategy claims
// are still in flight at the engine and silently ignored; handler errors
// are logged per packet so one bad payload never halts the consumer.
func (k *Kjede) Behandle(ctx context.Context, pkt *packet.Packet) {
	if pkt.BehovID() == "" {
		k.log.Debug("uncorrelatable packet dropped")
		k.metrics.PacketsIgnorert.Inc()
		return
	}

	for _, strategy := range k.strategies {
		if !strategy.Interessert(pkt) {
			continue
		}
		if err := strategy.Behandle(ctx, pkt); err != nil {
			payload, _ := pkt.ToJSON()
			k.log.Error("strategy failed",
				zap.String("strategy", strategy.Navn()),
				zap.String("behov_id", pkt.BehovID()),
				zap.ByteString("packet", payload),
				zap.Error(err),
			)
			return
		}
		k.metrics.PacketsMottatt.WithLabelValues(strategy.Navn()).Inc()
		return
	}

	k.metrics.PacketsIgnorert.Inc()
}
