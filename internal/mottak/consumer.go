package mottak

import (
	"context"

	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/packet"
	"github.com/openytelse/regelport/internal/regelbus"
	"go.uber.org/zap"
)

// SubsumsjonMottak consumes result packets emitted by the rule engine and
// feeds them through the strategy chain.
type SubsumsjonMottak struct {
	consumer *regelbus.Consumer
	kjede    *Kjede
	topic    string
	log      *zap.Logger
}

func NewSubsumsjonMottak(consumer *regelbus.Consumer, kjede *Kjede, cfg config.Config, log *zap.Logger) *SubsumsjonMottak {
	return &SubsumsjonMottak{
		consumer: consumer,
		kjede:    kjede,
		topic:    cfg.SubsumsjonTopic,
		log:      log.Named("mottak").With(zap.String("component", "subsumsjon")),
	}
}

// Run blocks until ctx is canceled.
func (m *SubsumsjonMottak) Run(ctx context.Context) {
	m.consumer.Run(ctx, m.topic, func(ctx context.Context, msg regelbus.Message) {
		pkt, err := packet.FromJSON(msg.Body)
		if err != nil {
			m.log.Error("malformed packet", zap.String("message_id", msg.ID), zap.Error(err))
			return
		}
		m.kjede.Behandle(ctx, pkt)
	})
}
