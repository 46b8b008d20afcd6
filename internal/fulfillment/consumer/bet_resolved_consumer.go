package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/service"
	"github.com/radieske/social-bet-fulfillment/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo loop
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Recomputer recalcula o status agregado de uma aposta
type Recomputer interface {
	Recompute(ctx context.Context, betID string) (service.RecomputeResult, error)
}

// StatusEvents recebe as mudanças de status geradas pelo recálculo
type StatusEvents interface {
	StatusChanged(c *domain.StatusChange)
}

// Processor consome bet_resolved e recalcula o fulfillment da aposta.
// Cobre o caso de aposta resolvida sem vencedores, que já nasce FULFILLED.
type Processor struct {
	Log        *zap.Logger
	Reader     MessageReader
	Recomputer Recomputer
	Events     StatusEvents
	Invalidate func(ctx context.Context, betID string)

	OnConsumed func()       // métricas (counter++)
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem. Rejeições de negócio (aposta sem tracking,
// desconhecida, ...) são logadas e ignoradas.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.BetResolved
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.BetID == "" {
		p.Log.Warn("invalid bet_resolved message", zap.Error(err), zap.ByteString("key", m.Key))
		p.fail("decode")
		return
	}

	res, err := p.Recomputer.Recompute(ctx, ev.BetID)
	if err != nil {
		if domain.IsRejection(err) {
			p.Log.Info("bet_resolved skipped", zap.String("bet_id", ev.BetID), zap.String("reason", domain.Reason(err)))
			return
		}
		p.Log.Warn("recompute failed", zap.String("bet_id", ev.BetID), zap.Error(err))
		p.fail("recompute")
		return
	}

	// a resolução muda as participações mesmo quando o status fica igual
	if p.Invalidate != nil {
		p.Invalidate(ctx, ev.BetID)
	}
	if res.Change != nil && p.Events != nil {
		p.Events.StatusChanged(res.Change)
	}
	p.Log.Debug("bet_resolved processed",
		zap.String("bet_id", ev.BetID),
		zap.String("status", string(res.Status)),
		zap.Int("total_winners", res.TotalWinners))
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
