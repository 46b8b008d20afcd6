package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

// Publisher é o destino dos eventos de fulfillment (Kafka em produção)
type Publisher interface {
	PublishStatusChanged(ctx context.Context, c domain.StatusChange) error
	PublishLoserClaimed(ctx context.Context, c domain.LoserClaim) error
}

// Dispatcher envia eventos depois do commit, fora do caminho da requisição.
// Falha de publicação só gera log e métrica; nunca desfaz a operação já gravada.
type Dispatcher struct {
	Log       *zap.Logger
	Publisher Publisher
	Timeout   time.Duration

	OnPublishError func(eventType string)

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func New(log *zap.Logger, p Publisher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{Log: log, Publisher: p, Timeout: timeout}
}

// StatusChanged agenda a publicação da mudança de status; nil é ignorado
func (d *Dispatcher) StatusChanged(c *domain.StatusChange) {
	if c == nil {
		return
	}
	ev := *c
	d.goPublish("status_changed", ev.BetID, func(ctx context.Context) error {
		return d.Publisher.PublishStatusChanged(ctx, ev)
	})
}

// LoserClaimed agenda a publicação do claim do perdedor
func (d *Dispatcher) LoserClaimed(c domain.LoserClaim) {
	d.goPublish("loser_claimed", c.BetID, func(ctx context.Context) error {
		return d.Publisher.PublishLoserClaimed(ctx, c)
	})
}

func (d *Dispatcher) goPublish(eventType, betID string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.Log.Warn("dispatcher closed, dropping event", zap.String("type", eventType), zap.String("bet_id", betID))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.Log.Warn("fulfillment event publish failed",
				zap.String("type", eventType), zap.String("bet_id", betID), zap.Error(err))
			if d.OnPublishError != nil {
				d.OnPublishError(eventType)
			}
		}
	}()
}

// Close para de aceitar eventos e espera os envios em andamento
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
