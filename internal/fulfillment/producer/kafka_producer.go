package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica eventos de fulfillment no tópico bet_fulfillment,
// sempre com a chave bet_id para manter a ordem por aposta
type KafkaPublisher struct {
	Writer MessageWriter
	Topic  string
	Now    func() time.Time
}

func NewKafkaPublisher(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic, Now: time.Now}
}

// PublishStatusChanged converte a mudança de status no contrato público e publica
func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, c domain.StatusChange) error {
	return p.publish(ctx, events.TypeFulfillmentStatusChanged, c.BetID, events.FulfillmentStatusChanged{
		BetID:                 c.BetID,
		PreviousStatus:        string(c.From),
		Status:                string(c.To),
		ConfirmationCount:     c.ConfirmationCount,
		TotalWinners:          c.TotalWinners,
		AllWinnersConfirmedAt: c.AllWinnersConfirmedAt,
		Ts:                    c.ChangedAt,
	})
}

// PublishLoserClaimed publica o claim informativo do perdedor
func (p *KafkaPublisher) PublishLoserClaimed(ctx context.Context, c domain.LoserClaim) error {
	return p.publish(ctx, events.TypeLoserClaimedFulfillment, c.BetID, events.LoserClaimedFulfillment{
		BetID:            c.BetID,
		UserID:           c.UserID,
		ProofURL:         c.ProofURL,
		ProofDescription: c.ProofDescription,
		ClaimedAt:        c.ClaimedAt,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, typ, betID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	env := events.FulfillmentEnvelope{
		Type:     typ,
		BetID:    betID,
		Payload:  raw,
		TsUnixMs: p.Now().UnixMilli(),
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(betID),
		Value:   b,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(typ)}},
	})
}
