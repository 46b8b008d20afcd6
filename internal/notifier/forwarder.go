// Package notifier repassa os eventos de fulfillment do Kafka para o Redis Pub/Sub,
// de onde o feed WebSocket entrega aos participantes da aposta.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/social-bet-fulfillment/internal/shared/kafka"
	"github.com/radieske/social-bet-fulfillment/pkg/contracts/events"
)

const (
	defaultRetries = 3
	dlqTimeout     = 5 * time.Second
)

var errInvalidEnvelope = errors.New("invalid fulfillment envelope")

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Broadcaster publica bytes num canal pub/sub
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Update é o formato publicado no canal; o mesmo que ws.FulfillmentUpdate decodifica
type Update struct {
	BetID   string          `json:"betId"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Forwarder consome bet_fulfillment e publica cada evento no canal Redis.
// Depois de Retries tentativas com backoff linear a mensagem vai para a DLQ.
type Forwarder struct {
	Log         *zap.Logger
	Reader      MessageReader
	Broadcaster Broadcaster
	Channel     string
	DLQ         MessageWriter // opcional
	Retries     int
	Backoff     time.Duration // espera base; a tentativa i espera Backoff*(i+1)

	OnForwarded func()
	OnDLQ       func()
	OnError     func(string)
}

// Run inicia o loop de consumo até o contexto ser cancelado
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		m, err := f.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.Log.Warn("kafka read", zap.Error(err))
			f.fail("read")
			time.Sleep(time.Second)
			continue
		}
		if err := f.Handle(ctx, m); err != nil {
			f.Log.Error("forward fulfillment event", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
}

// Handle repassa uma mensagem; mensagens inválidas vão direto para a DLQ
func (f *Forwarder) Handle(ctx context.Context, m kafka.Message) error {
	payload, betID, err := toUpdate(m.Value)
	if err != nil {
		f.fail("decode")
		f.deadLetter(ctx, m)
		return err
	}

	retries := f.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	err = f.Broadcaster.Publish(ctx, f.Channel, payload)
	for i := 0; err != nil && i < retries; i++ {
		f.Log.Warn("redis publish failed, retrying", zap.String("bet_id", betID), zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			// o offset já foi commitado pelo reader: sem DLQ o evento se perde
			f.fail("publish")
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dlqTimeout)
			f.deadLetter(dctx, m)
			cancel()
			return ctx.Err()
		case <-time.After(f.Backoff * time.Duration(i+1)):
		}
		err = f.Broadcaster.Publish(ctx, f.Channel, payload)
	}
	if err != nil {
		f.fail("publish")
		f.deadLetter(ctx, m)
		return fmt.Errorf("publish %s: %w", betID, err)
	}

	if f.OnForwarded != nil {
		f.OnForwarded()
	}
	return nil
}

func (f *Forwarder) deadLetter(ctx context.Context, m kafka.Message) {
	if f.DLQ == nil {
		return
	}
	if err := sharedkafka.WriteJSON(ctx, f.DLQ, string(m.Key), m.Value); err != nil {
		f.Log.Error("dlq write", zap.ByteString("key", m.Key), zap.Error(err))
		f.fail("dlq")
		return
	}
	if f.OnDLQ != nil {
		f.OnDLQ()
	}
}

func (f *Forwarder) fail(stage string) {
	if f.OnError != nil {
		f.OnError(stage)
	}
}

// toUpdate converte o envelope do Kafka no formato do canal
func toUpdate(raw []byte) ([]byte, string, error) {
	var env events.FulfillmentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errInvalidEnvelope, err)
	}
	if env.BetID == "" || env.Type == "" {
		return nil, "", errInvalidEnvelope
	}
	b, err := json.Marshal(Update{BetID: env.BetID, Type: env.Type, Payload: env.Payload})
	if err != nil {
		return nil, "", err
	}
	return b, env.BetID, nil
}
