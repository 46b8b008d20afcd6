package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub numa goroutine e repassa
// cada atualização para os clientes inscritos via Hub
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				HandleMessage(log, hub, []byte(msg.Payload))
			}
		}
	}()
}

// HandleMessage decodifica uma mensagem do canal e faz o broadcast
func HandleMessage(log *zap.Logger, hub *Hub, payload []byte) {
	var upd FulfillmentUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		log.Warn("ws subscriber unmarshal error", zap.Error(err))
		return
	}
	if upd.BetID == "" {
		log.Warn("ws subscriber message without betId")
		return
	}
	hub.Broadcast(upd)
}
