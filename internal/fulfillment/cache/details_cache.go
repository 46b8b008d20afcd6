package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

// DetailsCache guarda o snapshot de GET /bets/{id}/fulfillment.
// A chave carrega uma geração: Invalidate incrementa a geração, então um Set
// feito por uma leitura iniciada antes da mutação cai numa chave que ninguém lê.
type DetailsCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *DetailsCache {
	return &DetailsCache{R: r, TTL: ttl}
}

// genTTL precisa ser bem maior que o TTL dos snapshots
const genTTL = 24 * time.Hour

func keyGen(betID string) string { return "fulfillment:bet:" + betID + ":gen" }

func keyDetails(betID string, gen int64) string {
	return "fulfillment:bet:" + betID + ":v" + strconv.FormatInt(gen, 10)
}

// Get devolve (detalhes, true) em cache hit e a geração lida, que deve ser
// repassada ao Set depois de consultar o banco
func (c *DetailsCache) Get(ctx context.Context, betID string) (domain.FulfillmentDetails, bool, int64, error) {
	var d domain.FulfillmentDetails
	gen, err := c.R.Get(ctx, keyGen(betID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return d, false, 0, err
	}

	b, err := c.R.Get(ctx, keyDetails(betID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return d, false, gen, nil
	}
	if err != nil {
		return d, false, gen, err
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, false, gen, err
	}
	return d, true, gen, nil
}

// Set grava o snapshot na geração lida pelo Get
func (c *DetailsCache) Set(ctx context.Context, d domain.FulfillmentDetails, gen int64) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyDetails(d.BetID, gen), b, c.TTL).Err()
}

// Invalidate avança a geração; snapshots antigos expiram pelo TTL
func (c *DetailsCache) Invalidate(ctx context.Context, betID string) error {
	pipe := c.R.TxPipeline()
	pipe.Incr(ctx, keyGen(betID))
	pipe.Expire(ctx, keyGen(betID), genTTL)
	_, err := pipe.Exec(ctx)
	return err
}
