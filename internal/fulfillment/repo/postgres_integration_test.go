//go:build integration && postgres

package repo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/service"
	"github.com/radieske/social-bet-fulfillment/internal/shared/db"
)

// Confirmações concorrentes contra Postgres real: o lock da aposta serializa o
// recálculo e o status final reflete todas as confirmações.
func TestIntegrationConcurrentConfirmations(t *testing.T) {
	_ = godotenv.Load()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set; skipping Postgres integration")
	}

	ctx := context.Background()
	pg, err := db.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, db.Migrate(ctx, pg))

	betID := uuid.NewString()
	_, err = pg.ExecContext(ctx, `
		INSERT INTO bets (id, title, stake_description, status, outcome, stake_fulfillment_required)
		VALUES ($1, 'integration', 'loser buys coffee', 'RESOLVED', 'home', TRUE)`, betID)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pg.ExecContext(context.Background(), `DELETE FROM bets WHERE id=$1`, betID) })

	const winners = 8
	for i := 0; i < winners; i++ {
		_, err = pg.ExecContext(ctx, `INSERT INTO bet_participations (id, bet_id, user_id, status) VALUES ($1,$2,$3,'WON')`,
			uuid.NewString(), betID, fmt.Sprintf("w%d", i))
		require.NoError(t, err)
	}
	_, err = pg.ExecContext(ctx, `INSERT INTO bet_participations (id, bet_id, user_id, status) VALUES ($1,$2,'l0','LOST')`,
		uuid.NewString(), betID)
	require.NoError(t, err)

	svc := service.New(NewPostgres(pg))

	var wg sync.WaitGroup
	errs := make(chan error, winners*2)
	for i := 0; i < winners; i++ {
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := svc.WinnerConfirmFulfilled(ctx, service.WinnerConfirmInput{BetID: betID, WinnerID: id})
				errs <- err
			}(fmt.Sprintf("w%d", i))
		}
	}
	wg.Wait()
	close(errs)

	var ok, dups int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed):
			dups++
		}
	}
	assert.Equal(t, winners, ok)
	assert.Equal(t, winners, dups)

	d, err := svc.GetFulfillmentDetails(ctx, betID)
	require.NoError(t, err)
	assert.Equal(t, domain.FulfillmentFulfilled, d.FulfillmentStatus)
	assert.Equal(t, winners, d.ConfirmationCount)
	assert.NotNil(t, d.AllWinnersConfirmedAt)
	assert.Equal(t, []string{"l0"}, d.Losers)
}
