package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/service"
)

var betColumns = []string{
	"id", "title", "stake_description", "status", "outcome", "stake_fulfillment_required",
	"fulfillment_status", "loser_claimed_fulfilled_at", "loser_claimed_by",
	"loser_fulfillment_proof_url", "loser_fulfillment_proof_description",
	"all_winners_confirmed_at",
}

var partColumns = []string{"id", "bet_id", "user_id", "status", "created_at"}

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestGetBetForUpdate(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)
	claimed := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bets WHERE id=\$1 FOR UPDATE`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(betColumns).AddRow(
			"b1", "Derby", "loser buys lunch", "RESOLVED", "home", true,
			"PARTIALLY_FULFILLED", claimed, "l1",
			nil, "paid", nil,
		))
	mock.ExpectCommit()

	var got *domain.Bet
	err := p.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		var err error
		got, err = tx.GetBet(ctx, "b1", true)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BetResolved, got.Status)
	assert.Equal(t, "home", got.Outcome)
	assert.True(t, got.StakeFulfillmentRequired)
	assert.Equal(t, domain.FulfillmentPartiallyFulfilled, got.FulfillmentStatus)
	require.NotNil(t, got.LoserClaimedFulfilledAt)
	assert.True(t, got.LoserClaimedFulfilledAt.Equal(claimed))
	assert.Equal(t, "l1", got.LoserClaimedBy)
	assert.Empty(t, got.LoserFulfillmentProofURL)
	assert.Equal(t, "paid", got.LoserFulfillmentProofDescription)
	assert.Nil(t, got.AllWinnersConfirmedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestViewReadsWithoutLock(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bets WHERE id=\$1$`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(betColumns))
	mock.ExpectRollback()

	err := p.View(ctx, func(tx domain.FulfillmentTx) error {
		_, err := tx.GetBet(ctx, "missing", false)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrBetNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConfirmationTranslatesUniqueViolation(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bet_fulfillment_confirmations`).
		WithArgs(sqlmock.AnyArg(), "b1", "w1", sqlmock.AnyArg(), nil).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := p.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		return tx.InsertConfirmation(ctx, &domain.Confirmation{BetID: "b1", WinnerID: "w1", ConfirmedAt: time.Now()})
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyConfirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConfirmationWrapsOtherErrors(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bet_fulfillment_confirmations`).WillReturnError(boom)
	mock.ExpectRollback()

	err := p.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		return tx.InsertConfirmation(ctx, &domain.Confirmation{BetID: "b1", WinnerID: "w1", Notes: "ok"})
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrAlreadyConfirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFulfillmentStatusMissingBet(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bets SET fulfillment_status=\$1`).
		WithArgs("FULFILLED", sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	now := time.Now()
	err := p.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		return tx.UpdateFulfillmentStatus(ctx, "gone", domain.FulfillmentFulfilled, &now)
	})
	assert.ErrorIs(t, err, domain.ErrBetNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Fluxo completo de confirmação passando pelo serviço: trava, valida, insere,
// recalcula e grava o status na mesma transação
func TestWinnerConfirmRunsInOneTransaction(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)
	now := time.Date(2026, 4, 2, 20, 0, 0, 0, time.UTC)
	created := now.Add(-24 * time.Hour)

	participations := func() *sqlmock.Rows {
		return sqlmock.NewRows(partColumns).
			AddRow("p1", "b1", "w1", "WON", created).
			AddRow("p2", "b1", "w2", "WON", created).
			AddRow("p3", "b1", "l1", "LOST", created)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bets WHERE id=\$1 FOR UPDATE`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(betColumns).AddRow(
			"b1", "Derby", "lunch", "RESOLVED", "home", true,
			"PENDING", nil, nil, nil, nil, nil,
		))
	mock.ExpectQuery(`FROM bet_participations`).WithArgs("b1").WillReturnRows(participations())
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("b1", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO bet_fulfillment_confirmations`).
		WithArgs(sqlmock.AnyArg(), "b1", "w1", now, "cheers").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM bet_participations`).WithArgs("b1").WillReturnRows(participations())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bet_fulfillment_confirmations`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE bets SET fulfillment_status=\$1`).
		WithArgs("PARTIALLY_FULFILLED", nil, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := service.New(p)
	svc.Now = func() time.Time { return now }
	res, err := svc.WinnerConfirmFulfilled(ctx, service.WinnerConfirmInput{BetID: "b1", WinnerID: "w1", Notes: "cheers"})
	require.NoError(t, err)
	assert.Equal(t, domain.FulfillmentPartiallyFulfilled, res.Status)
	assert.Equal(t, 2, res.TotalWinners)
	assert.Equal(t, 1, res.ConfirmationCount)
	assert.NotEmpty(t, res.Confirmation.ID)
	require.NotNil(t, res.Change)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoserClaimRejectedBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bets WHERE id=\$1 FOR UPDATE`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(betColumns).AddRow(
			"b1", "Derby", "lunch", "RESOLVED", "home", true,
			"PENDING", nil, nil, nil, nil, nil,
		))
	mock.ExpectQuery(`FROM bet_participations`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(partColumns).AddRow("p1", "b1", "w1", "WON", time.Now()))
	mock.ExpectRollback()

	_, err := service.New(p).LoserClaimFulfilled(ctx, service.LoserClaimInput{BetID: "b1", UserID: "w1"})
	assert.ErrorIs(t, err, domain.ErrNotLoser)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestViewUsesSingleSnapshot(t *testing.T) {
	assert.True(t, viewOptions.ReadOnly)
	assert.Equal(t, sql.LevelRepeatableRead, viewOptions.Isolation)
}
