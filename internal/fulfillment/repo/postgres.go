package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

// uniqueViolation é o SQLSTATE de violação de constraint única
const uniqueViolation = "23505"

// Postgres implementa domain.FulfillmentStore sobre database/sql + lib/pq
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do store de fulfillment
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// WithTx abre uma transação, executa fn e faz commit; qualquer erro faz rollback
func (p *Postgres) WithTx(ctx context.Context, fn func(tx domain.FulfillmentTx) error) error {
	return p.run(ctx, nil, fn)
}

// viewOptions: um único snapshot para as várias leituras de GetFulfillmentDetails
var viewOptions = sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}

// View executa fn numa transação somente leitura
func (p *Postgres) View(ctx context.Context, fn func(tx domain.FulfillmentTx) error) error {
	opts := viewOptions
	return p.run(ctx, &opts, fn)
}

func (p *Postgres) run(ctx context.Context, opts *sql.TxOptions, fn func(tx domain.FulfillmentTx) error) error {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct{ tx *sql.Tx }

const selectBet = `
	SELECT id, title, stake_description, status, outcome, stake_fulfillment_required,
	       fulfillment_status, loser_claimed_fulfilled_at, loser_claimed_by,
	       loser_fulfillment_proof_url, loser_fulfillment_proof_description,
	       all_winners_confirmed_at
	FROM bets
	WHERE id=$1`

// GetBet lê a aposta; com forUpdate trava a linha até o fim da transação,
// serializando o recálculo do status por aposta
func (t *pgTx) GetBet(ctx context.Context, betID string, forUpdate bool) (*domain.Bet, error) {
	q := selectBet
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var (
		b                          domain.Bet
		status, fstatus            string
		outcome, claimedBy         sql.NullString
		proofURL, proofDescription sql.NullString
		claimedAt, allConfirmedAt  sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, q, betID).Scan(
		&b.ID, &b.Title, &b.StakeDescription, &status, &outcome, &b.StakeFulfillmentRequired,
		&fstatus, &claimedAt, &claimedBy,
		&proofURL, &proofDescription,
		&allConfirmedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select bet: %w", err)
	}

	b.Status = domain.BetStatus(status)
	b.FulfillmentStatus = domain.FulfillmentStatus(fstatus)
	b.Outcome = outcome.String
	b.LoserClaimedBy = claimedBy.String
	b.LoserFulfillmentProofURL = proofURL.String
	b.LoserFulfillmentProofDescription = proofDescription.String
	b.LoserClaimedFulfilledAt = timePtr(claimedAt)
	b.AllWinnersConfirmedAt = timePtr(allConfirmedAt)
	return &b, nil
}

// ParticipationsByBet lista as participações em ordem de criação
func (t *pgTx) ParticipationsByBet(ctx context.Context, betID string) ([]domain.Participation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, bet_id, user_id, status, created_at
		FROM bet_participations
		WHERE bet_id=$1
		ORDER BY created_at, user_id`, betID)
	if err != nil {
		return nil, fmt.Errorf("select participations: %w", err)
	}
	defer rows.Close()

	var out []domain.Participation
	for rows.Next() {
		var (
			p      domain.Participation
			status string
		)
		if err := rows.Scan(&p.ID, &p.BetID, &p.UserID, &status, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Status = domain.ParticipationStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ConfirmationsByBet lista as confirmações em ordem cronológica
func (t *pgTx) ConfirmationsByBet(ctx context.Context, betID string) ([]domain.Confirmation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, bet_id, winner_id, confirmed_at, notes
		FROM bet_fulfillment_confirmations
		WHERE bet_id=$1
		ORDER BY confirmed_at, winner_id`, betID)
	if err != nil {
		return nil, fmt.Errorf("select confirmations: %w", err)
	}
	defer rows.Close()

	var out []domain.Confirmation
	for rows.Next() {
		var (
			c     domain.Confirmation
			notes sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.BetID, &c.WinnerID, &c.ConfirmedAt, &notes); err != nil {
			return nil, err
		}
		c.Notes = notes.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *pgTx) HasConfirmation(ctx context.Context, betID, winnerID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bet_fulfillment_confirmations WHERE bet_id=$1 AND winner_id=$2
		)`, betID, winnerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select confirmation exists: %w", err)
	}
	return exists, nil
}

// InsertConfirmation grava a confirmação; a constraint única (bet_id, winner_id)
// cobre a corrida entre duas requisições do mesmo vencedor
func (t *pgTx) InsertConfirmation(ctx context.Context, c *domain.Confirmation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bet_fulfillment_confirmations (id, bet_id, winner_id, confirmed_at, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.BetID, c.WinnerID, c.ConfirmedAt, nullString(c.Notes),
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyConfirmed
	}
	if err != nil {
		return fmt.Errorf("insert confirmation: %w", err)
	}
	return nil
}

func (t *pgTx) CountConfirmations(ctx context.Context, betID string) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bet_fulfillment_confirmations WHERE bet_id=$1`, betID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count confirmations: %w", err)
	}
	return n, nil
}

func (t *pgTx) UpdateLoserClaim(ctx context.Context, claim domain.LoserClaim) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets
		SET loser_claimed_fulfilled_at=$1, loser_claimed_by=$2,
		    loser_fulfillment_proof_url=$3, loser_fulfillment_proof_description=$4,
		    updated_at=NOW()
		WHERE id=$5`,
		claim.ClaimedAt, claim.UserID, nullString(claim.ProofURL), nullString(claim.ProofDescription), claim.BetID,
	)
	if err != nil {
		return fmt.Errorf("update loser claim: %w", err)
	}
	return mustAffect(res)
}

// UpdateFulfillmentStatus é o único caminho de escrita de fulfillment_status
func (t *pgTx) UpdateFulfillmentStatus(ctx context.Context, betID string, status domain.FulfillmentStatus, allWinnersConfirmedAt *time.Time) error {
	var at sql.NullTime
	if allWinnersConfirmedAt != nil {
		at = sql.NullTime{Time: *allWinnersConfirmedAt, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets
		SET fulfillment_status=$1, all_winners_confirmed_at=$2, updated_at=NOW()
		WHERE id=$3`,
		string(status), at, betID,
	)
	if err != nil {
		return fmt.Errorf("update fulfillment status: %w", err)
	}
	return mustAffect(res)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrBetNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
