package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations é aplicada em ordem; cada instrução é idempotente
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bets (
		id                                  TEXT PRIMARY KEY,
		title                               TEXT NOT NULL DEFAULT '',
		stake_description                   TEXT NOT NULL DEFAULT '',
		status                              TEXT NOT NULL DEFAULT 'OPEN',
		outcome                             TEXT NULL,
		stake_fulfillment_required          BOOLEAN NOT NULL DEFAULT FALSE,
		fulfillment_status                  TEXT NOT NULL DEFAULT 'PENDING',
		loser_claimed_fulfilled_at          TIMESTAMPTZ NULL,
		loser_claimed_by                    TEXT NULL,
		loser_fulfillment_proof_url         TEXT NULL,
		loser_fulfillment_proof_description TEXT NULL,
		all_winners_confirmed_at            TIMESTAMPTZ NULL,
		created_at                          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT bets_status_chk CHECK (status IN ('OPEN','RESOLVED','CANCELLED')),
		CONSTRAINT bets_fulfillment_status_chk CHECK (fulfillment_status IN ('PENDING','PARTIALLY_FULFILLED','FULFILLED'))
	)`,
	`CREATE TABLE IF NOT EXISTS bet_participations (
		id         TEXT PRIMARY KEY,
		bet_id     TEXT NOT NULL REFERENCES bets(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'ACTIVE',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT bet_participations_bet_user_uq UNIQUE (bet_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS bet_participations_bet_status_idx ON bet_participations (bet_id, status)`,
	`CREATE TABLE IF NOT EXISTS bet_fulfillment_confirmations (
		id           TEXT PRIMARY KEY,
		bet_id       TEXT NOT NULL REFERENCES bets(id) ON DELETE CASCADE,
		winner_id    TEXT NOT NULL,
		confirmed_at TIMESTAMPTZ NOT NULL,
		notes        TEXT NULL,
		CONSTRAINT bet_fulfillment_confirmations_bet_winner_uq UNIQUE (bet_id, winner_id)
	)`,
}

// Migrate aplica o schema de fulfillment
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
