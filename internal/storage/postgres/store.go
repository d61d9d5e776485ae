package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"savingsCircle/internal/model"
)

// Store provides Postgres persistence for snapshots and sessions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS circle_snapshots (
	account        TEXT        NOT NULL,
	circle_hash    TEXT        NOT NULL,
	taken_at       TIMESTAMPTZ NOT NULL,
	name           TEXT        NOT NULL,
	token_address  TEXT        NOT NULL,
	total_balance  TEXT        NOT NULL,
	deposit_amount TEXT        NOT NULL,
	current_index  BIGINT,
	withdrawable   BOOLEAN     NOT NULL,
	members        JSONB       NOT NULL,
	PRIMARY KEY (account, circle_hash, taken_at)
);
CREATE TABLE IF NOT EXISTS circle_sessions (
	name       TEXT PRIMARY KEY,
	account    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutSnapshots implements storage.Storage.
func (s *Store) PutSnapshots(ctx context.Context, snapshots []model.CircleSnapshot) error {
	return s.UpsertCircleSnapshots(ctx, snapshots)
}

// UpsertCircleSnapshots inserts or updates snapshot rows.
func (s *Store) UpsertCircleSnapshots(ctx context.Context, snapshots []model.CircleSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		members, err := json.Marshal(snap.Members)
		if err != nil {
			return fmt.Errorf("marshal members: %w", err)
		}
		batch.Queue(`
			INSERT INTO circle_snapshots (
				account, circle_hash, taken_at, name, token_address, total_balance,
				deposit_amount, current_index, withdrawable, members
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (account, circle_hash, taken_at)
			DO UPDATE SET
				name = EXCLUDED.name,
				token_address = EXCLUDED.token_address,
				total_balance = EXCLUDED.total_balance,
				deposit_amount = EXCLUDED.deposit_amount,
				current_index = EXCLUDED.current_index,
				withdrawable = EXCLUDED.withdrawable,
				members = EXCLUDED.members
		`,
			snap.Account,
			snap.CircleHash,
			snap.TakenAt,
			snap.Name,
			snap.TokenAddress,
			snap.TotalBalance,
			snap.Deposit,
			snap.CurrentIndex,
			snap.Withdrawable,
			members,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadSession returns the account stored under name.
func (s *Store) LoadSession(ctx context.Context, name string) (model.Session, bool, error) {
	if name == "" {
		return model.Session{}, false, fmt.Errorf("session name required")
	}
	var (
		account   string
		updatedAt time.Time
	)
	row := s.pool.QueryRow(ctx, `SELECT account, updated_at FROM circle_sessions WHERE name=$1`, name)
	if err := row.Scan(&account, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, false, nil
		}
		return model.Session{}, false, err
	}
	return model.Session{Account: account, UpdatedAt: updatedAt.UTC().Format(time.RFC3339Nano)}, true, nil
}

// SaveSession upserts the account for name.
func (s *Store) SaveSession(ctx context.Context, name, account string) error {
	if name == "" {
		return fmt.Errorf("session name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO circle_sessions (name, account, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET account = EXCLUDED.account, updated_at = now()
	`, name, account)
	return err
}

// ClearSession removes the session for name.
func (s *Store) ClearSession(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("session name required")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM circle_sessions WHERE name=$1`, name)
	return err
}
