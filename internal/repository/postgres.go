package repository

import (
	"context"
	"errors"
	"fmt"
	"osu-tracker/internal/domain"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger}
}

func (r *PostgresRepository) UpsertBinding(ctx context.Context, chatUserID string, accountID int64, nickname string) error {
	now := toMicros(time.Now())
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (chat_user_id, account_id, nickname, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_user_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			nickname = EXCLUDED.nickname,
			updated_at = EXCLUDED.updated_at`,
		chatUserID, accountID, nickname, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", chatUserID, err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, chatUserID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE chat_user_id = $1`, chatUserID)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", chatUserID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, chatUserID string) (*domain.UserProfile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE chat_user_id = $1`, chatUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", chatUserID, err)
	}

	p.History, err = r.listHistory(ctx, chatUserID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) UpdateCosmetics(ctx context.Context, chatUserID string, patch CosmeticsPatch) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE chat_user_id = $1 FOR UPDATE`, chatUserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load profile %s: %w", chatUserID, err)
	}

	patch.apply(&p.Cosmetics)
	args := append(cosmeticsArgs(p.Cosmetics), toMicros(time.Now()), chatUserID)
	_, err = tx.Exec(ctx, `
		UPDATE profiles SET
			sign = $1, opacity = $2,
			profile_edge = $3, profile_edge_color = $4,
			data_edge = $5, data_edge_color = $6,
			sign_edge = $7, sign_edge_color = $8,
			background = $9, updated_at = $10
		WHERE chat_user_id = $11`, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", chatUserID, err)
	}

	return tx.Commit(ctx)
}

// AppendSnapshot locks the profile row so appends for one user serialize.
func (r *PostgresRepository) AppendSnapshot(ctx context.Context, chatUserID string, snap domain.StatSnapshot) (domain.StatSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT chat_user_id FROM profiles WHERE chat_user_id = $1 FOR UPDATE`, chatUserID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StatSnapshot{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to lock profile %s: %w", chatUserID, err)
	}

	var latest *int64
	if err := tx.QueryRow(ctx, `SELECT MAX(created_at) FROM snapshots WHERE chat_user_id = $1`, chatUserID).Scan(&latest); err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to read latest snapshot of %s: %w", chatUserID, err)
	}
	var latestAt time.Time
	if latest != nil {
		latestAt = fromMicros(*latest)
	}

	stamped, err := stampSnapshot(snap, latestAt)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to stamp snapshot: %w", err)
	}

	args := snapshotArgs(chatUserID, stamped)
	_, err = tx.Exec(ctx, `INSERT INTO snapshots (id, chat_user_id, `+snapshotColumns[len("id, "):]+`)
		VALUES (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return stamped, nil
}

func (r *PostgresRepository) ListHistory(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE chat_user_id = $1)`, chatUserID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check profile %s: %w", chatUserID, err)
	}
	if !exists {
		return nil, domain.ErrProfileNotFound
	}
	return r.listHistory(ctx, chatUserID)
}

func (r *PostgresRepository) listHistory(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE chat_user_id = $1 ORDER BY created_at`, chatUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history of %s: %w", chatUserID, err)
	}
	defer rows.Close()

	history := []domain.StatSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ph, ", ")
}
