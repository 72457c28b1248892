package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"osu-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteRepository(sqlDB *sql.DB, logger zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *SQLiteRepository) UpsertBinding(ctx context.Context, chatUserID string, accountID int64, nickname string) error {
	now := toMicros(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (chat_user_id, account_id, nickname, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (chat_user_id) DO UPDATE SET
			account_id = excluded.account_id,
			nickname = excluded.nickname,
			updated_at = excluded.updated_at`,
		chatUserID, accountID, nickname, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", chatUserID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, chatUserID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE chat_user_id = ?`, chatUserID); err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", chatUserID, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE chat_user_id = ?`, chatUserID)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", chatUserID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProfileNotFound
	}

	return tx.Commit()
}

func (r *SQLiteRepository) Get(ctx context.Context, chatUserID string) (*domain.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE chat_user_id = ?`, chatUserID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", chatUserID, err)
	}

	p.History, err = r.listHistory(ctx, r.db, chatUserID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateCosmetics(ctx context.Context, chatUserID string, patch CosmeticsPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE chat_user_id = ?`, chatUserID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load profile %s: %w", chatUserID, err)
	}

	patch.apply(&p.Cosmetics)
	args := append(cosmeticsArgs(p.Cosmetics), toMicros(time.Now()), chatUserID)
	_, err = tx.ExecContext(ctx, `
		UPDATE profiles SET
			sign = ?, opacity = ?,
			profile_edge = ?, profile_edge_color = ?,
			data_edge = ?, data_edge_color = ?,
			sign_edge = ?, sign_edge_color = ?,
			background = ?, updated_at = ?
		WHERE chat_user_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", chatUserID, err)
	}

	return tx.Commit()
}

func (r *SQLiteRepository) AppendSnapshot(ctx context.Context, chatUserID string, snap domain.StatSnapshot) (domain.StatSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE chat_user_id = ?`, chatUserID).Scan(&exists)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to check profile %s: %w", chatUserID, err)
	}
	if exists == 0 {
		return domain.StatSnapshot{}, domain.ErrProfileNotFound
	}

	var latest sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT MAX(created_at) FROM snapshots WHERE chat_user_id = ?`, chatUserID).Scan(&latest)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to read latest snapshot of %s: %w", chatUserID, err)
	}
	var latestAt time.Time
	if latest.Valid {
		latestAt = fromMicros(latest.Int64)
	}

	stamped, err := stampSnapshot(snap, latestAt)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to stamp snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO snapshots (id, chat_user_id, `+snapshotColumns[len("id, "):]+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshotArgs(chatUserID, stamped)...)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	r.logger.Debug().
		Str("chat_user_id", chatUserID).
		Str("snapshot_id", stamped.ID).
		Time("created_at", stamped.CreatedAt).
		Msg("snapshot appended")
	return stamped, nil
}

func (r *SQLiteRepository) ListHistory(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE chat_user_id = ?`, chatUserID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check profile %s: %w", chatUserID, err)
	}
	if exists == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return r.listHistory(ctx, r.db, chatUserID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) listHistory(ctx context.Context, q queryer, chatUserID string) ([]domain.StatSnapshot, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE chat_user_id = ? ORDER BY created_at`, chatUserID)
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

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
