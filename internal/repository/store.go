package repository

import (
	"context"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SnapshotStore is the append-only per-user history.
type SnapshotStore interface {
	// AppendSnapshot stores snap at the end of the user's history and returns
	// it as stored (ID assigned, CreatedAt possibly moved forward to keep the
	// history strictly increasing).
	AppendSnapshot(ctx context.Context, chatUserID string, snap domain.StatSnapshot) (domain.StatSnapshot, error)
	ListHistory(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error)
}

type ProfileStore interface {
	UpsertBinding(ctx context.Context, chatUserID string, accountID int64, nickname string) error
	Delete(ctx context.Context, chatUserID string) error
	Get(ctx context.Context, chatUserID string) (*domain.UserProfile, error)
	UpdateCosmetics(ctx context.Context, chatUserID string, patch CosmeticsPatch) error
}

type Store interface {
	SnapshotStore
	ProfileStore
	Close() error
}

// CosmeticsPatch sets only the non-nil fields.
type CosmeticsPatch struct {
	Sign       *string
	Opacity    *int
	Background *string
	EdgeSlot   *domain.EdgeSlot
	Edge       *domain.Edge
}

func (p CosmeticsPatch) apply(c *domain.Cosmetics) {
	if p.Sign != nil {
		c.Sign = *p.Sign
	}
	if p.Opacity != nil {
		c.Opacity = *p.Opacity
	}
	if p.Background != nil {
		c.Background = *p.Background
	}
	if p.EdgeSlot != nil && p.Edge != nil && p.EdgeSlot.Valid() {
		c.Edges[*p.EdgeSlot] = *p.Edge
	}
}

// stampSnapshot assigns the row id and enforces strictly increasing
// timestamps within one user's history.
func stampSnapshot(snap domain.StatSnapshot, latest time.Time) (domain.StatSnapshot, error) {
	if snap.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return snap, err
		}
		snap.ID = id
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	snap.CreatedAt = snap.CreatedAt.UTC().Truncate(constants.TimestampPrecision)
	if !latest.IsZero() && !snap.CreatedAt.After(latest) {
		snap.CreatedAt = latest.Add(constants.TimestampPrecision)
	}
	return snap, nil
}
