package repository

import (
	"context"
	"fmt"
	"osu-tracker/internal/domain"
	"sync"
	"time"
)

// MemoryRepository implements Store in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserProfile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]*domain.UserProfile)}
}

func (m *MemoryRepository) UpsertBinding(ctx context.Context, chatUserID string, accountID int64, nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	p, ok := m.profiles[chatUserID]
	if !ok {
		p = &domain.UserProfile{ChatUserID: chatUserID, CreatedAt: now}
		m.profiles[chatUserID] = p
	}
	p.AccountID = accountID
	p.Nickname = nickname
	p.UpdatedAt = now
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, chatUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[chatUserID]; !ok {
		return domain.ErrProfileNotFound
	}
	delete(m.profiles, chatUserID)
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, chatUserID string) (*domain.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[chatUserID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}

	// copy so callers never alias the stored history
	out := *p
	out.History = make([]domain.StatSnapshot, len(p.History))
	copy(out.History, p.History)
	return &out, nil
}

func (m *MemoryRepository) UpdateCosmetics(ctx context.Context, chatUserID string, patch CosmeticsPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[chatUserID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	patch.apply(&p.Cosmetics)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) AppendSnapshot(ctx context.Context, chatUserID string, snap domain.StatSnapshot) (domain.StatSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[chatUserID]
	if !ok {
		return domain.StatSnapshot{}, domain.ErrProfileNotFound
	}

	stamped, err := stampSnapshot(snap, p.LatestCreatedAt())
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to stamp snapshot: %w", err)
	}
	p.History = append(p.History, stamped)
	return stamped, nil
}

func (m *MemoryRepository) ListHistory(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error) {
	p, err := m.Get(ctx, chatUserID)
	if err != nil {
		return nil, err
	}
	return p.History, nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
