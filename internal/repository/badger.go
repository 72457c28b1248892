package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const (
	profileKeyPrefix = "profile/"
	maxTxnRetries    = 5
)

// BadgerRepository stores each profile, history included, as one JSON
// document, so every mutation is a single-document transaction.
type BadgerRepository struct {
	db     *badger.DB
	logger zerolog.Logger

	// serializes read-modify-write transactions so they never conflict
	writeMu sync.Mutex

	stopGC chan struct{}
	gcDone sync.WaitGroup
}

type BadgerOptions struct {
	Path     string
	InMemory bool
}

func NewBadgerRepository(opts BadgerOptions, logger zerolog.Logger) (*BadgerRepository, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("path is required for persistent badger store")
		}
		if err := os.MkdirAll(opts.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path).WithSyncWrites(true)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	r := &BadgerRepository{db: db, logger: logger, stopGC: make(chan struct{})}
	if !opts.InMemory {
		r.gcDone.Add(1)
		go r.runGC(constants.BadgerGCInterval)
	}
	return r, nil
}

func profileKey(chatUserID string) []byte {
	return []byte(profileKeyPrefix + chatUserID)
}

func getProfile(txn *badger.Txn, chatUserID string) (*domain.UserProfile, error) {
	item, err := txn.Get(profileKey(chatUserID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	var p domain.UserProfile
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", chatUserID, err)
	}
	if p.History == nil {
		p.History = []domain.StatSnapshot{}
	}
	return &p, nil
}

func putProfile(txn *badger.Txn, p *domain.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", p.ChatUserID, err)
	}
	return txn.Set(profileKey(p.ChatUserID), data)
}

func (r *BadgerRepository) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.logger.Debug().Int("attempt", attempt+1).Msg("badger transaction conflict, retrying")
	}
	return err
}

func (r *BadgerRepository) UpsertBinding(ctx context.Context, chatUserID string, accountID int64, nickname string) error {
	return r.update(ctx, func(txn *badger.Txn) error {
		now := time.Now().UTC()
		p, err := getProfile(txn, chatUserID)
		if errors.Is(err, domain.ErrProfileNotFound) {
			p = &domain.UserProfile{ChatUserID: chatUserID, CreatedAt: now, History: []domain.StatSnapshot{}}
		} else if err != nil {
			return err
		}
		p.AccountID = accountID
		p.Nickname = nickname
		p.UpdatedAt = now
		return putProfile(txn, p)
	})
}

func (r *BadgerRepository) Delete(ctx context.Context, chatUserID string) error {
	return r.update(ctx, func(txn *badger.Txn) error {
		if _, err := getProfile(txn, chatUserID); err != nil {
			return err
		}
		return txn.Delete(profileKey(chatUserID))
	})
}

func (r *BadgerRepository) Get(ctx context.Context, chatUserID string) (*domain.UserProfile, error) {
	var p *domain.UserProfile
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getProfile(txn, chatUserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *BadgerRepository) UpdateCosmetics(ctx context.Context, chatUserID string, patch CosmeticsPatch) error {
	return r.update(ctx, func(txn *badger.Txn) error {
		p, err := getProfile(txn, chatUserID)
		if err != nil {
			return err
		}
		patch.apply(&p.Cosmetics)
		p.UpdatedAt = time.Now().UTC()
		return putProfile(txn, p)
	})
}

func (r *BadgerRepository) AppendSnapshot(ctx context.Context, chatUserID string, snap domain.StatSnapshot) (domain.StatSnapshot, error) {
	var stamped domain.StatSnapshot
	err := r.update(ctx, func(txn *badger.Txn) error {
		p, err := getProfile(txn, chatUserID)
		if err != nil {
			return err
		}
		stamped, err = stampSnapshot(snap, p.LatestCreatedAt())
		if err != nil {
			return fmt.Errorf("failed to stamp snapshot: %w", err)
		}
		p.History = append(p.History, stamped)
		return putProfile(txn, p)
	})
	if err != nil {
		return domain.StatSnapshot{}, err
	}
	return stamped, nil
}

func (r *BadgerRepository) ListHistory(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error) {
	p, err := r.Get(ctx, chatUserID)
	if err != nil {
		return nil, err
	}
	return p.History, nil
}

func (r *BadgerRepository) runGC(interval time.Duration) {
	defer r.gcDone.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopGC:
			return
		case <-ticker.C:
			for {
				if err := r.db.RunValueLogGC(constants.BadgerGCDiscardRate); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						r.logger.Warn().Err(err).Msg("badger value log gc failed")
					}
					break
				}
			}
		}
	}
}

func (r *BadgerRepository) Close() error {
	close(r.stopGC)
	r.gcDone.Wait()
	return r.db.Close()
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}
