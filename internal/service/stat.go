package service

import (
	"context"
	"errors"
	"fmt"
	"osu-tracker/internal/api"
	"osu-tracker/internal/compare"
	"osu-tracker/internal/config"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/events"
	"osu-tracker/internal/history"
	"osu-tracker/internal/metrics"
	"osu-tracker/internal/normalize"
	"osu-tracker/internal/render"
	"osu-tracker/internal/repository"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatsFetcher is the subset of the stats API the services need.
type StatsFetcher interface {
	GetUser(ctx context.Context, accountID int64, mode domain.Mode) (*api.UserRecord, error)
	LookupAccountID(ctx context.Context, nickname string) (int64, error)
}

type CardResult struct {
	Snapshot   domain.StatSnapshot
	Comparison compare.Comparison
	Request    *render.Request
	// ImagePath is empty when rendering is disabled.
	ImagePath string
}

type StatService struct {
	fetcher   StatsFetcher
	store     repository.Store
	renderer  render.Renderer
	publisher events.Publisher
	outputDir string
	logger    zerolog.Logger

	now   func() time.Time
	locks *userLocks
}

func NewStatService(
	fetcher StatsFetcher,
	store repository.Store,
	renderer render.Renderer,
	publisher events.Publisher,
	cfg *config.Config,
	logger zerolog.Logger,
) *StatService {
	return &StatService{
		fetcher:   fetcher,
		store:     store,
		renderer:  renderer,
		publisher: publisher,
		outputDir: cfg.OutputDir,
		logger:    logger,
		now:       time.Now,
		locks:     newUserLocks(),
	}
}

// Card fetches the current stats of the bound account, appends them to the
// history and builds the comparison against the snapshot from days ago.
// days == 0 compares the fresh snapshot with itself. The fresh snapshot is
// stored even when no usable baseline exists.
func (s *StatService) Card(ctx context.Context, chatUserID string, mode domain.Mode, days int) (*CardResult, error) {
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}
	if days < 0 || days > constants.MaxDays {
		return nil, domain.ErrInvalidDays
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	unlock := s.locks.lock(chatUserID)
	defer unlock()

	profile, err := s.store.Get(ctx, chatUserID)
	if err != nil {
		return nil, err
	}

	current, err := s.fetchSnapshot(ctx, profile.AccountID, mode)
	if err != nil {
		s.logger.Warn().Err(err).Str("chat_user_id", chatUserID).Stringer("mode", mode).Msg("failed to fetch current stats")
		return nil, err
	}

	current, err = s.append(ctx, chatUserID, current)
	if err != nil {
		return nil, err
	}
	profile.History = append(profile.History, current)

	var baseline *domain.StatSnapshot
	if days > 0 {
		cutoff := history.Cutoff(current.CreatedAt, days)
		found, err := history.FindBaseline(profile.History, mode, cutoff)
		switch {
		case errors.Is(err, domain.ErrNoBaseline):
			metrics.BaselineLookups.WithLabelValues("no_baseline").Inc()
			return nil, fmt.Errorf("no %s snapshot older than %d days: %w", mode, days, err)
		case errors.Is(err, domain.ErrNoActivity):
			metrics.BaselineLookups.WithLabelValues("no_activity").Inc()
			return nil, fmt.Errorf("%s snapshot from %s: %w", mode, found.CreatedAt.Format(time.DateOnly), err)
		case err != nil:
			return nil, err
		}
		metrics.BaselineLookups.WithLabelValues("found").Inc()
		baseline = &found
	}

	cmp := compare.Build(current, baseline)
	req := render.Build(profile, cmp, days, s.outputPath(chatUserID, mode))

	imagePath, err := s.renderer.Render(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("chat_user_id", chatUserID).Msg("failed to render card")
		return nil, fmt.Errorf("failed to render card: %w", err)
	}

	s.logger.Info().
		Str("chat_user_id", chatUserID).
		Stringer("mode", mode).
		Int("days", days).
		Bool("self_compared", cmp.SelfCompared).
		Msg("card built")

	return &CardResult{
		Snapshot:   current,
		Comparison: cmp,
		Request:    req,
		ImagePath:  imagePath,
	}, nil
}

// SnapshotAllModes fetches every mode concurrently and appends the results in
// mode order. Nothing is appended unless all four fetches succeed.
func (s *StatService) SnapshotAllModes(ctx context.Context, chatUserID string) ([]domain.StatSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	unlock := s.locks.lock(chatUserID)
	defer unlock()

	profile, err := s.store.Get(ctx, chatUserID)
	if err != nil {
		return nil, err
	}

	fetched := make([]domain.StatSnapshot, len(domain.AllModes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range domain.AllModes {
		g.Go(func() error {
			snap, err := s.fetchSnapshot(gctx, profile.AccountID, mode)
			if err != nil {
				return fmt.Errorf("mode %s: %w", mode, err)
			}
			fetched[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Str("chat_user_id", chatUserID).Msg("failed to fetch all modes")
		return nil, err
	}

	stored := make([]domain.StatSnapshot, 0, len(fetched))
	for _, snap := range fetched {
		snap, err := s.append(ctx, chatUserID, snap)
		if err != nil {
			return stored, err
		}
		stored = append(stored, snap)
	}
	return stored, nil
}

// History returns the user's snapshots of mode, oldest first.
func (s *StatService) History(ctx context.Context, chatUserID string, mode domain.Mode) ([]domain.StatSnapshot, error) {
	if !mode.Valid() {
		return nil, domain.ErrInvalidMode
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	all, err := s.store.ListHistory(ctx, chatUserID)
	if err != nil {
		return nil, err
	}
	out := history.FilterMode(all, mode)
	if len(out) > constants.HistoryListLimit {
		out = out[len(out)-constants.HistoryListLimit:]
	}
	return out, nil
}

// Baseline looks up the stored baseline without fetching.
func (s *StatService) Baseline(ctx context.Context, chatUserID string, mode domain.Mode, days int) (domain.StatSnapshot, error) {
	if !mode.Valid() {
		return domain.StatSnapshot{}, domain.ErrInvalidMode
	}
	if days < 0 || days > constants.MaxDays {
		return domain.StatSnapshot{}, domain.ErrInvalidDays
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	all, err := s.store.ListHistory(ctx, chatUserID)
	if err != nil {
		return domain.StatSnapshot{}, err
	}
	return history.FindBaseline(all, mode, history.Cutoff(s.now(), days))
}

func (s *StatService) fetchSnapshot(ctx context.Context, accountID int64, mode domain.Mode) (domain.StatSnapshot, error) {
	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	raw, err := s.fetcher.GetUser(apiCtx, accountID, mode)
	if err != nil {
		return domain.StatSnapshot{}, err
	}

	snap, err := normalize.Normalize(raw, mode)
	if err != nil {
		var nerr *domain.NormalizationError
		if errors.As(err, &nerr) {
			metrics.NormalizationFailures.WithLabelValues(nerr.Field).Inc()
		}
		return domain.StatSnapshot{}, err
	}
	snap.CreatedAt = s.now()
	return snap, nil
}

func (s *StatService) append(ctx context.Context, chatUserID string, snap domain.StatSnapshot) (domain.StatSnapshot, error) {
	stored, err := s.store.AppendSnapshot(ctx, chatUserID, snap)
	if err != nil {
		return domain.StatSnapshot{}, fmt.Errorf("failed to append snapshot: %w", err)
	}
	metrics.SnapshotsAppended.WithLabelValues(stored.Mode.String()).Inc()

	if err := s.publisher.PublishSnapshot(ctx, events.NewSnapshotAppended(chatUserID, stored)); err != nil {
		s.logger.Warn().Err(err).Str("chat_user_id", chatUserID).Msg("failed to publish snapshot event")
	}
	return stored, nil
}

func (s *StatService) outputPath(chatUserID string, mode domain.Mode) string {
	id, err := gonanoid.New()
	if err != nil {
		id = fmt.Sprint(s.now().UnixNano())
	}
	return filepath.Join(s.outputDir, fmt.Sprintf("%s-%s-%s.png", chatUserID, mode, id))
}
