package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"osu-tracker/internal/config"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/repository"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

type ProfileService struct {
	fetcher        StatsFetcher
	store          repository.Store
	edgePath       string
	backgroundPath string
	logger         zerolog.Logger
}

func NewProfileService(fetcher StatsFetcher, store repository.Store, cfg *config.Config, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		fetcher:        fetcher,
		store:          store,
		edgePath:       cfg.EdgePath,
		backgroundPath: cfg.BackgroundPath,
		logger:         logger,
	}
}

// Bind resolves nickname to an account id and links it to chatUserID.
// Rebinding keeps history and cosmetics.
func (s *ProfileService) Bind(ctx context.Context, chatUserID, nickname string) (int64, error) {
	nickname = strings.TrimSpace(nickname)

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	accountID, err := s.fetcher.LookupAccountID(apiCtx, nickname)
	if err != nil {
		s.logger.Warn().Err(err).Str("nickname", nickname).Msg("failed to look up account")
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.store.UpsertBinding(ctx, chatUserID, accountID, nickname); err != nil {
		return 0, fmt.Errorf("failed to bind account: %w", err)
	}

	s.logger.Info().Str("chat_user_id", chatUserID).Int64("account_id", accountID).Msg("account bound")
	return accountID, nil
}

// Unbind removes the profile and its whole history.
func (s *ProfileService) Unbind(ctx context.Context, chatUserID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, chatUserID); err != nil {
		return err
	}
	s.logger.Info().Str("chat_user_id", chatUserID).Msg("account unbound")
	return nil
}

func (s *ProfileService) Get(ctx context.Context, chatUserID string) (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.store.Get(ctx, chatUserID)
}

func (s *ProfileService) UpdateSign(ctx context.Context, chatUserID, sign string) error {
	if strings.TrimSpace(sign) == "" {
		return domain.ErrEmptySign
	}
	return s.patch(ctx, chatUserID, repository.CosmeticsPatch{Sign: &sign})
}

// UpdateEdge sets the frame of slot to the asset <name><slot>.png. The text
// color comes from <name>0.col when present.
func (s *ProfileService) UpdateEdge(ctx context.Context, chatUserID string, slot domain.EdgeSlot, name string) (domain.Edge, error) {
	if !slot.Valid() {
		return domain.Edge{}, domain.ErrInvalidEdgeSlot
	}
	if !validAssetName(name) {
		return domain.Edge{}, fmt.Errorf("edge %q: %w", name, domain.ErrAssetNotFound)
	}

	path := filepath.Join(s.edgePath, fmt.Sprintf("%s%d.png", name, int(slot)))
	if _, err := os.Stat(path); err != nil {
		return domain.Edge{}, fmt.Errorf("edge %q: %w", name, domain.ErrAssetNotFound)
	}

	edge := domain.Edge{Path: path, Color: s.edgeColor(name)}
	if err := s.patch(ctx, chatUserID, repository.CosmeticsPatch{EdgeSlot: &slot, Edge: &edge}); err != nil {
		return domain.Edge{}, err
	}
	return edge, nil
}

func (s *ProfileService) edgeColor(name string) string {
	data, err := os.ReadFile(filepath.Join(s.edgePath, name+"0.col"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("edge", name).Msg("failed to read edge color")
		}
		return domain.DefaultColor
	}
	color := strings.TrimSpace(string(data))
	if color == "" {
		return domain.DefaultColor
	}
	return "#" + strings.TrimPrefix(color, "#")
}

func (s *ProfileService) UpdateBackground(ctx context.Context, chatUserID, name string) (string, error) {
	if !validAssetName(name) {
		return "", fmt.Errorf("background %q: %w", name, domain.ErrAssetNotFound)
	}

	path := filepath.Join(s.backgroundPath, name+".png")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("background %q: %w", name, domain.ErrAssetNotFound)
	}
	if err := s.patch(ctx, chatUserID, repository.CosmeticsPatch{Background: &path}); err != nil {
		return "", err
	}
	return path, nil
}

func (s *ProfileService) UpdateOpacity(ctx context.Context, chatUserID string, opacity int) error {
	if opacity < 0 || opacity > 100 || opacity%5 != 0 {
		return domain.ErrInvalidOpacity
	}
	return s.patch(ctx, chatUserID, repository.CosmeticsPatch{Opacity: &opacity})
}

func (s *ProfileService) patch(ctx context.Context, chatUserID string, p repository.CosmeticsPatch) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if err := s.store.UpdateCosmetics(ctx, chatUserID, p); err != nil {
		return err
	}
	s.logger.Debug().Str("chat_user_id", chatUserID).Msg("cosmetics updated")
	return nil
}

// validAssetName rejects names that would leave the asset directory.
func validAssetName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
