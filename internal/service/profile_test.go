package service

import (
	"context"
	"os"
	"osu-tracker/internal/config"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/repository"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileFixture struct {
	svc   *ProfileService
	store *repository.MemoryRepository
	edges string
	backs string
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	edges, backs := t.TempDir(), t.TempDir()

	touch := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	touch(filepath.Join(edges, "gold0.png"), "")
	touch(filepath.Join(edges, "gold1.png"), "")
	touch(filepath.Join(edges, "gold2.png"), "")
	touch(filepath.Join(edges, "gold0.col"), "ffcc00\n")
	touch(filepath.Join(edges, "plain1.png"), "")
	touch(filepath.Join(backs, "sky.png"), "")

	f := &profileFixture{store: repository.NewMemoryRepository(), edges: edges, backs: backs}
	fetcher := &fakeFetcher{lookup: map[string]int64{"cookiezi": 124493}}
	cfg := &config.Config{EdgePath: edges, BackgroundPath: backs}
	f.svc = NewProfileService(fetcher, f.store, cfg, zerolog.Nop())
	return f
}

func TestBind(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	id, err := f.svc.Bind(ctx, "u1", " cookiezi ")
	require.NoError(t, err)
	assert.Equal(t, int64(124493), id)

	p, err := f.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(124493), p.AccountID)
	assert.Equal(t, "cookiezi", p.Nickname)

	_, err = f.svc.Bind(ctx, "u2", "nobody")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = f.svc.Get(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestUnbind(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Unbind(ctx, "u1"), domain.ErrProfileNotFound)

	_, err := f.svc.Bind(ctx, "u1", "cookiezi")
	require.NoError(t, err)
	require.NoError(t, f.svc.Unbind(ctx, "u1"))
	_, err = f.svc.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestCosmetics(t *testing.T) {
	f := newProfileFixture(t)
	ctx := context.Background()
	_, err := f.svc.Bind(ctx, "u1", "cookiezi")
	require.NoError(t, err)

	t.Run("sign", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.UpdateSign(ctx, "u1", "  "), domain.ErrEmptySign)
		require.NoError(t, f.svc.UpdateSign(ctx, "u1", "hello"))
	})

	t.Run("edge with color file", func(t *testing.T) {
		edge, err := f.svc.UpdateEdge(ctx, "u1", domain.EdgeData, "gold")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(f.edges, "gold1.png"), edge.Path)
		assert.Equal(t, "#ffcc00", edge.Color)
	})

	t.Run("edge without color file", func(t *testing.T) {
		edge, err := f.svc.UpdateEdge(ctx, "u1", domain.EdgeData, "plain")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultColor, edge.Color)
	})

	t.Run("edge errors", func(t *testing.T) {
		_, err := f.svc.UpdateEdge(ctx, "u1", domain.EdgeSign, "plain")
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
		_, err = f.svc.UpdateEdge(ctx, "u1", domain.EdgeSlot(3), "gold")
		assert.ErrorIs(t, err, domain.ErrInvalidEdgeSlot)
		_, err = f.svc.UpdateEdge(ctx, "u1", domain.EdgeProfile, "../gold")
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
		_, err = f.svc.UpdateEdge(ctx, "nobody", domain.EdgeProfile, "gold")
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("background", func(t *testing.T) {
		path, err := f.svc.UpdateBackground(ctx, "u1", "sky")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(f.backs, "sky.png"), path)

		_, err = f.svc.UpdateBackground(ctx, "u1", "missing")
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})

	t.Run("opacity", func(t *testing.T) {
		for _, bad := range []int{-5, 3, 101, 105} {
			assert.ErrorIs(t, f.svc.UpdateOpacity(ctx, "u1", bad), domain.ErrInvalidOpacity, "opacity %d", bad)
		}
		require.NoError(t, f.svc.UpdateOpacity(ctx, "u1", 0))
		require.NoError(t, f.svc.UpdateOpacity(ctx, "u1", 45))
	})

	p, err := f.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Sign)
	assert.Equal(t, 45, p.Opacity)
	assert.Equal(t, filepath.Join(f.backs, "sky.png"), p.Background)
	assert.Equal(t, filepath.Join(f.edges, "plain1.png"), p.Edge(domain.EdgeData).Path)
	assert.Equal(t, domain.DefaultColor, p.EdgeColor(domain.EdgeData))
	assert.Equal(t, domain.DefaultColor, p.EdgeColor(domain.EdgeProfile))
}
