package service

import (
	"context"
	"errors"
	"osu-tracker/internal/api"
	"osu-tracker/internal/config"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/events"
	"osu-tracker/internal/normalize"
	"osu-tracker/internal/render"
	"osu-tracker/internal/repository"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	records map[domain.Mode]*api.UserRecord
	err     error
	calls   int
	lookup  map[string]int64
}

func (f *fakeFetcher) GetUser(ctx context.Context, accountID int64, mode domain.Mode) (*api.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[mode]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return rec, nil
}

func (f *fakeFetcher) LookupAccountID(ctx context.Context, nickname string) (int64, error) {
	id, ok := f.lookup[nickname]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	return id, nil
}

type fakeRenderer struct {
	last *render.Request
	err  error
}

func (r *fakeRenderer) Render(ctx context.Context, req *render.Request) (string, error) {
	r.last = req
	if r.err != nil {
		return "", r.err
	}
	return req.OutPath, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SnapshotAppended
}

func (p *recordingPublisher) PublishSnapshot(ctx context.Context, ev events.SnapshotAppended) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func record(mode domain.Mode, playcount int64) *api.UserRecord {
	return normalize.ToRecord(domain.StatSnapshot{
		Mode: mode, UserID: 1001, Username: "cookiezi", Country: "KR",
		Count300: 1000, Count100: 100, Count50: 10, Playcount: playcount,
		PP: 321.5, Level: 90, Accuracy: 0.95, GlobalRank: 50,
	})
}

type fixture struct {
	svc      *StatService
	store    *repository.MemoryRepository
	fetcher  *fakeFetcher
	renderer *fakeRenderer
	pub      *recordingPublisher
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryRepository(),
		fetcher: &fakeFetcher{records: map[domain.Mode]*api.UserRecord{
			domain.ModeOsu:   record(domain.ModeOsu, 100),
			domain.ModeTaiko: record(domain.ModeTaiko, 20),
			domain.ModeCatch: record(domain.ModeCatch, 0),
			domain.ModeMania: record(domain.ModeMania, 5),
		}},
		renderer: &fakeRenderer{},
		pub:      &recordingPublisher{},
		now:      time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{OutputDir: t.TempDir()}
	f.svc = NewStatService(f.fetcher, f.store, f.renderer, f.pub, cfg, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }

	require.NoError(t, f.store.UpsertBinding(context.Background(), "u1", 1001, "cookiezi"))
	return f
}

func (f *fixture) seed(t *testing.T, ago time.Duration, mode domain.Mode, playcount int64) {
	t.Helper()
	_, err := f.store.AppendSnapshot(context.Background(), "u1", domain.StatSnapshot{
		CreatedAt: f.now.Add(-ago), Mode: mode, UserID: 1001, Playcount: playcount, Count300: 10,
	})
	require.NoError(t, err)
}

func (f *fixture) history(t *testing.T) []domain.StatSnapshot {
	t.Helper()
	h, err := f.store.ListHistory(context.Background(), "u1")
	require.NoError(t, err)
	return h
}

func TestCard_SelfComparison(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 0)
	require.NoError(t, err)

	assert.True(t, res.Comparison.SelfCompared)
	assert.Equal(t, res.Comparison.Current, res.Comparison.Baseline)
	assert.Equal(t, int64(1110), res.Comparison.Current.TotalHits)
	assert.Equal(t, f.now, res.Snapshot.CreatedAt)
	assert.Equal(t, uint32(0), res.Request.Days)
	assert.Equal(t, res.Request.OutPath, res.ImagePath)
	assert.True(t, strings.HasSuffix(res.Request.OutPath, ".png"))
	assert.Same(t, res.Request, f.renderer.last)

	history := f.history(t)
	require.Len(t, history, 1)
	assert.Equal(t, res.Snapshot, history[0])

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, "u1", f.pub.events[0].ChatUserID)
	assert.Equal(t, res.Snapshot.ID, f.pub.events[0].Snapshot.ID)
}

func TestCard_WithBaseline(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10*24*time.Hour, domain.ModeOsu, 50)
	f.seed(t, 9*24*time.Hour, domain.ModeTaiko, 9)
	f.seed(t, 3*24*time.Hour, domain.ModeOsu, 80)

	res, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 7)
	require.NoError(t, err)

	assert.False(t, res.Comparison.SelfCompared)
	assert.Equal(t, int64(50), res.Comparison.Baseline.Playcount)
	assert.Equal(t, int64(100), res.Comparison.Current.Playcount)
	assert.Equal(t, uint32(7), res.Request.Days)
	assert.Equal(t, int64(50), res.Request.Baseline.Playcount)
	assert.Len(t, f.history(t), 4)
}

func TestCard_NoBaselineStillAppends(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2*24*time.Hour, domain.ModeOsu, 50)

	_, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 5)
	assert.ErrorIs(t, err, domain.ErrNoBaseline)
	assert.Len(t, f.history(t), 2)
	assert.Nil(t, f.renderer.last)
}

func TestCard_NoActivity(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 24*time.Hour+time.Second, domain.ModeOsu, 0)

	_, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 1)
	assert.ErrorIs(t, err, domain.ErrNoActivity)
	assert.Nil(t, f.renderer.last)
}

func TestCard_NormalizationFailureAppendsNothing(t *testing.T) {
	f := newFixture(t)
	bad := record(domain.ModeOsu, 1)
	bad.Count300 = "12a"
	f.fetcher.records[domain.ModeOsu] = bad

	_, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 0)

	var nerr *domain.NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "count300", nerr.Field)
	assert.Empty(t, f.history(t))
	assert.Empty(t, f.pub.events)
}

func TestCard_UpstreamFailureAppendsNothing(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = &domain.UpstreamError{Status: 502}

	_, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 0)

	var uerr *domain.UpstreamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, 502, uerr.Status)
	assert.Empty(t, f.history(t))
}

func TestCard_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Card(context.Background(), "u1", domain.Mode(9), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
	_, err = f.svc.Card(context.Background(), "u1", domain.ModeOsu, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidDays)
	_, err = f.svc.Card(context.Background(), "nobody", domain.ModeOsu, 0)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Zero(t, f.fetcher.calls)
}

func TestCard_OffsetTooLarge(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10*24*time.Hour, domain.ModeOsu, 50)

	for _, days := range []int{constants.MaxDays + 1, 106752} {
		_, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, days)
		assert.ErrorIs(t, err, domain.ErrInvalidDays, "days=%d", days)
		_, err = f.svc.Baseline(context.Background(), "u1", domain.ModeOsu, days)
		assert.ErrorIs(t, err, domain.ErrInvalidDays, "days=%d", days)
	}
	assert.Zero(t, f.fetcher.calls)
	assert.Len(t, f.history(t), 1)

	res, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, constants.MaxDays)
	assert.ErrorIs(t, err, domain.ErrNoBaseline)
	assert.Nil(t, res)
}

func TestCard_RenderFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = render.ErrNoImage

	_, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 0)
	assert.ErrorIs(t, err, render.ErrNoImage)
	assert.Len(t, f.history(t), 1)
}

func TestCard_SameInstantTwice(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 0)
	require.NoError(t, err)
	second, err := f.svc.Card(context.Background(), "u1", domain.ModeOsu, 0)
	require.NoError(t, err)

	assert.True(t, second.Snapshot.CreatedAt.After(first.Snapshot.CreatedAt))
}

func TestSnapshotAllModes(t *testing.T) {
	f := newFixture(t)

	snaps, err := f.svc.SnapshotAllModes(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, snaps, 4)
	for i, mode := range domain.AllModes {
		assert.Equal(t, mode, snaps[i].Mode)
	}

	history := f.history(t)
	require.Len(t, history, 4)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].CreatedAt.After(history[i-1].CreatedAt))
	}
	assert.Len(t, f.pub.events, 4)
}

func TestSnapshotAllModes_OneFailureAppendsNothing(t *testing.T) {
	f := newFixture(t)
	delete(f.fetcher.records, domain.ModeCatch)

	_, err := f.svc.SnapshotAllModes(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Empty(t, f.history(t))
}

func TestHistoryAndBaseline(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 10*24*time.Hour, domain.ModeOsu, 50)
	f.seed(t, 9*24*time.Hour, domain.ModeMania, 7)
	f.seed(t, 3*24*time.Hour, domain.ModeOsu, 80)

	osu, err := f.svc.History(context.Background(), "u1", domain.ModeOsu)
	require.NoError(t, err)
	require.Len(t, osu, 2)
	assert.Equal(t, int64(50), osu[0].Playcount)

	base, err := f.svc.Baseline(context.Background(), "u1", domain.ModeOsu, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(50), base.Playcount)

	_, err = f.svc.Baseline(context.Background(), "u1", domain.ModeTaiko, 1)
	assert.ErrorIs(t, err, domain.ErrNoBaseline)

	_, err = f.svc.History(context.Background(), "nobody", domain.ModeOsu)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
