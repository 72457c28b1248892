package render

import (
	"osu-tracker/internal/compare"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *domain.UserProfile {
	p := &domain.UserProfile{ChatUserID: "chat-1", AccountID: 1001, Nickname: "cookiezi"}
	p.Sign = "hello"
	p.Opacity = 35
	p.Background = "png/stat/sky.png"
	p.Edges[domain.EdgeProfile] = domain.Edge{Path: "png/tk/gold0.png", Color: "#ffcc00"}
	p.Edges[domain.EdgeData] = domain.Edge{Path: "png/tk/gold1.png"}
	p.Edges[domain.EdgeSign] = domain.Edge{Path: "png/tk/blue2.png", Color: "#0000ff"}
	return p
}

func testComparison() compare.Comparison {
	cur := domain.StatSnapshot{
		Mode: domain.ModeCatch, UserID: 1001, Username: "cookiezi", Country: "KR",
		Count300: 300, Count100: 100, Count50: 50, Playcount: 90,
		RankedScore: 5000, TotalScore: 9000, PP: 123.5, Level: 99.25, Accuracy: 0.975,
		GlobalRank: 15, CountryRank: 2,
		CountSSH: 1, CountSS: 2, CountSH: 3, CountS: 4, CountA: 5, TotalSecondsPlayed: 3600,
	}
	base := domain.StatSnapshot{
		Mode: domain.ModeCatch, UserID: 1001,
		Count300: 200, Count100: 50, Count50: 10, Playcount: 40,
		RankedScore: 4000, TotalScore: 7000, PP: 100, Level: 98, Accuracy: 0.5,
		GlobalRank: 30, CountryRank: 4,
		CountSSH: 6, CountSS: 7, CountSH: 8, CountS: 9, CountA: 10,
	}
	return compare.Build(cur, &base)
}

func TestRequest_Args(t *testing.T) {
	req := Build(testProfile(), testComparison(), 7, "/tmp/out.png")
	args := req.Args()

	want := []any{
		"default", "#ffcc00", "#0000ff",
		int32(2), int32(1001), "KR", "cookiezi", "chat-1",
		"hello", "png/stat/sky.png", "png/tk/gold0.png", "png/tk/gold1.png", "png/tk/blue2.png", int32(35),
		int32(300), int32(100), int32(50), int32(90),
		int64(9000), int64(5000), int64(450),
		float32(123.5), int32(2), int32(15),
		int32(1), int32(2), int32(3), int32(4), int32(5),
		int32(3600), float32(99.25), float64(97.5),
		int64(7000), int64(4000), int32(260), float64(50),
		float32(100), float32(98), int32(30), int32(4), int64(40),
		int32(6), int32(7), int32(8), int32(9), int32(10),
		uint32(7), "/tmp/out.png",
	}

	require.Len(t, args, 48)
	for i := range want {
		assert.IsType(t, want[i], args[i], "arg %d", i)
		if f, ok := want[i].(float64); ok {
			assert.InDelta(t, f, args[i], 1e-9, "arg %d", i)
			continue
		}
		assert.Equal(t, want[i], args[i], "arg %d", i)
	}
}

func TestBuild_SelfComparison(t *testing.T) {
	cur := testComparison().Current.StatSnapshot
	req := Build(testProfile(), compare.Build(cur, nil), 0, "out.png")

	assert.Equal(t, uint32(0), req.Days)
	assert.Equal(t, req.Current.TotalHits, int64(req.Baseline.TotalHits))
	assert.Equal(t, int64(req.Current.Playcount), req.Baseline.Playcount)
	assert.Equal(t, req.Current.Accuracy, req.Baseline.Accuracy)
}

func TestBuild_Clamps(t *testing.T) {
	cmp := testComparison()
	cmp.Current.Playcount = 1 << 40
	cmp.Current.UserID = 1 << 33
	cmp.Baseline.TotalHits = 1 << 35

	req := Build(testProfile(), cmp, -3, "out.png")

	assert.Equal(t, int32(2147483647), req.Current.Playcount)
	assert.Equal(t, int32(2147483647), req.Identity.UserID)
	assert.Equal(t, int32(2147483647), req.Baseline.TotalHits)
	assert.Equal(t, uint32(0), req.Days)

	req = Build(testProfile(), cmp, 1<<40, "out.png")
	assert.Equal(t, uint32(constants.MaxDays), req.Days)
}

func TestFormatArgs(t *testing.T) {
	got := FormatArgs([]any{"x", int32(-3), int64(1 << 40), uint32(7), float32(0.1), float64(97.5), true})
	assert.Equal(t, []string{"x", "-3", "1099511627776", "7", "0.1", "97.5", "true"}, got)
}
