// Package render builds the input of the external card renderer.
//
// The renderer takes a positional argument list. Request names every field;
// Args is the single place where the fixed wire order is produced:
//
//	dataColor profileColor signColor
//	mode userID country username chatUserID
//	sign background profileEdge dataEdge signEdge opacity
//	count300 count100 count50 playcount totalScore rankedScore totalHits
//	pp countryRank globalRank countSSH countSS countSH countS countA
//	totalSecondsPlayed level accuracy
//	baseTotalScore baseRankedScore baseTotalHits baseAccuracy basePP baseLevel
//	baseGlobalRank baseCountryRank basePlaycount
//	baseCountSSH baseCountSS baseCountSH baseCountS baseCountA
//	days outPath
//
// Accuracy crosses the boundary as a percentage; play time is in seconds.
package render

import (
	"math"
	"osu-tracker/internal/compare"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
)

type Colors struct {
	Data    string `json:"data"`
	Profile string `json:"profile"`
	Sign    string `json:"sign"`
}

type Identity struct {
	Mode       int32  `json:"mode"`
	UserID     int32  `json:"userId"`
	Country    string `json:"country"`
	Username   string `json:"username"`
	ChatUserID string `json:"chatUserId"`
}

type Appearance struct {
	Sign        string `json:"sign"`
	Background  string `json:"background"`
	ProfileEdge string `json:"profileEdge"`
	DataEdge    string `json:"dataEdge"`
	SignEdge    string `json:"signEdge"`
	Opacity     int32  `json:"opacity"`
}

type CurrentStats struct {
	Count300           int32   `json:"count300"`
	Count100           int32   `json:"count100"`
	Count50            int32   `json:"count50"`
	Playcount          int32   `json:"playcount"`
	TotalScore         int64   `json:"totalScore"`
	RankedScore        int64   `json:"rankedScore"`
	TotalHits          int64   `json:"totalHits"`
	PP                 float32 `json:"pp"`
	CountryRank        int32   `json:"countryRank"`
	GlobalRank         int32   `json:"globalRank"`
	CountSSH           int32   `json:"countSSH"`
	CountSS            int32   `json:"countSS"`
	CountSH            int32   `json:"countSH"`
	CountS             int32   `json:"countS"`
	CountA             int32   `json:"countA"`
	TotalSecondsPlayed int32   `json:"totalSecondsPlayed"`
	Level              float32 `json:"level"`
	Accuracy           float64 `json:"accuracy"`
}

type BaselineStats struct {
	TotalScore  int64   `json:"totalScore"`
	RankedScore int64   `json:"rankedScore"`
	TotalHits   int32   `json:"totalHits"`
	Accuracy    float64 `json:"accuracy"`
	PP          float32 `json:"pp"`
	Level       float32 `json:"level"`
	GlobalRank  int32   `json:"globalRank"`
	CountryRank int32   `json:"countryRank"`
	Playcount   int64   `json:"playcount"`
	CountSSH    int32   `json:"countSSH"`
	CountSS     int32   `json:"countSS"`
	CountSH     int32   `json:"countSH"`
	CountS      int32   `json:"countS"`
	CountA      int32   `json:"countA"`
}

type Request struct {
	Colors     Colors        `json:"colors"`
	Identity   Identity      `json:"identity"`
	Appearance Appearance    `json:"appearance"`
	Current    CurrentStats  `json:"current"`
	Baseline   BaselineStats `json:"baseline"`
	Days       uint32        `json:"days"`
	OutPath    string        `json:"outPath"`
}

// Build assembles the renderer input for profile from a comparison.
func Build(profile *domain.UserProfile, cmp compare.Comparison, days int, outPath string) *Request {
	cur, base := cmp.Current, cmp.Baseline
	days = min(max(days, 0), constants.MaxDays)

	return &Request{
		Colors: Colors{
			Data:    profile.EdgeColor(domain.EdgeData),
			Profile: profile.EdgeColor(domain.EdgeProfile),
			Sign:    profile.EdgeColor(domain.EdgeSign),
		},
		Identity: Identity{
			Mode:       int32(cur.Mode),
			UserID:     clamp32(cur.UserID),
			Country:    cur.Country,
			Username:   cur.Username,
			ChatUserID: profile.ChatUserID,
		},
		Appearance: Appearance{
			Sign:        profile.Sign,
			Background:  profile.Background,
			ProfileEdge: profile.Edge(domain.EdgeProfile).Path,
			DataEdge:    profile.Edge(domain.EdgeData).Path,
			SignEdge:    profile.Edge(domain.EdgeSign).Path,
			Opacity:     int32(profile.Opacity),
		},
		Current: CurrentStats{
			Count300:           cur.Count300,
			Count100:           cur.Count100,
			Count50:            cur.Count50,
			Playcount:          clamp32(cur.Playcount),
			TotalScore:         cur.TotalScore,
			RankedScore:        cur.RankedScore,
			TotalHits:          cur.TotalHits,
			PP:                 cur.PP,
			CountryRank:        cur.CountryRank,
			GlobalRank:         cur.GlobalRank,
			CountSSH:           cur.CountSSH,
			CountSS:            cur.CountSS,
			CountSH:            cur.CountSH,
			CountS:             cur.CountS,
			CountA:             cur.CountA,
			TotalSecondsPlayed: cur.TotalSecondsPlayed,
			Level:              cur.Level,
			Accuracy:           cur.Accuracy * 100,
		},
		Baseline: BaselineStats{
			TotalScore:  base.TotalScore,
			RankedScore: base.RankedScore,
			TotalHits:   clamp32(base.TotalHits),
			Accuracy:    base.Accuracy * 100,
			PP:          base.PP,
			Level:       base.Level,
			GlobalRank:  base.GlobalRank,
			CountryRank: base.CountryRank,
			Playcount:   base.Playcount,
			CountSSH:    base.CountSSH,
			CountSS:     base.CountSS,
			CountSH:     base.CountSH,
			CountS:      base.CountS,
			CountA:      base.CountA,
		},
		Days:    uint32(days),
		OutPath: outPath,
	}
}

// Args serializes r in the renderer's positional order. Element types are
// part of the contract.
func (r *Request) Args() []any {
	c, b := r.Current, r.Baseline
	return []any{
		r.Colors.Data, r.Colors.Profile, r.Colors.Sign,

		r.Identity.Mode, r.Identity.UserID, r.Identity.Country, r.Identity.Username, r.Identity.ChatUserID,

		r.Appearance.Sign, r.Appearance.Background,
		r.Appearance.ProfileEdge, r.Appearance.DataEdge, r.Appearance.SignEdge,
		r.Appearance.Opacity,

		c.Count300, c.Count100, c.Count50, c.Playcount,
		c.TotalScore, c.RankedScore, c.TotalHits,
		c.PP, c.CountryRank, c.GlobalRank,
		c.CountSSH, c.CountSS, c.CountSH, c.CountS, c.CountA,
		c.TotalSecondsPlayed, c.Level, c.Accuracy,

		b.TotalScore, b.RankedScore, b.TotalHits, b.Accuracy,
		b.PP, b.Level, b.GlobalRank, b.CountryRank, b.Playcount,
		b.CountSSH, b.CountSS, b.CountSH, b.CountS, b.CountA,

		r.Days, r.OutPath,
	}
}

func clamp32(n int64) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
