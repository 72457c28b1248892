package domain

import (
	"fmt"
	"time"
)

type Mode int

const (
	ModeOsu Mode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

var AllModes = []Mode{ModeOsu, ModeTaiko, ModeCatch, ModeMania}

func (m Mode) Valid() bool {
	return m >= ModeOsu && m <= ModeMania
}

func (m Mode) String() string {
	switch m {
	case ModeOsu:
		return "osu"
	case ModeTaiko:
		return "taiko"
	case ModeCatch:
		return "catch"
	case ModeMania:
		return "mania"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// StatSnapshot is one normalized stat fetch for a single mode. Snapshots are
// append-only; CreatedAt is both the ordering key and the identity.
type StatSnapshot struct {
	ID        string    `json:"id"` // nanoid
	CreatedAt time.Time `json:"createdAt"`
	Mode      Mode      `json:"mode"`

	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Country  string `json:"country"`

	Count300 int32 `json:"count300"`
	Count100 int32 `json:"count100"`
	Count50  int32 `json:"count50"`

	Playcount   int64   `json:"playcount"`
	RankedScore int64   `json:"rankedScore"`
	TotalScore  int64   `json:"totalScore"`
	PP          float32 `json:"pp"`
	Level       float32 `json:"level"`
	Accuracy    float64 `json:"accuracy"` // ratio, 0..1

	GlobalRank  int32 `json:"globalRank"`
	CountryRank int32 `json:"countryRank"`

	CountSSH int32 `json:"countSSH"`
	CountSS  int32 `json:"countSS"`
	CountSH  int32 `json:"countSH"`
	CountS   int32 `json:"countS"`
	CountA   int32 `json:"countA"`

	TotalSecondsPlayed int32 `json:"totalSecondsPlayed"`
}

// TotalHits is derived on every read and never persisted.
func (s StatSnapshot) TotalHits() int64 {
	return int64(s.Count300) + int64(s.Count100) + int64(s.Count50)
}

type EdgeSlot int

const (
	EdgeProfile EdgeSlot = iota
	EdgeData
	EdgeSign
)

var EdgeSlots = []EdgeSlot{EdgeProfile, EdgeData, EdgeSign}

func (s EdgeSlot) Valid() bool {
	return s >= EdgeProfile && s <= EdgeSign
}

func (s EdgeSlot) String() string {
	switch s {
	case EdgeProfile:
		return "profile"
	case EdgeData:
		return "data"
	case EdgeSign:
		return "sign"
	}
	return fmt.Sprintf("edge(%d)", int(s))
}

const DefaultColor = "default"

type Edge struct {
	Path  string `json:"path"`
	Color string `json:"color"`
}

type Cosmetics struct {
	Sign       string  `json:"sign"`
	Opacity    int     `json:"opacity"`
	Edges      [3]Edge `json:"edges"`
	Background string  `json:"background"`
}

func (c Cosmetics) Edge(slot EdgeSlot) Edge {
	return c.Edges[slot]
}

func (c Cosmetics) EdgeColor(slot EdgeSlot) string {
	if color := c.Edges[slot].Color; color != "" {
		return color
	}
	return DefaultColor
}

type UserProfile struct {
	ChatUserID string `json:"id"`
	AccountID  int64  `json:"accountId"`
	Nickname   string `json:"nickname"`
	Cosmetics
	History   []StatSnapshot `json:"history"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// LatestCreatedAt returns the zero time for an empty history.
func (p *UserProfile) LatestCreatedAt() time.Time {
	if len(p.History) == 0 {
		return time.Time{}
	}
	return p.History[len(p.History)-1].CreatedAt
}
