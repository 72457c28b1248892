package server

import (
	"osu-tracker/internal/compare"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/render"
	"time"
)

type ChatUser struct {
	ChatUserID string `json:"chatUserId" validate:"required,max=64,excludesall=/\\"`
}

type BindRequest struct {
	ChatUser
	Nickname string `json:"nickname" validate:"required,max=32"`
}

type BindResponse struct {
	AccountID int64 `json:"accountId"`
}

type UnbindRequest struct {
	ChatUser
}

type GetProfileRequest struct {
	ChatUser
}

// ProfileResponse carries the binding and cosmetics; snapshots are served by
// GetHistory.
type ProfileResponse struct {
	AccountID int64            `json:"accountId"`
	Nickname  string           `json:"nickname"`
	Cosmetics domain.Cosmetics `json:"cosmetics"`
	Snapshots int              `json:"snapshots"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type GetCardRequest struct {
	ChatUser
	Mode int `json:"mode" validate:"min=0,max=3"`
	Days int `json:"days" validate:"days"`
}

type CardResponse struct {
	Snapshot   domain.StatSnapshot `json:"snapshot"`
	Comparison compare.Comparison  `json:"comparison"`
	Render     *render.Request     `json:"render"`
	Args       []string            `json:"args"`
	ImagePath  string              `json:"imagePath,omitempty"`
}

type GetHistoryRequest struct {
	ChatUser
	Mode int `json:"mode" validate:"min=0,max=3"`
}

type SnapshotsResponse struct {
	Snapshots []domain.StatSnapshot `json:"snapshots"`
}

type UpdateSignRequest struct {
	ChatUser
	Sign string `json:"sign" validate:"required,max=200"`
}

type UpdateEdgeRequest struct {
	ChatUser
	Slot int    `json:"slot" validate:"min=0,max=2"`
	Name string `json:"name" validate:"required,max=64"`
}

type UpdateEdgeResponse struct {
	Edge domain.Edge `json:"edge"`
}

type UpdateBackgroundRequest struct {
	ChatUser
	Name string `json:"name" validate:"required,max=64"`
}

type UpdateBackgroundResponse struct {
	Path string `json:"path"`
}

type UpdateOpacityRequest struct {
	ChatUser
	Opacity int `json:"opacity" validate:"min=0,max=100"`
}

type SnapshotAllModesRequest struct {
	ChatUser
}

type Empty struct{}
