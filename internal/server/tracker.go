package server

import (
	"context"
	"errors"
	"net/http"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/ratelimit"
	"osu-tracker/internal/render"
	"osu-tracker/internal/service"
	"time"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const TrackerPath = "/osutracker.v1.Tracker/"

const (
	BindProcedure             = TrackerPath + "Bind"
	UnbindProcedure           = TrackerPath + "Unbind"
	GetProfileProcedure       = TrackerPath + "GetProfile"
	GetCardProcedure          = TrackerPath + "GetCard"
	GetHistoryProcedure       = TrackerPath + "GetHistory"
	UpdateSignProcedure       = TrackerPath + "UpdateSign"
	UpdateEdgeProcedure       = TrackerPath + "UpdateEdge"
	UpdateBackgroundProcedure = TrackerPath + "UpdateBackground"
	UpdateOpacityProcedure    = TrackerPath + "UpdateOpacity"
	SnapshotAllModesProcedure = TrackerPath + "SnapshotAllModes"
)

var ErrTooFrequent = errors.New("command used too frequently, try again later")

type TrackerServer struct {
	statSvc    *service.StatService
	profileSvc *service.ProfileService
	gate       *ratelimit.Gate
	validate   *validator.Validate
	logger     zerolog.Logger
}

func NewTrackerServer(statSvc *service.StatService, profileSvc *service.ProfileService, gate *ratelimit.Gate, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{
		statSvc:    statSvc,
		profileSvc: profileSvc,
		gate:       gate,
		validate:   newValidator(),
		logger:     logger,
	}
}

// newValidator registers the "days" tag, the comparison offset range.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("days", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= 0 && d <= constants.MaxDays
	}); err != nil {
		panic(err)
	}
	return v
}

// Handler mounts every procedure under TrackerPath.
func (s *TrackerServer) Handler() (string, http.Handler) {
	opts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}

	mux := http.NewServeMux()
	mux.Handle(BindProcedure, connect.NewUnaryHandler(BindProcedure, s.Bind, opts...))
	mux.Handle(UnbindProcedure, connect.NewUnaryHandler(UnbindProcedure, s.Unbind, opts...))
	mux.Handle(GetProfileProcedure, connect.NewUnaryHandler(GetProfileProcedure, s.GetProfile, opts...))
	mux.Handle(GetCardProcedure, connect.NewUnaryHandler(GetCardProcedure, s.GetCard, opts...))
	mux.Handle(GetHistoryProcedure, connect.NewUnaryHandler(GetHistoryProcedure, s.GetHistory, opts...))
	mux.Handle(UpdateSignProcedure, connect.NewUnaryHandler(UpdateSignProcedure, s.UpdateSign, opts...))
	mux.Handle(UpdateEdgeProcedure, connect.NewUnaryHandler(UpdateEdgeProcedure, s.UpdateEdge, opts...))
	mux.Handle(UpdateBackgroundProcedure, connect.NewUnaryHandler(UpdateBackgroundProcedure, s.UpdateBackground, opts...))
	mux.Handle(UpdateOpacityProcedure, connect.NewUnaryHandler(UpdateOpacityProcedure, s.UpdateOpacity, opts...))
	mux.Handle(SnapshotAllModesProcedure, connect.NewUnaryHandler(SnapshotAllModesProcedure, s.SnapshotAllModes, opts...))
	return TrackerPath, mux
}

func (s *TrackerServer) Bind(ctx context.Context, req *connect.Request[BindRequest]) (*connect.Response[BindResponse], error) {
	if err := s.check(ctx, "bind", req.Msg, req.Msg.ChatUserID); err != nil {
		return nil, err
	}

	accountID, err := s.profileSvc.Bind(ctx, req.Msg.ChatUserID, req.Msg.Nickname)
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&BindResponse{AccountID: accountID}), nil
}

func (s *TrackerServer) Unbind(ctx context.Context, req *connect.Request[UnbindRequest]) (*connect.Response[Empty], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	if err := s.profileSvc.Unbind(ctx, req.Msg.ChatUserID); err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *TrackerServer) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[ProfileResponse], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	p, err := s.profileSvc.Get(ctx, req.Msg.ChatUserID)
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&ProfileResponse{
		AccountID: p.AccountID,
		Nickname:  p.Nickname,
		Cosmetics: p.Cosmetics,
		Snapshots: len(p.History),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}), nil
}

func (s *TrackerServer) GetCard(ctx context.Context, req *connect.Request[GetCardRequest]) (*connect.Response[CardResponse], error) {
	start := time.Now()
	if err := s.check(ctx, "card", req.Msg, req.Msg.ChatUserID); err != nil {
		return nil, err
	}

	res, err := s.statSvc.Card(ctx, req.Msg.ChatUserID, domain.Mode(req.Msg.Mode), req.Msg.Days)
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}

	zerolog.Ctx(ctx).Debug().Dur("elapsed", time.Since(start)).Msg("card served")
	return connect.NewResponse(&CardResponse{
		Snapshot:   res.Snapshot,
		Comparison: res.Comparison,
		Render:     res.Request,
		Args:       render.FormatArgs(res.Request.Args()),
		ImagePath:  res.ImagePath,
	}), nil
}

func (s *TrackerServer) GetHistory(ctx context.Context, req *connect.Request[GetHistoryRequest]) (*connect.Response[SnapshotsResponse], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	snaps, err := s.statSvc.History(ctx, req.Msg.ChatUserID, domain.Mode(req.Msg.Mode))
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&SnapshotsResponse{Snapshots: snaps}), nil
}

func (s *TrackerServer) UpdateSign(ctx context.Context, req *connect.Request[UpdateSignRequest]) (*connect.Response[Empty], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	if err := s.profileSvc.UpdateSign(ctx, req.Msg.ChatUserID, req.Msg.Sign); err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *TrackerServer) UpdateEdge(ctx context.Context, req *connect.Request[UpdateEdgeRequest]) (*connect.Response[UpdateEdgeResponse], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	edge, err := s.profileSvc.UpdateEdge(ctx, req.Msg.ChatUserID, domain.EdgeSlot(req.Msg.Slot), req.Msg.Name)
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&UpdateEdgeResponse{Edge: edge}), nil
}

func (s *TrackerServer) UpdateBackground(ctx context.Context, req *connect.Request[UpdateBackgroundRequest]) (*connect.Response[UpdateBackgroundResponse], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	path, err := s.profileSvc.UpdateBackground(ctx, req.Msg.ChatUserID, req.Msg.Name)
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&UpdateBackgroundResponse{Path: path}), nil
}

func (s *TrackerServer) UpdateOpacity(ctx context.Context, req *connect.Request[UpdateOpacityRequest]) (*connect.Response[Empty], error) {
	if err := s.check(ctx, "", req.Msg, ""); err != nil {
		return nil, err
	}

	if err := s.profileSvc.UpdateOpacity(ctx, req.Msg.ChatUserID, req.Msg.Opacity); err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *TrackerServer) SnapshotAllModes(ctx context.Context, req *connect.Request[SnapshotAllModesRequest]) (*connect.Response[SnapshotsResponse], error) {
	if err := s.check(ctx, "snapshot", req.Msg, req.Msg.ChatUserID); err != nil {
		return nil, err
	}

	snaps, err := s.statSvc.SnapshotAllModes(ctx, req.Msg.ChatUserID)
	if err != nil {
		return nil, s.toConnectError(ctx, err)
	}
	return connect.NewResponse(&SnapshotsResponse{Snapshots: snaps}), nil
}

// check validates msg and, for a non-empty command, applies the per-user
// interval gate.
func (s *TrackerServer) check(ctx context.Context, command string, msg any, user string) error {
	if err := s.validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if command != "" && !s.gate.Allow(command, user) {
		zerolog.Ctx(ctx).Debug().Str("command", command).Str("chat_user_id", user).Msg("rate limited")
		return connect.NewError(connect.CodeResourceExhausted, ErrTooFrequent)
	}
	return nil
}

func (s *TrackerServer) toConnectError(ctx context.Context, err error) error {
	code := CodeOf(err)
	if code == connect.CodeInternal {
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
	}
	return connect.NewError(code, err)
}

// CodeOf maps the domain error taxonomy onto connect codes.
func CodeOf(err error) connect.Code {
	var (
		upstream *domain.UpstreamError
		norm     *domain.NormalizationError
		invalid  validator.ValidationErrors
	)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrAssetNotFound):
		return connect.CodeNotFound
	case errors.As(err, &upstream), errors.As(err, &norm):
		return connect.CodeUnavailable
	case errors.Is(err, domain.ErrNoBaseline), errors.Is(err, domain.ErrNoActivity):
		return connect.CodeFailedPrecondition
	case errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidDays),
		errors.Is(err, domain.ErrInvalidOpacity),
		errors.Is(err, domain.ErrInvalidEdgeSlot),
		errors.Is(err, domain.ErrEmptySign),
		errors.As(err, &invalid):
		return connect.CodeInvalidArgument
	case errors.Is(err, ErrTooFrequent):
		return connect.CodeResourceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	}
	return connect.CodeInternal
}
