package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"osu-tracker/internal/config"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/metrics"
	"strconv"

	"github.com/rs/zerolog"
)

var ErrNoImage = errors.New("renderer produced no image")

// Renderer turns a request into an image at req.OutPath and returns that
// path. An empty path with a nil error means rendering is disabled.
type Renderer interface {
	Render(ctx context.Context, req *Request) (string, error)
}

func New(cfg *config.Config, logger zerolog.Logger) Renderer {
	if cfg.RenderBin == "" {
		logger.Info().Msg("RENDER_BIN not set, cards will not be rendered")
		return NopRenderer{}
	}
	return &ExecRenderer{bin: cfg.RenderBin, logger: logger}
}

type NopRenderer struct{}

func (NopRenderer) Render(context.Context, *Request) (string, error) {
	return "", nil
}

// ExecRenderer runs the card binary with the positional arguments. The
// binary has no error channel besides writing (or not writing) the file.
type ExecRenderer struct {
	bin    string
	logger zerolog.Logger
}

func NewExecRenderer(bin string, logger zerolog.Logger) *ExecRenderer {
	return &ExecRenderer{bin: bin, logger: logger}
}

func (r *ExecRenderer) Render(ctx context.Context, req *Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RenderTimeout)
	defer cancel()

	args := FormatArgs(req.Args())
	_ = os.Remove(req.OutPath)

	out, err := exec.CommandContext(ctx, r.bin, args...).CombinedOutput()
	if err != nil {
		r.logger.Warn().Err(err).Str("bin", r.bin).Bytes("output", out).Msg("renderer exited with error")
	}

	if _, statErr := os.Stat(req.OutPath); statErr != nil {
		metrics.CardsRendered.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w at %s: %v", ErrNoImage, req.OutPath, errors.Join(err, statErr))
	}

	metrics.CardsRendered.WithLabelValues("ok").Inc()
	r.logger.Debug().Str("path", req.OutPath).Msg("card rendered")
	return req.OutPath, nil
}

// FormatArgs renders each wire value in its canonical text form.
func FormatArgs(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			out[i] = x
		case int32:
			out[i] = strconv.FormatInt(int64(x), 10)
		case int64:
			out[i] = strconv.FormatInt(x, 10)
		case uint32:
			out[i] = strconv.FormatUint(uint64(x), 10)
		case float32:
			out[i] = strconv.FormatFloat(float64(x), 'f', -1, 32)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
