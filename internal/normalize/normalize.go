// Package normalize turns the string-typed stats API record into a
// domain.StatSnapshot. It is the only place upstream numbers are parsed.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"osu-tracker/internal/api"
	"osu-tracker/internal/domain"
	"strconv"
	"strings"
)

var (
	errNegative    = errors.New("negative value")
	errOutOfRange  = errors.New("out of range")
	errNotFinite   = errors.New("not a finite number")
	errMissingUser = errors.New("missing account id")
)

// parser accumulates one NormalizationError per bad field so a single call
// reports every malformed value in the payload.
type parser struct {
	errs []error
}

func (p *parser) fail(field string, value api.Text, err error) {
	p.errs = append(p.errs, &domain.NormalizationError{Field: field, Value: string(value), Err: err})
}

func (p *parser) int64(field string, value api.Text) int64 {
	s := strings.TrimSpace(string(value))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some mirrors send integral counters as "123.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			p.fail(field, value, err)
			return 0
		}
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if math.Abs(f) >= math.MaxInt64 {
			p.fail(field, value, errOutOfRange)
			return 0
		}
		n = int64(f)
	}
	if n < 0 {
		p.fail(field, value, errNegative)
		return 0
	}
	return n
}

func (p *parser) int32(field string, value api.Text) int32 {
	n := p.int64(field, value)
	if n > math.MaxInt32 {
		p.fail(field, value, errOutOfRange)
		return 0
	}
	return int32(n)
}

func (p *parser) float64(field string, value api.Text, bits int) float64 {
	s := strings.TrimSpace(string(value))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		p.fail(field, value, err)
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		p.fail(field, value, errNotFinite)
		return 0
	}
	if f < 0 {
		p.fail(field, value, errNegative)
		return 0
	}
	return f
}

func (p *parser) float32(field string, value api.Text) float32 {
	return float32(p.float64(field, value, 32))
}

// accuracy accepts a ratio in [0,1] or a percentage in (1,100].
func (p *parser) accuracy(value api.Text) float64 {
	f := p.float64("accuracy", value, 64)
	switch {
	case f <= 1:
		return f
	case f <= 100:
		return f / 100
	default:
		p.fail("accuracy", value, errOutOfRange)
		return 0
	}
}

// Normalize converts raw into a snapshot for mode. CreatedAt and ID are left
// for the store to assign. On failure the returned error joins one
// *domain.NormalizationError per malformed field.
func Normalize(raw *api.UserRecord, mode domain.Mode) (domain.StatSnapshot, error) {
	if raw == nil {
		return domain.StatSnapshot{}, domain.ErrAccountNotFound
	}
	if !mode.Valid() {
		return domain.StatSnapshot{}, domain.ErrInvalidMode
	}

	p := &parser{}
	s := domain.StatSnapshot{
		Mode:               mode,
		UserID:             p.int64("user_id", raw.UserID),
		Username:           strings.TrimSpace(string(raw.Username)),
		Country:            strings.ToUpper(strings.TrimSpace(string(raw.Country))),
		Count300:           p.int32("count300", raw.Count300),
		Count100:           p.int32("count100", raw.Count100),
		Count50:            p.int32("count50", raw.Count50),
		Playcount:          p.int64("playcount", raw.Playcount),
		RankedScore:        p.int64("ranked_score", raw.RankedScore),
		TotalScore:         p.int64("total_score", raw.TotalScore),
		PP:                 p.float32("pp_raw", raw.PPRaw),
		Level:              p.float32("level", raw.Level),
		Accuracy:           p.accuracy(raw.Accuracy),
		GlobalRank:         p.int32("pp_rank", raw.PPRank),
		CountryRank:        p.int32("pp_country_rank", raw.PPCountryRank),
		CountSSH:           p.int32("count_rank_ssh", raw.CountRankSSH),
		CountSS:            p.int32("count_rank_ss", raw.CountRankSS),
		CountSH:            p.int32("count_rank_sh", raw.CountRankSH),
		CountS:             p.int32("count_rank_s", raw.CountRankS),
		CountA:             p.int32("count_rank_a", raw.CountRankA),
		TotalSecondsPlayed: p.int32("total_seconds_played", raw.TotalSecondsPlayed),
	}
	if len(p.errs) == 0 && s.UserID == 0 {
		p.fail("user_id", raw.UserID, errMissingUser)
	}

	if len(p.errs) > 0 {
		return domain.StatSnapshot{}, fmt.Errorf("normalize %s record: %w", mode, errors.Join(p.errs...))
	}
	return s, nil
}

// ToRecord renders s in the upstream string form. Normalize(ToRecord(s))
// yields s again (apart from ID and CreatedAt).
func ToRecord(s domain.StatSnapshot) *api.UserRecord {
	i := func(n int64) api.Text { return api.Text(strconv.FormatInt(n, 10)) }
	f32 := func(f float32) api.Text { return api.Text(strconv.FormatFloat(float64(f), 'g', -1, 32)) }

	return &api.UserRecord{
		UserID:             i(s.UserID),
		Username:           api.Text(s.Username),
		Count300:           i(int64(s.Count300)),
		Count100:           i(int64(s.Count100)),
		Count50:            i(int64(s.Count50)),
		Playcount:          i(s.Playcount),
		RankedScore:        i(s.RankedScore),
		TotalScore:         i(s.TotalScore),
		PPRank:             i(int64(s.GlobalRank)),
		Level:              f32(s.Level),
		PPRaw:              f32(s.PP),
		Accuracy:           api.Text(strconv.FormatFloat(s.Accuracy, 'g', -1, 64)),
		CountRankSS:        i(int64(s.CountSS)),
		CountRankSSH:       i(int64(s.CountSSH)),
		CountRankS:         i(int64(s.CountS)),
		CountRankSH:        i(int64(s.CountSH)),
		CountRankA:         i(int64(s.CountA)),
		Country:            api.Text(s.Country),
		TotalSecondsPlayed: i(int64(s.TotalSecondsPlayed)),
		PPCountryRank:      i(int64(s.CountryRank)),
	}
}
