package repository

import (
	"osu-tracker/internal/domain"
	"time"
)

const snapshotColumns = `id, created_at, mode, user_id, username, country,
	count300, count100, count50, playcount, ranked_score, total_score,
	pp, level, accuracy, global_rank, country_rank,
	count_ssh, count_ss, count_sh, count_s, count_a, total_seconds_played`

const profileColumns = `chat_user_id, account_id, nickname, sign, opacity,
	profile_edge, profile_edge_color, data_edge, data_edge_color,
	sign_edge, sign_edge_color, background, created_at, updated_at`

// scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (domain.StatSnapshot, error) {
	var (
		s         domain.StatSnapshot
		createdAt int64
		mode      int
	)
	err := row.Scan(
		&s.ID, &createdAt, &mode, &s.UserID, &s.Username, &s.Country,
		&s.Count300, &s.Count100, &s.Count50, &s.Playcount, &s.RankedScore, &s.TotalScore,
		&s.PP, &s.Level, &s.Accuracy, &s.GlobalRank, &s.CountryRank,
		&s.CountSSH, &s.CountSS, &s.CountSH, &s.CountS, &s.CountA, &s.TotalSecondsPlayed,
	)
	if err != nil {
		return s, err
	}
	s.CreatedAt = fromMicros(createdAt)
	s.Mode = domain.Mode(mode)
	return s, nil
}

func snapshotArgs(chatUserID string, s domain.StatSnapshot) []any {
	return []any{
		s.ID, chatUserID, toMicros(s.CreatedAt), int(s.Mode), s.UserID, s.Username, s.Country,
		s.Count300, s.Count100, s.Count50, s.Playcount, s.RankedScore, s.TotalScore,
		s.PP, s.Level, s.Accuracy, s.GlobalRank, s.CountryRank,
		s.CountSSH, s.CountSS, s.CountSH, s.CountS, s.CountA, s.TotalSecondsPlayed,
	}
}

func scanProfile(row scanner) (*domain.UserProfile, error) {
	var (
		p                    domain.UserProfile
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&p.ChatUserID, &p.AccountID, &p.Nickname, &p.Sign, &p.Opacity,
		&p.Edges[domain.EdgeProfile].Path, &p.Edges[domain.EdgeProfile].Color,
		&p.Edges[domain.EdgeData].Path, &p.Edges[domain.EdgeData].Color,
		&p.Edges[domain.EdgeSign].Path, &p.Edges[domain.EdgeSign].Color,
		&p.Background, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromMicros(createdAt)
	p.UpdatedAt = fromMicros(updatedAt)
	return &p, nil
}

func cosmeticsArgs(c domain.Cosmetics) []any {
	return []any{
		c.Sign, c.Opacity,
		c.Edges[domain.EdgeProfile].Path, c.Edges[domain.EdgeProfile].Color,
		c.Edges[domain.EdgeData].Path, c.Edges[domain.EdgeData].Color,
		c.Edges[domain.EdgeSign].Path, c.Edges[domain.EdgeSign].Color,
		c.Background,
	}
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
