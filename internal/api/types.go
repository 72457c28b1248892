package api

import (
	"bytes"
	"encoding/json"
)

// Text is a loosely-typed upstream value. The stats API sends numbers as
// strings, but occasionally as bare numbers or null; all three decode here
// and parsing is left to the normalizer.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

// UserRecord mirrors one element of the /users response.
type UserRecord struct {
	UserID             Text `json:"user_id"`
	Username           Text `json:"username"`
	Count300           Text `json:"count300"`
	Count100           Text `json:"count100"`
	Count50            Text `json:"count50"`
	Playcount          Text `json:"playcount"`
	RankedScore        Text `json:"ranked_score"`
	TotalScore         Text `json:"total_score"`
	PPRank             Text `json:"pp_rank"`
	Level              Text `json:"level"`
	PPRaw              Text `json:"pp_raw"`
	Accuracy           Text `json:"accuracy"`
	CountRankSS        Text `json:"count_rank_ss"`
	CountRankSSH       Text `json:"count_rank_ssh"`
	CountRankS         Text `json:"count_rank_s"`
	CountRankSH        Text `json:"count_rank_sh"`
	CountRankA         Text `json:"count_rank_a"`
	Country            Text `json:"country"`
	TotalSecondsPlayed Text `json:"total_seconds_played"`
	PPCountryRank      Text `json:"pp_country_rank"`
}

type LookupRecord struct {
	UserID   Text `json:"user_id"`
	Username Text `json:"username"`
}
