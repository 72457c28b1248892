package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"osu-tracker/internal/config"
	"osu-tracker/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *StatsClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewStatsClient(&config.Config{StatsAPIURL: srv.URL + "/", StatsAPIKey: "secret"})
}

func TestGetUser(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
		check   func(t *testing.T, rec *UserRecord)
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `[{"user_id":"1001","username":"cookiezi","playcount":350,"pp_raw":null,"accuracy":"98.5"}]`,
			check: func(t *testing.T, rec *UserRecord) {
				assert.Equal(t, Text("1001"), rec.UserID)
				assert.Equal(t, Text("cookiezi"), rec.Username)
				assert.Equal(t, Text("350"), rec.Playcount)
				assert.Equal(t, Text(""), rec.PPRaw)
				assert.Equal(t, Text("98.5"), rec.Accuracy)
			},
		},
		{
			name:   "empty array",
			status: http.StatusOK,
			body:   `[]`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrAccountNotFound)
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrAccountNotFound)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `oops`,
			wantErr: func(t *testing.T, err error) {
				var uerr *domain.UpstreamError
				require.True(t, errors.As(err, &uerr))
				assert.Equal(t, http.StatusInternalServerError, uerr.Status)
			},
		},
		{
			name:   "bad body",
			status: http.StatusOK,
			body:   `{"not":"an array"}`,
			wantErr: func(t *testing.T, err error) {
				var uerr *domain.UpstreamError
				require.True(t, errors.As(err, &uerr))
				assert.Equal(t, http.StatusOK, uerr.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery, gotAuth string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				gotAuth = r.Header.Get("Authorization")
				assert.Equal(t, "/users", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			rec, err := c.GetUser(context.Background(), 1001, domain.ModeMania)
			assert.Equal(t, "id=1001&mode=3", gotQuery)
			assert.Equal(t, "secret", gotAuth)

			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}

func TestGetUser_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetUser(ctx, 1, domain.ModeOsu)
	var uerr *domain.UpstreamError
	require.True(t, errors.As(err, &uerr), "got %v", err)
	assert.Equal(t, http.StatusGatewayTimeout, uerr.Status)
}

func TestGetUser_CanceledContext(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetUser(ctx, 1, domain.ModeOsu)
	var uerr *domain.UpstreamError
	require.True(t, errors.As(err, &uerr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLookupAccountID(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		want    int64
		wantErr error
		field   string
	}{
		{name: "string id", body: []map[string]any{{"user_id": "2002"}}, want: 2002},
		{name: "numeric id", body: []map[string]any{{"user_id": 3003}}, want: 3003},
		{name: "no match", body: []map[string]any{}, wantErr: domain.ErrAccountNotFound},
		{name: "garbage id", body: []map[string]any{{"user_id": "abc"}}, field: "user_id"},
		{name: "zero id", body: []map[string]any{{"user_id": "0"}}, field: "user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/lookup", r.URL.Path)
				assert.Equal(t, "some player", r.URL.Query().Get("nickname"))
				json.NewEncoder(w).Encode(tt.body)
			})

			id, err := c.LookupAccountID(context.Background(), "some player")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.field != "":
				var nerr *domain.NormalizationError
				require.True(t, errors.As(err, &nerr))
				assert.Equal(t, tt.field, nerr.Field)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, id)
			}
		})
	}
}

func TestText_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
		D Text `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":12.5,"c":null}`), &v))
	assert.Equal(t, Text("12"), v.A)
	assert.Equal(t, Text("12.5"), v.B)
	assert.Equal(t, Text(""), v.C)
	assert.Equal(t, Text(""), v.D)
}
