package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"osu-tracker/internal/config"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"osu-tracker/internal/metrics"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

type StatsClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewStatsClient(cfg *config.Config) *StatsClient {
	return &StatsClient{
		baseURL: strings.TrimRight(cfg.StatsAPIURL, "/"),
		apiKey:  cfg.StatsAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// GetUser fetches the raw stat record of one account in one mode. An empty
// result array or a 404 both mean the account does not exist.
func (c *StatsClient) GetUser(ctx context.Context, accountID int64, mode domain.Mode) (*UserRecord, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(accountID, 10))
	q.Set("mode", strconv.Itoa(int(mode)))

	records, err := doRequest[[]UserRecord](ctx, c, "users", c.baseURL+"/users?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if len(*records) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return &(*records)[0], nil
}

func (c *StatsClient) LookupAccountID(ctx context.Context, nickname string) (int64, error) {
	q := url.Values{}
	q.Set("nickname", nickname)

	records, err := doRequest[[]LookupRecord](ctx, c, "lookup", c.baseURL+"/lookup?"+q.Encode())
	if err != nil {
		return 0, err
	}
	if len(*records) == 0 {
		return 0, domain.ErrAccountNotFound
	}

	raw := (*records)[0].UserID
	id, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || id <= 0 {
		if err == nil {
			err = fmt.Errorf("non-positive id")
		}
		return 0, &domain.NormalizationError{Field: "user_id", Value: string(raw), Err: err}
	}
	return id, nil
}

func doRequest[T any](ctx context.Context, client *StatsClient, endpoint, uri string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.UpstreamError{Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	if client.apiKey != "" {
		req.Header.Set("Authorization", client.apiKey)
	}

	start := time.Now()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.client.DoDeadline(req, resp, deadline)
	} else {
		err = client.client.DoTimeout(req, resp, constants.ExternalAPITimeout)
	}
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "transport_error").Inc()
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, &domain.UpstreamError{Status: fasthttp.StatusGatewayTimeout, Err: err}
		}
		return nil, &domain.UpstreamError{Err: err}
	}

	status := resp.StatusCode()
	metrics.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()

	switch {
	case status == fasthttp.StatusNotFound:
		return nil, domain.ErrAccountNotFound
	case status != fasthttp.StatusOK:
		return nil, &domain.UpstreamError{Status: status}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &domain.UpstreamError{Status: status, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &result, nil
}
