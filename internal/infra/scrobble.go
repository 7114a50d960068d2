package infra

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/guregu/null.v3"

	"github.com/chartloop/backend/internal/app/appconfig"
	"github.com/chartloop/backend/internal/model/types"
	"github.com/chartloop/backend/internal/pkg/chartweek"
)

var (
	// ErrAccountUnreachable marks a terminal per-member failure: the linked
	// scrobbling account is private, deleted, or otherwise gone. Callers must
	// not retry it within a run.
	ErrAccountUnreachable = errors.New("scrobble: account unreachable")

	// ErrProviderUnavailable marks a transient provider-side failure that
	// survived the client's bounded retries.
	ErrProviderUnavailable = errors.New("scrobble: provider unavailable")
)

// ScrobbleClient fetches members' weekly listening history from the
// scrobbling provider's REST API. Rate limiting and the bounded retry policy
// live here so that service-level callers only ever see one terminal result
// per (member, week) fetch.
type ScrobbleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewScrobbleClient(conf *appconfig.Config) *ScrobbleClient {
	return &ScrobbleClient{
		httpClient: &http.Client{
			Timeout: conf.ScrobbleFetchTimeout,
		},
		baseURL: conf.ScrobbleAPIBaseURL,
		apiKey:  conf.ScrobbleAPIKey,
	}
}

type weeklyChartResponse struct {
	Entries []struct {
		Key       string `json:"key"`
		Name      string `json:"name"`
		Artist    string `json:"artist"`
		Playcount string `json:"playcount"`
	} `json:"entries"`
}

// FetchWeeklyStats returns the provider's weekly chart rows for one account,
// week and entry type, ordered by the account's own weekly rank. Transient
// provider errors are retried a bounded number of times; what escapes this
// method is terminal for the current run.
func (c *ScrobbleClient) FetchWeeklyStats(ctx context.Context, externalUsername string, weekStart time.Time, entryType string) ([]types.StatsRow, error) {
	var rows []types.StatsRow

	err := retry.Do(
		func() error {
			var err error
			rows, err = c.fetchOnce(ctx, externalUsername, weekStart, entryType)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrAccountUnreachable)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, ErrAccountUnreachable) {
			return nil, err
		}
		return nil, errors.Wrap(ErrProviderUnavailable, err.Error())
	}

	return rows, nil
}

func (c *ScrobbleClient) fetchOnce(ctx context.Context, externalUsername string, weekStart time.Time, entryType string) ([]types.StatsRow, error) {
	q := url.Values{}
	q.Set("user", externalUsername)
	q.Set("type", entryType)
	q.Set("from", strconv.FormatInt(weekStart.UTC().Unix(), 10))
	q.Set("to", strconv.FormatInt(chartweek.End(weekStart).UTC().Unix(), 10))
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weekly?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reach provider")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, errors.Wrap(ErrAccountUnreachable, fmt.Sprintf("user %s: provider returned %d", externalUsername, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("provider returned unexpected status %d", resp.StatusCode)
	}

	var body weeklyChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode provider response")
	}

	rows := make([]types.StatsRow, 0, len(body.Entries))
	for _, entry := range body.Entries {
		playcount, err := strconv.Atoi(entry.Playcount)
		if err != nil {
			// a malformed row contributes nothing rather than failing the fetch
			log.Warn().
				Str("user", externalUsername).
				Str("entryKey", entry.Key).
				Str("playcount", entry.Playcount).
				Msg("scrobble: skipping row with malformed playcount")
			continue
		}
		rows = append(rows, types.StatsRow{
			EntryKey:  entry.Key,
			Name:      entry.Name,
			Artist:    null.NewString(entry.Artist, entry.Artist != ""),
			Playcount: playcount,
		})
	}

	return rows, nil
}
