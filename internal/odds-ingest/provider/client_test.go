package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oddsPayload = `[{
  "id": "evt-1",
  "sport_key": "basketball_nba",
  "sport_title": "NBA",
  "commence_time": "2026-01-10T19:00:00Z",
  "home_team": "Los Angeles Lakers",
  "away_team": "Boston Celtics",
  "bookmakers": [{
    "key": "draftkings",
    "title": "DraftKings",
    "last_update": "2026-01-10T12:00:00Z",
    "markets": [
      {"key": "h2h", "outcomes": [{"name": "Los Angeles Lakers", "price": -150}, {"name": "Boston Celtics", "price": 130}]},
      {"key": "spreads", "outcomes": [{"name": "Los Angeles Lakers", "price": -110, "point": -3.5}, {"name": "Boston Celtics", "price": -110, "point": 3.5}]}
    ]
  }]
}]`

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchOdds_DecodesAndTracksQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/basketball_nba/odds/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apiKey"))
		assert.Equal(t, "us,uk", q.Get("regions"))
		assert.Equal(t, "h2h,spreads", q.Get("markets"))
		assert.Equal(t, "american", q.Get("oddsFormat"))
		w.Header().Set("x-requests-remaining", "480")
		w.Header().Set("x-requests-used", "20")
		_, _ = w.Write([]byte(oddsPayload))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)
	assert.Equal(t, -1, c.RequestsRemaining())

	events, err := c.FetchOdds(context.Background(), "basketball_nba", []string{"us", "uk"}, []string{"h2h", "spreads"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "evt-1", ev.ID)
	assert.True(t, ev.CommenceTime.Equal(time.Date(2026, 1, 10, 19, 0, 0, 0, time.UTC)))
	require.Len(t, ev.Bookmakers[0].Markets, 2)
	h2h := ev.Bookmakers[0].Markets[0]
	assert.Equal(t, "-150", h2h.Outcomes[0].Price.Decimal.String())
	assert.False(t, h2h.Outcomes[0].Point.Valid)
	spread := ev.Bookmakers[0].Markets[1]
	assert.Equal(t, "-3.5", spread.Outcomes[0].Point.Decimal.String())

	assert.Equal(t, 480, c.RequestsRemaining())
	assert.Equal(t, 20, c.RequestsUsed())
}

func TestFetch_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   ErrorKind
		msg    string
	}{
		{http.StatusUnauthorized, `{"message":"bad key"}`, KindUnauthorized, "invalid api key: bad key"},
		{http.StatusNotFound, `{"message":"unknown sport"}`, KindNotFound, "sport not found: unknown sport"},
		{http.StatusTooManyRequests, `quota`, KindRateLimited, "rate limit exceeded: quota"},
		{http.StatusInternalServerError, `boom`, KindGeneric, "api returned error: 500 - boom"},
	}
	for _, c := range cases {
		t.Run(string(c.kind), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(c.status)
				_, _ = w.Write([]byte(c.body))
			}))
			defer srv.Close()

			cl, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
			require.NoError(t, err)
			_, err = cl.FetchSports(context.Background())

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, c.kind, pe.Kind)
			assert.Equal(t, c.msg, pe.Error())
			assert.Equal(t, c.kind == KindRateLimited, IsRateLimited(err))
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cl, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	_, err = cl.FetchSports(context.Background())

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindTimeout, pe.Kind)
}
