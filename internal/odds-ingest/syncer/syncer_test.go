package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/importer"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/provider"
)

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchOdds(ctx context.Context, sport string, regions, markets []string) ([]provider.Event, error) {
	args := m.Called(ctx, sport, regions, markets)
	evs, _ := args.Get(0).([]provider.Event)
	return evs, args.Error(1)
}

type countingImporter struct{ calls int }

func (c *countingImporter) ImportEvents(_ context.Context, evs []provider.Event) importer.Stats {
	c.calls++
	return importer.Stats{GamesCreated: len(evs)}
}

var rateLimited = &provider.Error{Kind: provider.KindRateLimited, Status: 429, Message: "slow down"}

func newSync(f Fetcher, im EventImporter, cfg Config) (*SportsSync, *[]time.Duration) {
	s := New(f, im, cfg, nil)
	var waits []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func TestSyncSport_RetriesRateLimitWithBackoff(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchOdds", mock.Anything, "basketball_nba", DefaultRegions, DefaultMarkets).Return(nil, rateLimited).Twice()
	f.On("FetchOdds", mock.Anything, "basketball_nba", DefaultRegions, DefaultMarkets).Return([]provider.Event{{ID: "e1"}}, nil).Once()
	im := &countingImporter{}
	s, waits := newSync(f, im, Config{MaxRetries: 3})

	res := s.SyncSport(context.Background(), "basketball_nba")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Retries)
	assert.Equal(t, 1, res.GamesCreated)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
	f.AssertExpectations(t)
}

func TestSyncSport_GivesUpAfterMaxRetries(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchOdds", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, rateLimited)
	im := &countingImporter{}
	s, waits := newSync(f, im, Config{MaxRetries: 3})

	res := s.SyncSport(context.Background(), "basketball_nba")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "rate limit exceeded")
	assert.Len(t, *waits, 3)
	f.AssertNumberOfCalls(t, "FetchOdds", 4)
	assert.Zero(t, im.calls)
}

func TestSyncSport_OtherErrorsAreNotRetried(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchOdds", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &provider.Error{Kind: provider.KindUnauthorized, Status: 401, Message: "bad key"})
	s, waits := newSync(f, &countingImporter{}, Config{})

	res := s.SyncSport(context.Background(), "basketball_nba")
	assert.False(t, res.Success)
	assert.Equal(t, "invalid api key: bad key", res.Error)
	assert.Empty(t, *waits)
	f.AssertNumberOfCalls(t, "FetchOdds", 1)
}

func TestSyncAll_ContinuesPastFailuresWithDelay(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchOdds", mock.Anything, "a", mock.Anything, mock.Anything).Return([]provider.Event{{ID: "1"}, {ID: "2"}}, nil)
	f.On("FetchOdds", mock.Anything, "b", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	f.On("FetchOdds", mock.Anything, "c", mock.Anything, mock.Anything).Return([]provider.Event{{ID: "3"}}, nil)
	s, waits := newSync(f, &countingImporter{}, Config{RequestDelay: 1500 * time.Millisecond})

	sum := s.SyncAll(context.Background(), []string{"a", "b", "c"})
	assert.Equal(t, 2, sum.SportsSynced)
	assert.Equal(t, 3, sum.TotalGamesCreated)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, SportError{Sport: "b", Error: "boom"}, sum.Errors[0])
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, *waits)
}

func TestSyncAll_StopsOnCancel(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchOdds", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]provider.Event{}, nil)
	s := New(f, &countingImporter{}, Config{RequestDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := s.SyncAll(ctx, []string{"a", "b"})
	assert.Equal(t, 1, sum.SportsSynced)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, "b", sum.Errors[0].Sport)
}
