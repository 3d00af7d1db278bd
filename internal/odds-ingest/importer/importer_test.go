package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/provider"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

type recordingNotifier struct {
	updates []events.OddsUpdate
	err     error
}

func (n *recordingNotifier) NotifyLine(_ context.Context, u events.OddsUpdate) error {
	n.updates = append(n.updates, u)
	return n.err
}

var fixedNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func px(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func h2h(home, away string) provider.Market {
	return provider.Market{Key: provider.MarketH2H, Outcomes: []provider.Outcome{
		{Name: "Los Angeles Lakers", Price: px(home)},
		{Name: "Boston Celtics", Price: px(away)},
	}}
}

func event(id string, bookmakers ...provider.Bookmaker) provider.Event {
	return provider.Event{
		ID:           id,
		SportKey:     "basketball_nba",
		SportTitle:   "NBA",
		CommenceTime: time.Date(2026, 1, 10, 19, 0, 0, 0, time.UTC),
		HomeTeam:     "Los Angeles Lakers",
		AwayTeam:     "Boston Celtics",
		Bookmakers:   bookmakers,
	}
}

func newImporter(st *store.Memory, n LineNotifier) *Importer {
	im := New(st, n, nil)
	im.SetClock(func() time.Time { return fixedNow })
	return im
}

func lines(t *testing.T, st *store.Memory, gameID string) map[store.LineType]store.BettingLine {
	t.Helper()
	out := map[store.LineType]store.BettingLine{}
	require.NoError(t, st.InTx(context.Background(), func(tx store.Tx) error {
		ls, err := tx.LinesByGame(context.Background(), gameID)
		for _, l := range ls {
			out[l.LineType] = l
		}
		return err
	}))
	return out
}

func TestImportEvent_AveragesAcrossBookmakers(t *testing.T) {
	st := store.NewMemory()
	n := &recordingNotifier{}
	im := newImporter(st, n)

	ev := event("evt-1",
		provider.Bookmaker{Key: "a", Markets: []provider.Market{h2h("-150", "130"), {
			Key: provider.MarketTotals, Outcomes: []provider.Outcome{
				{Name: "Over", Price: px("-110"), Point: decimal.NewNullDecimal(dec("220.5"))},
				{Name: "Under", Price: px("-110"), Point: decimal.NewNullDecimal(dec("220.5"))},
			},
		}}},
		provider.Bookmaker{Key: "b", Markets: []provider.Market{h2h("-160", "140")}},
		provider.Bookmaker{Key: "c", Markets: []provider.Market{h2h("-155", "135"), {Key: "player_props"}}},
	)

	out, err := im.ImportEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, "evt-1", out.Game.ExternalID)
	assert.Equal(t, store.GameScheduled, out.Game.Status)
	require.NotNil(t, out.Game.LastSyncedAt)
	assert.Equal(t, fixedNow, *out.Game.LastSyncedAt)

	got := lines(t, st, out.Game.ID)
	require.Len(t, got, 2)
	ml := got[store.LineMoneyline]
	assert.Equal(t, "-155.00", ml.HomeOdds.Decimal.StringFixed(2))
	assert.Equal(t, "135.00", ml.AwayOdds.Decimal.StringFixed(2))
	ou := got[store.LineOverUnder]
	assert.Equal(t, "220.5", ou.Total.Decimal.String())
	assert.False(t, ou.HomeOdds.Valid)

	require.Len(t, n.updates, 2)
	for _, u := range n.updates {
		assert.Equal(t, out.Game.ID, u.GameID)
		assert.Equal(t, "evt-1", u.ExternalID)
		assert.Equal(t, store.DataSourceOddsAPI, u.Source)
	}
}

func TestImportEvent_MatchesTeamsByNameNotPosition(t *testing.T) {
	st := store.NewMemory()
	im := newImporter(st, nil)

	// outcomes na ordem inversa
	ev := event("evt-1", provider.Bookmaker{Key: "a", Markets: []provider.Market{{
		Key: provider.MarketSpreads, Outcomes: []provider.Outcome{
			{Name: "Boston Celtics", Price: px("-105"), Point: decimal.NewNullDecimal(dec("4.5"))},
			{Name: "Los Angeles Lakers", Price: px("-115"), Point: decimal.NewNullDecimal(dec("-4.5"))},
		},
	}}})

	out, err := im.ImportEvent(context.Background(), ev)
	require.NoError(t, err)
	sp := lines(t, st, out.Game.ID)[store.LineSpread]
	assert.Equal(t, "-4.5", sp.Spread.Decimal.String())
	assert.Equal(t, "-115", sp.HomeOdds.Decimal.String())
	assert.Equal(t, "-105", sp.AwayOdds.Decimal.String())
}

func TestImportEvent_ReimportUpdatesSameGameAndLine(t *testing.T) {
	st := store.NewMemory()
	im := newImporter(st, nil)
	ctx := context.Background()

	first, err := im.ImportEvent(ctx, event("evt-1", provider.Bookmaker{Key: "a", Markets: []provider.Market{h2h("-150", "130")}}))
	require.NoError(t, err)

	moved := event("evt-1", provider.Bookmaker{Key: "a", Markets: []provider.Market{h2h("-170", "150")}})
	moved.CommenceTime = moved.CommenceTime.Add(time.Hour)
	second, err := im.ImportEvent(ctx, moved)
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.Game.ID, second.Game.ID)
	assert.Equal(t, first.Game.HomeTeamID, second.Game.HomeTeamID)
	assert.True(t, second.Game.GameTime.Equal(moved.CommenceTime))
	require.Len(t, second.Lines, 1)
	assert.Equal(t, first.Lines[0].ID, second.Lines[0].ID)
	assert.Equal(t, "-170", lines(t, st, first.Game.ID)[store.LineMoneyline].HomeOdds.Decimal.String())
}

func TestImportEvent_KeepsManualStatus(t *testing.T) {
	st := store.NewMemory()
	im := newImporter(st, nil)
	ctx := context.Background()

	out, err := im.ImportEvent(ctx, event("evt-1"))
	require.NoError(t, err)
	require.NoError(t, st.InTx(ctx, func(tx store.Tx) error {
		g := out.Game
		g.Status = store.GameInProgress
		return tx.UpdateGame(ctx, &g)
	}))

	again, err := im.ImportEvent(ctx, event("evt-1"))
	require.NoError(t, err)
	assert.Equal(t, store.GameInProgress, again.Game.Status)
	assert.Empty(t, again.Lines)
}

func TestImportEvent_Invalid(t *testing.T) {
	im := newImporter(store.NewMemory(), nil)
	ev := event("evt-1")
	ev.HomeTeam = ""
	_, err := im.ImportEvent(context.Background(), ev)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestImportEvent_NotifierFailureDoesNotFail(t *testing.T) {
	st := store.NewMemory()
	n := &recordingNotifier{err: errors.New("broker down")}
	im := newImporter(st, n)

	out, err := im.ImportEvent(context.Background(), event("evt-1", provider.Bookmaker{Key: "a", Markets: []provider.Market{h2h("-150", "130")}}))
	require.NoError(t, err)
	assert.Len(t, out.Lines, 1)
	assert.Len(t, n.updates, 1)
}

func TestImportEvents_IsolatesFailures(t *testing.T) {
	st := store.NewMemory()
	im := newImporter(st, nil)
	ctx := context.Background()

	_, err := im.ImportEvent(ctx, event("evt-1"))
	require.NoError(t, err)

	bad := event("evt-bad")
	bad.CommenceTime = time.Time{}
	stats := im.ImportEvents(ctx, []provider.Event{event("evt-1"), bad, event("evt-2")})

	assert.Equal(t, 1, stats.GamesCreated)
	assert.Equal(t, 1, stats.GamesUpdated)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "evt-bad", stats.Errors[0].EventID)
}

func TestImportEvent_SkipsMissingPrices(t *testing.T) {
	st := store.NewMemory()
	im := newImporter(st, nil)

	ev := event("evt-1",
		provider.Bookmaker{Key: "a", Markets: []provider.Market{h2h("-150", "130")}},
		provider.Bookmaker{Key: "b", Markets: []provider.Market{{
			Key: provider.MarketH2H, Outcomes: []provider.Outcome{
				{Name: "Los Angeles Lakers"},
				{Name: "Boston Celtics", Price: px("140")},
			},
		}}},
	)

	out, err := im.ImportEvent(context.Background(), ev)
	require.NoError(t, err)
	ml := lines(t, st, out.Game.ID)[store.LineMoneyline]
	assert.Equal(t, "-150.00", ml.HomeOdds.Decimal.StringFixed(2))
	assert.Equal(t, "135.00", ml.AwayOdds.Decimal.StringFixed(2))
}

func TestImportEvent_SkipsOneSidedMarkets(t *testing.T) {
	st := store.NewMemory()
	im := newImporter(st, nil)

	ev := event("evt-1",
		provider.Bookmaker{Key: "a", Markets: []provider.Market{h2h("-150", "130")}},
		provider.Bookmaker{Key: "b", Markets: []provider.Market{
			{Key: provider.MarketH2H, Outcomes: []provider.Outcome{{Name: "Los Angeles Lakers", Price: px("-190")}}},
			{Key: provider.MarketTotals, Outcomes: []provider.Outcome{{Name: "Over", Price: px("-110"), Point: decimal.NewNullDecimal(dec("221"))}}},
		}},
	)

	out, err := im.ImportEvent(context.Background(), ev)
	require.NoError(t, err)
	got := lines(t, st, out.Game.ID)
	require.Len(t, got, 1)
	ml := got[store.LineMoneyline]
	assert.Equal(t, "-150.00", ml.HomeOdds.Decimal.StringFixed(2))
	assert.Equal(t, "130.00", ml.AwayOdds.Decimal.StringFixed(2))
}

func TestPickTeams(t *testing.T) {
	home := store.Team{Name: "Lakers", City: "Los Angeles"}
	away := store.Team{Name: "Celtics", City: "Boston"}

	h, a, ok := pickTeams([]provider.Outcome{{Name: "Celtics"}, {Name: "Lakers"}}, home, away)
	require.True(t, ok)
	assert.Equal(t, "Lakers", h.Name)
	assert.Equal(t, "Celtics", a.Name)

	_, _, ok = pickTeams([]provider.Outcome{{Name: "Boston Celtics"}}, home, away)
	assert.False(t, ok)
}
