package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

func seedGames(t *testing.T, st *store.Memory) (nfl, nba store.Game) {
	t.Helper()
	ctx := context.Background()
	kickoff := time.Date(2026, 1, 11, 18, 0, 0, 0, time.UTC)
	require.NoError(t, st.InTx(ctx, func(tx store.Tx) error {
		teams := []*store.Team{
			{Name: "Eagles", City: "Philadelphia", Sport: "americanfootball_nfl"},
			{Name: "Cowboys", City: "Dallas", Sport: "americanfootball_nfl"},
			{Name: "Lakers", City: "Los Angeles", Sport: "basketball_nba"},
			{Name: "Celtics", City: "Boston", Sport: "basketball_nba"},
		}
		for _, tm := range teams {
			tm.DataSource = store.DataSourceManual
			if err := tx.InsertTeam(ctx, tm); err != nil {
				return err
			}
		}
		nfl = store.Game{HomeTeamID: teams[0].ID, AwayTeamID: teams[1].ID, GameTime: kickoff, Sport: "americanfootball_nfl", Status: store.GameScheduled}
		nba = store.Game{HomeTeamID: teams[2].ID, AwayTeamID: teams[3].ID, GameTime: kickoff.Add(time.Hour), Sport: "basketball_nba", Status: store.GameScheduled}
		if err := tx.InsertGame(ctx, &nfl); err != nil {
			return err
		}
		if err := tx.InsertGame(ctx, &nba); err != nil {
			return err
		}
		return tx.UpsertLine(ctx, &store.BettingLine{GameID: nfl.ID, LineType: store.LineMoneyline})
	}))
	return nfl, nba
}

func TestListGames_FiltersBySportAndResolvesTeams(t *testing.T) {
	st := store.NewMemory()
	nfl, _ := seedGames(t, st)
	r := NewReadRepo(st)

	all, err := r.ListGames(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := r.ListGames(context.Background(), "americanfootball_nfl", 10)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, nfl.ID, only[0].Game.ID)
	assert.Equal(t, "Philadelphia Eagles", only[0].Home.FullName())
	assert.Equal(t, "Dallas Cowboys", only[0].Away.FullName())
}

func TestGameAndLines_NotFound(t *testing.T) {
	st := store.NewMemory()
	nfl, _ := seedGames(t, st)
	r := NewReadRepo(st)
	ctx := context.Background()

	_, err := r.Game(ctx, "missing")
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = r.Lines(ctx, "missing")
	assert.ErrorIs(t, err, ErrGameNotFound)

	lines, err := r.Lines(ctx, nfl.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, store.LineMoneyline, lines[0].LineType)
}

func TestRecordResult(t *testing.T) {
	st := store.NewMemory()
	nfl, _ := seedGames(t, st)
	r := NewReadRepo(st)
	ctx := context.Background()
	home, away := 24, 17

	v, err := r.RecordResult(ctx, nfl.ID, store.GameCompleted, &home, &away)
	require.NoError(t, err)
	assert.True(t, v.Game.Final())
	assert.Equal(t, "Eagles", v.Home.Name)

	g, err := r.Game(ctx, nfl.ID)
	require.NoError(t, err)
	require.NotNil(t, g.Game.HomeScore)
	assert.Equal(t, 24, *g.Game.HomeScore)

	_, err = r.RecordResult(ctx, "missing", store.GameCompleted, &home, &away)
	assert.ErrorIs(t, err, ErrGameNotFound)
}
