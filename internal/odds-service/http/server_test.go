package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/odds-service/cache"
	"github.com/radieske/sports-bankroll-platform/internal/odds-service/repo"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

// memCache guarda o JSON como o Redis guardaria
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	dropped []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) InvalidateGame(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, cache.GameKey(gameID))
	delete(c.data, cache.LinesKey(gameID))
	c.dropped = append(c.dropped, gameID)
	return nil
}

type fixture struct {
	st    *store.Memory
	cache *memCache
	h     http.Handler
	game  store.Game
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	var game store.Game
	require.NoError(t, st.InTx(ctx, func(tx store.Tx) error {
		home := &store.Team{Name: "Eagles", City: "Philadelphia", Abbreviation: "PHI", Sport: "americanfootball_nfl", DataSource: store.DataSourceManual}
		away := &store.Team{Name: "Cowboys", City: "Dallas", Abbreviation: "DAL", Sport: "americanfootball_nfl", DataSource: store.DataSourceManual}
		if err := tx.InsertTeam(ctx, home); err != nil {
			return err
		}
		if err := tx.InsertTeam(ctx, away); err != nil {
			return err
		}
		game = store.Game{HomeTeamID: home.ID, AwayTeamID: away.ID, Sport: "americanfootball_nfl",
			GameTime: time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC), Status: store.GameScheduled, DataSource: store.DataSourceManual}
		if err := tx.InsertGame(ctx, &game); err != nil {
			return err
		}
		return tx.UpsertLine(ctx, &store.BettingLine{GameID: game.ID, LineType: store.LineMoneyline,
			HomeOdds: decimal.NewNullDecimal(decimal.NewFromInt(-150)), AwayOdds: decimal.NewNullDecimal(decimal.NewFromInt(130))})
	}))
	c := newMemCache()
	api := &API{Log: zap.NewNop(), ReadRepo: repo.NewReadRepo(st), Cache: c}
	return &fixture{st: st, cache: c, h: api.Router(), game: game}
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestListGames_ReadThroughCache(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h, http.MethodGet, "/v1/games?sport=americanfootball_nfl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Philadelphia Eagles", body[0]["home_team"].(map[string]any)["full_name"])

	_, cachedOK := f.cache.data[cache.ListKey("americanfootball_nfl", DefaultListLimit)]
	assert.True(t, cachedOK)

	rec = serve(f.h, http.MethodGet, "/v1/games?sport=basketball_nba", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(f.h, http.MethodGet, "/v1/games?limit=x", "").Code)
}

func TestGetGameAndLines(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h, http.MethodGet, "/v1/games/"+f.game.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"scheduled"`)

	rec = serve(f.h, http.MethodGet, "/v1/games/"+f.game.ID+"/lines", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lines []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "moneyline", lines[0]["line_type"])
	assert.Equal(t, "-150", lines[0]["home_odds"])
	assert.Nil(t, lines[0]["spread"])

	assert.Equal(t, http.StatusNotFound, serve(f.h, http.MethodGet, "/v1/games/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(f.h, http.MethodGet, "/v1/games/missing/lines", "").Code)
}

func TestGetGame_CacheErrorFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	f.cache.getErr = errors.New("redis down")

	rec := serve(f.h, http.MethodGet, "/v1/games/"+f.game.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordResult(t *testing.T) {
	f := newFixture(t)
	serve(f.h, http.MethodGet, "/v1/games/"+f.game.ID, "")

	rec := serve(f.h, http.MethodPost, "/v1/games/"+f.game.ID+"/result", `{"status":"completed","home_score":24,"away_score":20}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"home_score":24`)
	assert.Equal(t, []string{f.game.ID}, f.cache.dropped)

	rec = serve(f.h, http.MethodGet, "/v1/games/"+f.game.ID, "")
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)

	require.NoError(t, f.st.InTx(context.Background(), func(tx store.Tx) error {
		g, err := tx.GameByID(context.Background(), f.game.ID)
		require.NoError(t, err)
		assert.True(t, g.Final())
		return nil
	}))
}

func TestRecordResult_Validation(t *testing.T) {
	f := newFixture(t)
	path := "/v1/games/" + f.game.ID + "/result"

	assert.Equal(t, http.StatusBadRequest, serve(f.h, http.MethodPost, path, `{"status":"completed","home_score":24}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(f.h, http.MethodPost, path, `{"status":"finished"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(f.h, http.MethodPost, path, `{"status":"completed","home_score":-1,"away_score":3}`).Code)
	assert.Equal(t, http.StatusOK, serve(f.h, http.MethodPost, path, `{"status":"in_progress"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(f.h, http.MethodPost, "/v1/games/nope/result", `{"status":"postponed"}`).Code)
}
