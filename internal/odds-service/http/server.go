package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/odds-service/cache"
	"github.com/radieske/sports-bankroll-platform/internal/odds-service/dto"
	"github.com/radieske/sports-bankroll-platform/internal/odds-service/repo"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

const DefaultListLimit = 50

type ReadRepo interface {
	ListGames(ctx context.Context, sport string, limit int) ([]repo.GameView, error)
	Game(ctx context.Context, id string) (*repo.GameView, error)
	Lines(ctx context.Context, gameID string) ([]store.BettingLine, error)
	RecordResult(ctx context.Context, gameID string, status store.GameStatus, home, away *int) (*repo.GameView, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	InvalidateGame(ctx context.Context, gameID string) error
}

// API expõe jogos e linhas com cache de leitura no Redis.
// Falhas do cache não derrubam a resposta; só são logadas.
type API struct {
	Log      *zap.Logger
	ReadRepo ReadRepo
	Cache    Cache
	WS       http.HandlerFunc // opcional: /ws
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/v1/games", a.listGames) // ?sport=&limit=
	r.Get("/v1/games/{id}", a.getGame)
	r.Get("/v1/games/{id}/lines", a.getLines)
	r.Post("/v1/games/{id}/result", a.recordResult)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// cached tenta o cache; em miss chama load e grava o resultado
func cached[T any](ctx context.Context, a *API, key string, load func() (T, error)) (T, error) {
	var v T
	if ok, err := a.Cache.Get(ctx, key, &v); err != nil {
		a.Log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if err := a.Cache.Set(ctx, key, v); err != nil {
		a.Log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func (a *API) listGames(w http.ResponseWriter, r *http.Request) {
	sport := r.URL.Query().Get("sport")
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	out, err := cached(r.Context(), a, cache.ListKey(sport, limit), func() ([]dto.GameResponse, error) {
		games, err := a.ReadRepo.ListGames(r.Context(), sport, limit)
		if err != nil {
			return nil, err
		}
		out := make([]dto.GameResponse, 0, len(games))
		for _, g := range games {
			out = append(out, dto.NewGameResponse(g))
		}
		return out, nil
	})
	if err != nil {
		a.fail(w, "list games", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := cached(r.Context(), a, cache.GameKey(id), func() (dto.GameResponse, error) {
		g, err := a.ReadRepo.Game(r.Context(), id)
		if err != nil {
			return dto.GameResponse{}, err
		}
		return dto.NewGameResponse(*g), nil
	})
	if err != nil {
		a.fail(w, "get game", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getLines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := cached(r.Context(), a, cache.LinesKey(id), func() ([]dto.LineResponse, error) {
		lines, err := a.ReadRepo.Lines(r.Context(), id)
		if err != nil {
			return nil, err
		}
		out := make([]dto.LineResponse, 0, len(lines))
		for _, l := range lines {
			out = append(out, dto.NewLineResponse(l))
		}
		return out, nil
	})
	if err != nil {
		a.fail(w, "get lines", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) recordResult(w http.ResponseWriter, r *http.Request) {
	var req dto.ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id := chi.URLParam(r, "id")
	g, err := a.ReadRepo.RecordResult(r.Context(), id, store.GameStatus(req.Status), req.HomeScore, req.AwayScore)
	if err != nil {
		a.fail(w, "record result", err)
		return
	}
	if err := a.Cache.InvalidateGame(r.Context(), id); err != nil {
		a.Log.Warn("cache invalidate failed", zap.String("gameId", id), zap.Error(err))
	}
	a.Log.Info("game result recorded", zap.String("gameId", id), zap.String("status", req.Status))
	writeJSON(w, http.StatusOK, dto.NewGameResponse(*g))
}

func (a *API) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repo.ErrGameNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	a.Log.Error(op+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
