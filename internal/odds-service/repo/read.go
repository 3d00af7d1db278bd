package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

var ErrGameNotFound = errors.New("game not found")

// GameView é o jogo com os dois times resolvidos
type GameView struct {
	Game store.Game
	Home store.Team
	Away store.Team
}

// ReadRepo atende a API de leitura de jogos e linhas
type ReadRepo struct {
	store store.Store
}

func NewReadRepo(st store.Store) *ReadRepo { return &ReadRepo{store: st} }

func (r *ReadRepo) ListGames(ctx context.Context, sport string, limit int) ([]GameView, error) {
	var out []GameView
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		games, err := tx.ListGames(ctx, store.GameFilter{Sport: sport, Limit: limit})
		if err != nil {
			return err
		}
		teams := map[string]store.Team{}
		out = make([]GameView, 0, len(games))
		for _, g := range games {
			v, err := view(ctx, tx, g, teams)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (r *ReadRepo) Game(ctx context.Context, id string) (*GameView, error) {
	var out *GameView
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		g, err := tx.GameByID(ctx, id)
		if err != nil {
			return err
		}
		v, err := view(ctx, tx, *g, map[string]store.Team{})
		out = &v
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	return out, err
}

func (r *ReadRepo) Lines(ctx context.Context, gameID string) ([]store.BettingLine, error) {
	var out []store.BettingLine
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GameByID(ctx, gameID); err != nil {
			return err
		}
		var err error
		out, err = tx.LinesByGame(ctx, gameID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	return out, err
}

// RecordResult grava status e placar informados manualmente; é o que
// torna um jogo elegível para a liquidação.
func (r *ReadRepo) RecordResult(ctx context.Context, gameID string, status store.GameStatus, home, away *int) (*GameView, error) {
	var out *GameView
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		g, err := tx.GameByID(ctx, gameID)
		if err != nil {
			return err
		}
		g.Status = status
		g.HomeScore, g.AwayScore = home, away
		if err := tx.UpdateGame(ctx, g); err != nil {
			return fmt.Errorf("update game: %w", err)
		}
		v, err := view(ctx, tx, *g, map[string]store.Team{})
		out = &v
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	return out, err
}

func view(ctx context.Context, tx store.Tx, g store.Game, teams map[string]store.Team) (GameView, error) {
	v := GameView{Game: g}
	for _, p := range []struct {
		id  string
		dst *store.Team
	}{{g.HomeTeamID, &v.Home}, {g.AwayTeamID, &v.Away}} {
		if t, ok := teams[p.id]; ok {
			*p.dst = t
			continue
		}
		t, err := tx.TeamByID(ctx, p.id)
		if err != nil {
			return v, fmt.Errorf("team %s: %w", p.id, err)
		}
		teams[p.id] = *t
		*p.dst = *t
	}
	return v, nil
}
