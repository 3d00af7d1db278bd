package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/provider"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/resolver"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

var ErrInvalidEvent = errors.New("invalid event")

// LineNotifier recebe cada linha gravada, depois do commit
type LineNotifier interface {
	NotifyLine(ctx context.Context, u events.OddsUpdate) error
}

type Outcome struct {
	Game    store.Game
	Created bool
	Lines   []store.BettingLine
}

type EventError struct {
	EventID string `json:"event_id"`
	Error   string `json:"error"`
}

type Stats struct {
	GamesCreated int          `json:"games_created"`
	GamesUpdated int          `json:"games_updated"`
	Errors       []EventError `json:"errors,omitempty"`
}

// Importer grava jogos e linhas a partir dos eventos do provedor
type Importer struct {
	store    store.Store
	resolver *resolver.Resolver
	notifier LineNotifier
	log      *zap.Logger
	now      func() time.Time
}

func New(st store.Store, notifier LineNotifier, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		store:    st,
		resolver: resolver.New(),
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (im *Importer) SetClock(now func() time.Time) { im.now = now }

func validate(ev provider.Event) error {
	switch {
	case ev.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case ev.SportKey == "":
		return fmt.Errorf("%w: missing sport_key", ErrInvalidEvent)
	case ev.HomeTeam == "" || ev.AwayTeam == "":
		return fmt.Errorf("%w: missing team names", ErrInvalidEvent)
	case ev.CommenceTime.IsZero():
		return fmt.Errorf("%w: missing commence_time", ErrInvalidEvent)
	}
	return nil
}

// ImportEvent grava um evento em uma única transação
func (im *Importer) ImportEvent(ctx context.Context, ev provider.Event) (Outcome, error) {
	if err := validate(ev); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	err := im.store.InTx(ctx, func(tx store.Tx) error {
		o, err := im.importEvent(ctx, tx, ev)
		out = o
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	im.notify(ctx, ev, out)
	return out, nil
}

func (im *Importer) importEvent(ctx context.Context, tx store.Tx, ev provider.Event) (Outcome, error) {
	game, err := tx.GameByExternalID(ctx, ev.ID)
	created := errors.Is(err, store.ErrNotFound)
	switch {
	case created:
		game = &store.Game{
			ExternalID: ev.ID,
			DataSource: store.DataSourceOddsAPI,
			Status:     store.GameScheduled,
		}
	case err != nil:
		return Outcome{}, fmt.Errorf("game by external id: %w", err)
	}

	home, err := im.resolver.FindOrCreateTeam(ctx, tx, ev.HomeTeam, ev.SportKey, "")
	if err != nil {
		return Outcome{}, err
	}
	away, err := im.resolver.FindOrCreateTeam(ctx, tx, ev.AwayTeam, ev.SportKey, "")
	if err != nil {
		return Outcome{}, err
	}

	now := im.now()
	game.HomeTeamID, game.AwayTeamID = home.ID, away.ID
	game.GameTime = ev.CommenceTime.UTC()
	game.Sport = ev.SportKey
	game.LastSyncedAt = &now
	if created {
		err = tx.InsertGame(ctx, game)
	} else {
		err = tx.UpdateGame(ctx, game)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("save game: %w", err)
	}

	agg := aggregateMarkets(ev.Bookmakers, *home, *away)
	types := make([]store.LineType, 0, len(agg))
	for lt := range agg {
		types = append(types, lt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	lines := make([]store.BettingLine, 0, len(types))
	for _, lt := range types {
		l := agg[lt].line(game.ID, lt)
		if err := tx.UpsertLine(ctx, &l); err != nil {
			return Outcome{}, fmt.Errorf("upsert %s line: %w", lt, err)
		}
		lines = append(lines, l)
	}
	return Outcome{Game: *game, Created: created, Lines: lines}, nil
}

// notify: falha de publicação não desfaz a importação
func (im *Importer) notify(ctx context.Context, ev provider.Event, out Outcome) {
	if im.notifier == nil {
		return
	}
	for _, l := range out.Lines {
		u := events.OddsUpdate{
			GameID:     out.Game.ID,
			ExternalID: ev.ID,
			Sport:      out.Game.Sport,
			LineID:     l.ID,
			LineType:   string(l.LineType),
			HomeOdds:   l.HomeOdds,
			AwayOdds:   l.AwayOdds,
			OverOdds:   l.OverOdds,
			UnderOdds:  l.UnderOdds,
			Spread:     l.Spread,
			Total:      l.Total,
			UpdatedAt:  l.UpdatedAt,
			Source:     store.DataSourceOddsAPI,
		}
		if err := im.notifier.NotifyLine(ctx, u); err != nil {
			im.log.Warn("notify line failed", zap.String("gameId", out.Game.ID), zap.String("lineType", string(l.LineType)), zap.Error(err))
		}
	}
}

// ImportEvents importa cada evento de forma independente; erros ficam na lista
func (im *Importer) ImportEvents(ctx context.Context, evs []provider.Event) Stats {
	var st Stats
	for _, ev := range evs {
		out, err := im.ImportEvent(ctx, ev)
		if err != nil {
			im.log.Warn("import event failed", zap.String("eventId", ev.ID), zap.Error(err))
			st.Errors = append(st.Errors, EventError{EventID: ev.ID, Error: err.Error()})
			continue
		}
		if out.Created {
			st.GamesCreated++
		} else {
			st.GamesUpdated++
		}
	}
	return st
}
