package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/importer"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/provider"
)

var (
	DefaultSports  = []string{"basketball_nba", "basketball_ncaab", "americanfootball_nfl", "americanfootball_ncaaf"}
	DefaultRegions = []string{"us", "uk", "eu"}
	DefaultMarkets = []string{provider.MarketH2H, provider.MarketSpreads, provider.MarketTotals}
)

type Fetcher interface {
	FetchOdds(ctx context.Context, sport string, regions, markets []string) ([]provider.Event, error)
}

type EventImporter interface {
	ImportEvents(ctx context.Context, evs []provider.Event) importer.Stats
}

type Config struct {
	Regions      []string
	Markets      []string
	RequestDelay time.Duration // pausa obrigatória entre chamadas ao provedor
	RetryBase    time.Duration // primeira espera após rate limit; dobra a cada tentativa
	MaxRetries   int
}

func (c Config) withDefaults() Config {
	if len(c.Regions) == 0 {
		c.Regions = DefaultRegions
	}
	if len(c.Markets) == 0 {
		c.Markets = DefaultMarkets
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

type SportResult struct {
	Sport        string                `json:"sport"`
	Success      bool                  `json:"success"`
	GamesCreated int                   `json:"games_created"`
	GamesUpdated int                   `json:"games_updated"`
	EventErrors  []importer.EventError `json:"event_errors,omitempty"`
	Retries      int                   `json:"retries"`
	Error        string                `json:"error,omitempty"`
	SyncedAt     time.Time             `json:"synced_at"`
}

type SportError struct {
	Sport string `json:"sport"`
	Error string `json:"error"`
}

type Summary struct {
	SportsSynced      int          `json:"sports_synced"`
	TotalGamesCreated int          `json:"total_games_created"`
	TotalGamesUpdated int          `json:"total_games_updated"`
	Errors            []SportError `json:"errors,omitempty"`
	SyncedAt          time.Time    `json:"synced_at"`
}

// SportsSync busca as odds de cada esporte e entrega ao importador.
// As chamadas são sequenciais; nunca há duas requisições simultâneas ao provedor.
type SportsSync struct {
	fetcher  Fetcher
	importer EventImporter
	cfg      Config
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

func New(f Fetcher, im EventImporter, cfg Config, log *zap.Logger) *SportsSync {
	if log == nil {
		log = zap.NewNop()
	}
	return &SportsSync{
		fetcher:  f,
		importer: im,
		cfg:      cfg.withDefaults(),
		log:      log,
		sleep:    sleepCtx,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SyncSport nunca retorna erro: falhas ficam no resultado
func (s *SportsSync) SyncSport(ctx context.Context, sport string) SportResult {
	res := SportResult{Sport: sport}
	evs, retries, err := s.fetch(ctx, sport)
	res.Retries = retries
	res.SyncedAt = s.now()
	if err != nil {
		res.Error = err.Error()
		s.log.Error("sync sport failed", zap.String("sport", sport), zap.Int("retries", retries), zap.Error(err))
		return res
	}

	stats := s.importer.ImportEvents(ctx, evs)
	res.Success = true
	res.GamesCreated = stats.GamesCreated
	res.GamesUpdated = stats.GamesUpdated
	res.EventErrors = stats.Errors
	s.log.Info("sport synced",
		zap.String("sport", sport),
		zap.Int("events", len(evs)),
		zap.Int("created", stats.GamesCreated),
		zap.Int("updated", stats.GamesUpdated),
		zap.Int("eventErrors", len(stats.Errors)),
	)
	return res
}

// fetch repete só em rate limit, com espera base*2^n
func (s *SportsSync) fetch(ctx context.Context, sport string) ([]provider.Event, int, error) {
	wait := s.cfg.RetryBase
	for attempt := 0; ; attempt++ {
		evs, err := s.fetcher.FetchOdds(ctx, sport, s.cfg.Regions, s.cfg.Markets)
		if err == nil {
			return evs, attempt, nil
		}
		if !provider.IsRateLimited(err) {
			return nil, attempt, err
		}
		if attempt >= s.cfg.MaxRetries {
			return nil, attempt, fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, err)
		}
		s.log.Warn("rate limited, backing off", zap.String("sport", sport), zap.Duration("wait", wait), zap.Int("attempt", attempt+1))
		if err := s.sleep(ctx, wait); err != nil {
			return nil, attempt, err
		}
		wait *= 2
	}
}

// SyncAll sincroniza os esportes em sequência, com a pausa entre requisições
func (s *SportsSync) SyncAll(ctx context.Context, sports []string) Summary {
	if len(sports) == 0 {
		sports = DefaultSports
	}
	var sum Summary
	for i, sport := range sports {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.RequestDelay); err != nil {
				sum.Errors = append(sum.Errors, SportError{Sport: sport, Error: err.Error()})
				break
			}
		}
		r := s.SyncSport(ctx, sport)
		if !r.Success {
			sum.Errors = append(sum.Errors, SportError{Sport: sport, Error: r.Error})
			continue
		}
		sum.SportsSynced++
		sum.TotalGamesCreated += r.GamesCreated
		sum.TotalGamesUpdated += r.GamesUpdated
	}
	sum.SyncedAt = s.now()
	return sum
}
