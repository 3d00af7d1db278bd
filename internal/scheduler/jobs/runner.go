package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/bet-service/betting"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/syncer"
	"github.com/radieske/sports-bankroll-platform/internal/scheduler/windows"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

// Nomes dos jobs expostos ao agendador externo
const (
	SyncLive     = "sync_live"
	SyncUpcoming = "sync_upcoming"
	SyncDistant  = "sync_distant"
	SyncAll      = "sync_all"
	SettleBets   = "settle_bets"
)

var Names = []string{SyncLive, SyncUpcoming, SyncDistant, SyncAll, SettleBets}

var (
	ErrUnknownJob    = errors.New("unknown job")
	ErrNotConfigured = errors.New("job not configured in this process")
)

type Syncer interface {
	SyncAll(ctx context.Context, sports []string) syncer.Summary
}

type Settler interface {
	SettleBets(ctx context.Context) (betting.SettlementReport, error)
}

// Runner executa os jobs e registra cada execução em job_executions
type Runner struct {
	store   store.Store
	sync    Syncer
	settler Settler
	sports  []string
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	running map[string]bool

	// OnRun é chamado ao fim de cada execução (métricas)
	OnRun func(job, status string)
}

func NewRunner(st store.Store, s Syncer, settler Settler, sports []string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		store:   st,
		sync:    s,
		settler: settler,
		sports:  sports,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		running: map[string]bool{},
	}
}

func (r *Runner) SetClock(now func() time.Time) { r.now = now }

func windowOf(job string) (windows.Window, bool) {
	switch job {
	case SyncLive:
		return windows.Live, true
	case SyncUpcoming:
		return windows.Upcoming, true
	case SyncDistant:
		return windows.Distant, true
	}
	return windows.None, false
}

// Run executa o job pelo nome. Uma execução do mesmo job em andamento
// faz a nova ser registrada como skipped.
func (r *Runner) Run(ctx context.Context, name string) (store.JobExecution, error) {
	switch name {
	case SyncLive, SyncUpcoming, SyncDistant, SyncAll, SettleBets:
	default:
		return store.JobExecution{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	if (name == SettleBets && r.settler == nil) || (name != SettleBets && r.sync == nil) {
		return store.JobExecution{}, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}

	exec := store.JobExecution{JobName: name, ExecutedAt: r.now()}
	if !r.acquire(name) {
		exec.Status, exec.Details = store.JobSkipped, `{"reason":"already running"}`
		return r.record(ctx, exec)
	}
	defer r.release(name)

	var (
		details any
		status  string
		err     error
	)
	switch name {
	case SyncAll:
		details, status = r.syncSports(ctx, r.sports)
	case SettleBets:
		details, status, err = r.settle(ctx)
	default:
		w, _ := windowOf(name)
		details, status, err = r.syncWindow(ctx, w)
	}
	if err != nil {
		status, details = store.JobFailed, map[string]string{"error": err.Error()}
		r.log.Error("job failed", zap.String("job", name), zap.Error(err))
	}

	exec.Status = status
	if b, mErr := json.Marshal(details); mErr == nil {
		exec.Details = string(b)
	}
	return r.record(ctx, exec)
}

func (r *Runner) acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[name] {
		return false
	}
	r.running[name] = true
	return true
}

func (r *Runner) release(name string) {
	r.mu.Lock()
	delete(r.running, name)
	r.mu.Unlock()
}

// record grava a execução mesmo com ctx cancelado
func (r *Runner) record(ctx context.Context, exec store.JobExecution) (store.JobExecution, error) {
	ctx = context.WithoutCancel(ctx)
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertJobExecution(ctx, &exec)
	})
	if err != nil {
		return exec, fmt.Errorf("record job execution: %w", err)
	}
	if r.OnRun != nil {
		r.OnRun(exec.JobName, exec.Status)
	}
	r.log.Info("job finished", zap.String("job", exec.JobName), zap.String("status", exec.Status))
	return exec, nil
}

func (r *Runner) syncSports(ctx context.Context, sports []string) (syncer.Summary, string) {
	sum := r.sync.SyncAll(ctx, sports)
	if sum.SportsSynced == 0 && len(sum.Errors) > 0 {
		return sum, store.JobFailed
	}
	return sum, store.JobSuccess
}

// windowGames devolve os jogos do provedor dentro da janela
func (r *Runner) windowGames(ctx context.Context, w windows.Window, now time.Time) ([]store.Game, error) {
	from, _ := windows.Bounds(w, now)
	var games []store.Game
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		all, err := tx.ListProviderGames(ctx, from)
		if err != nil {
			return err
		}
		for _, g := range all {
			if windows.Classify(g.GameTime, now) == w {
				games = append(games, g)
			}
		}
		return nil
	})
	return games, err
}

// SportsInWindow lista os esportes distintos com jogos elegíveis, na ordem dos jogos
func SportsInWindow(games []store.Game) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range games {
		if !seen[g.Sport] {
			seen[g.Sport] = true
			out = append(out, g.Sport)
		}
	}
	return out
}

func (r *Runner) syncWindow(ctx context.Context, w windows.Window) (any, string, error) {
	games, err := r.windowGames(ctx, w, r.now())
	if err != nil {
		return nil, "", fmt.Errorf("load %s games: %w", w, err)
	}
	if len(games) == 0 {
		r.log.Info("no games to sync", zap.String("window", string(w)))
		return map[string]string{"reason": fmt.Sprintf("no %s games to sync", w)}, store.JobSkipped, nil
	}
	sports := SportsInWindow(games)
	r.log.Info("syncing window", zap.String("window", string(w)), zap.Int("games", len(games)), zap.Strings("sports", sports))
	sum, status := r.syncSports(ctx, sports)
	return sum, status, nil
}

func (r *Runner) settle(ctx context.Context) (any, string, error) {
	rep, err := r.settler.SettleBets(ctx)
	if err != nil {
		return nil, "", err
	}
	return rep, store.JobSuccess, nil
}

// LastSynced é o maior last_synced_at entre os jogos elegíveis da janela
func (r *Runner) LastSynced(ctx context.Context, w windows.Window) (*time.Time, error) {
	games, err := r.windowGames(ctx, w, r.now())
	if err != nil {
		return nil, err
	}
	var last *time.Time
	for _, g := range games {
		if g.LastSyncedAt != nil && (last == nil || g.LastSyncedAt.After(*last)) {
			t := *g.LastSyncedAt
			last = &t
		}
	}
	return last, nil
}

func (r *Runner) LastExecution(ctx context.Context, name string) (*store.JobExecution, error) {
	var out *store.JobExecution
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.LastJobExecution(ctx, name)
		return err
	})
	return out, err
}
