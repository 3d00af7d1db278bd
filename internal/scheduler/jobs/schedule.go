package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cadences define o intervalo de cada job; zero desliga o job
type Cadences struct {
	Live         time.Duration
	Upcoming     time.Duration
	Distant      time.Duration
	Settle       time.Duration
	StartupDelay time.Duration // sync_all inicial; negativo desliga
}

func DefaultCadences() Cadences {
	return Cadences{
		Live:         2 * time.Minute,
		Upcoming:     15 * time.Minute,
		Distant:      6 * time.Hour,
		Settle:       5 * time.Minute,
		StartupDelay: 5 * time.Second,
	}
}

// Schedule roda cada job no seu ticker até ctx ser cancelado
func (r *Runner) Schedule(ctx context.Context, c Cadences) {
	var wg sync.WaitGroup
	every := map[string]time.Duration{
		SyncLive:     c.Live,
		SyncUpcoming: c.Upcoming,
		SyncDistant:  c.Distant,
		SettleBets:   c.Settle,
	}
	for name, d := range every {
		if d <= 0 {
			continue
		}
		wg.Add(1)
		go func(name string, d time.Duration) {
			defer wg.Done()
			r.loop(ctx, name, d)
		}(name, d)
	}

	if c.StartupDelay >= 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.NewTimer(c.StartupDelay)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
				r.runLogged(ctx, SyncAll)
			}
		}()
	}

	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, d time.Duration) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	r.log.Info("job scheduled", zap.String("job", name), zap.Duration("every", d))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runLogged(ctx, name)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context, name string) {
	if _, err := r.Run(ctx, name); err != nil {
		r.log.Error("scheduled job error", zap.String("job", name), zap.Error(err))
	}
}
