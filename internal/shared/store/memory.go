package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory implementa Store em memória (testes e dev local).
// Cada InTx trabalha sobre uma cópia do estado; a cópia só substitui o
// estado original quando fn retorna nil.
type Memory struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	accounts map[string]Account
	entries  []LedgerEntry
	bets     map[string]Bet
	games    map[string]Game
	lines    map[string]BettingLine
	teams    map[string]Team
	jobs     []JobExecution
	order    map[string]int64 // ordem de inserção de apostas e times
	seq      int64
}

func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			accounts: map[string]Account{},
			bets:     map[string]Bet{},
			games:    map[string]Game{},
			lines:    map[string]BettingLine{},
			teams:    map[string]Team{},
			order:    map[string]int64{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock troca o relógio usado para created_at/updated_at
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.state.clone()
	if err := fn(&memTx{s: draft, now: m.now}); err != nil {
		return err
	}
	m.state = draft
	return nil
}

func (s *memState) clone() *memState {
	return &memState{
		accounts: maps.Clone(s.accounts),
		entries:  slices.Clone(s.entries),
		bets:     maps.Clone(s.bets),
		games:    maps.Clone(s.games),
		lines:    maps.Clone(s.lines),
		teams:    maps.Clone(s.teams),
		jobs:     slices.Clone(s.jobs),
		order:    maps.Clone(s.order),
		seq:      s.seq,
	}
}

func (s *memState) next() int64 {
	s.seq++
	return s.seq
}

type memTx struct {
	s   *memState
	now func() time.Time
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---------- contas ----------

func (t *memTx) InsertAccount(_ context.Context, a *Account) error {
	for _, cur := range t.s.accounts {
		if cur.UserID == a.UserID {
			return fmt.Errorf("%w: accounts_user_id_key", ErrConflict)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := t.now()
	a.CreatedAt, a.UpdatedAt = now, now
	t.s.accounts[a.ID] = *a
	return nil
}

func (t *memTx) AccountByUser(_ context.Context, userID string, _ bool) (*Account, error) {
	for _, a := range t.s.accounts {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) UpdateAccountBalances(_ context.Context, a *Account) error {
	cur, ok := t.s.accounts[a.ID]
	if !ok {
		return ErrNotFound
	}
	if a.AvailableBalance.IsNegative() || a.LockedBalance.IsNegative() {
		return fmt.Errorf("negative balance for account %s", a.ID)
	}
	a.UpdatedAt = t.now()
	cur.AvailableBalance = a.AvailableBalance
	cur.LockedBalance = a.LockedBalance
	cur.UpdatedAt = a.UpdatedAt
	t.s.accounts[a.ID] = cur
	return nil
}

func (t *memTx) DeleteAccount(_ context.Context, accountID string) error {
	if _, ok := t.s.accounts[accountID]; !ok {
		return ErrNotFound
	}
	delete(t.s.accounts, accountID)
	t.s.entries = slices.DeleteFunc(t.s.entries, func(e LedgerEntry) bool {
		return e.AccountID == accountID
	})
	return nil
}

// ---------- lançamentos ----------

func (t *memTx) InsertEntry(_ context.Context, e *LedgerEntry) error {
	if _, ok := t.s.accounts[e.AccountID]; !ok {
		return fmt.Errorf("%w: account %s", ErrNotFound, e.AccountID)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("entry amount must be positive, got %s", e.Amount)
	}
	e.ID = t.s.next()
	e.CreatedAt = t.now()
	stored := *e
	stored.Metadata = maps.Clone(e.Metadata)
	t.s.entries = append(t.s.entries, stored)
	return nil
}

func (t *memTx) ListEntries(_ context.Context, accountID string, limit int) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for i := len(t.s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if e := t.s.entries[i]; e.AccountID == accountID {
			e.Metadata = maps.Clone(e.Metadata)
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) SummarizeEntries(_ context.Context, accountID string) (map[EntryType]EntrySummary, error) {
	out := make(map[EntryType]EntrySummary)
	for _, e := range t.s.entries {
		if e.AccountID != accountID {
			continue
		}
		s := out[e.Type]
		s.Count++
		s.Total = s.Total.Add(e.Amount)
		out[e.Type] = s
	}
	return out, nil
}

// ---------- apostas ----------

func (t *memTx) InsertBet(_ context.Context, b *Bet) error {
	if _, ok := t.s.games[b.GameID]; !ok {
		return fmt.Errorf("%w: game %s", ErrNotFound, b.GameID)
	}
	if _, ok := t.s.lines[b.BettingLineID]; !ok {
		return fmt.Errorf("%w: betting line %s", ErrNotFound, b.BettingLineID)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, dup := t.s.bets[b.ID]; dup {
		return fmt.Errorf("%w: bets_pkey", ErrConflict)
	}
	now := t.now()
	b.CreatedAt, b.UpdatedAt = now, now
	stored := *b
	stored.SettledAt = copyTime(b.SettledAt)
	t.s.bets[b.ID] = stored
	t.s.order[b.ID] = t.s.next()
	return nil
}

func (t *memTx) BetByID(_ context.Context, id string, _ bool) (*Bet, error) {
	b, ok := t.s.bets[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.SettledAt = copyTime(b.SettledAt)
	return &b, nil
}

func (t *memTx) UpdateBetSettlement(_ context.Context, b *Bet) error {
	cur, ok := t.s.bets[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.UpdatedAt = t.now()
	cur.Status = b.Status
	cur.ActualPayout = b.ActualPayout
	cur.SettledAt = copyTime(b.SettledAt)
	cur.SettlementNotes = b.SettlementNotes
	cur.UpdatedAt = b.UpdatedAt
	t.s.bets[b.ID] = cur
	return nil
}

// sortedBets devolve as apostas filtradas em ordem de inserção
func (t *memTx) sortedBets(keep func(Bet) bool) []Bet {
	var out []Bet
	for _, b := range t.s.bets {
		if keep(b) {
			b.SettledAt = copyTime(b.SettledAt)
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.s.order[out[i].ID] < t.s.order[out[j].ID] })
	return out
}

func (t *memTx) ListBetsByUser(_ context.Context, userID string, limit int) ([]Bet, error) {
	out := t.sortedBets(func(b Bet) bool { return b.UserID == userID })
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) ListPendingBetsByGame(_ context.Context, gameID string) ([]Bet, error) {
	return t.sortedBets(func(b Bet) bool { return b.GameID == gameID && b.Status == BetPending }), nil
}

func (t *memTx) ListSettleableGames(_ context.Context) ([]Game, error) {
	pending := map[string]bool{}
	for _, b := range t.s.bets {
		if b.Status == BetPending {
			pending[b.GameID] = true
		}
	}
	return t.sortedGames(func(g Game) bool { return g.Final() && pending[g.ID] }), nil
}

// ---------- jogos ----------

func cloneGame(g Game) Game {
	g.HomeScore = copyInt(g.HomeScore)
	g.AwayScore = copyInt(g.AwayScore)
	g.LastSyncedAt = copyTime(g.LastSyncedAt)
	return g
}

func (t *memTx) sortedGames(keep func(Game) bool) []Game {
	var out []Game
	for _, g := range t.s.games {
		if keep(g) {
			out = append(out, cloneGame(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameTime.Equal(out[j].GameTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].GameTime.Before(out[j].GameTime)
	})
	return out
}

func (t *memTx) checkGameExternalID(g *Game) error {
	if g.ExternalID == "" {
		return nil
	}
	for _, cur := range t.s.games {
		if cur.ID != g.ID && cur.ExternalID == g.ExternalID {
			return fmt.Errorf("%w: games_external_id_key", ErrConflict)
		}
	}
	return nil
}

func (t *memTx) InsertGame(_ context.Context, g *Game) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := t.checkGameExternalID(g); err != nil {
		return err
	}
	for _, id := range []string{g.HomeTeamID, g.AwayTeamID} {
		if _, ok := t.s.teams[id]; !ok {
			return fmt.Errorf("%w: team %s", ErrNotFound, id)
		}
	}
	now := t.now()
	g.CreatedAt, g.UpdatedAt = now, now
	t.s.games[g.ID] = cloneGame(*g)
	return nil
}

func (t *memTx) UpdateGame(_ context.Context, g *Game) error {
	cur, ok := t.s.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	if err := t.checkGameExternalID(g); err != nil {
		return err
	}
	g.CreatedAt = cur.CreatedAt
	g.UpdatedAt = t.now()
	t.s.games[g.ID] = cloneGame(*g)
	return nil
}

func (t *memTx) GameByID(_ context.Context, id string) (*Game, error) {
	g, ok := t.s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	g = cloneGame(g)
	return &g, nil
}

func (t *memTx) GameByExternalID(_ context.Context, externalID string) (*Game, error) {
	for _, g := range t.s.games {
		if externalID != "" && g.ExternalID == externalID {
			g = cloneGame(g)
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListGames(_ context.Context, f GameFilter) ([]Game, error) {
	out := t.sortedGames(func(g Game) bool { return f.Sport == "" || g.Sport == f.Sport })
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) ListProviderGames(_ context.Context, since time.Time) ([]Game, error) {
	return t.sortedGames(func(g Game) bool {
		return g.ExternalID != "" && !g.GameTime.Before(since)
	}), nil
}

// ---------- linhas ----------

func (t *memTx) LineByID(_ context.Context, id string) (*BettingLine, error) {
	l, ok := t.s.lines[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (t *memTx) LinesByGame(_ context.Context, gameID string) ([]BettingLine, error) {
	var out []BettingLine
	for _, l := range t.s.lines {
		if l.GameID == gameID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineType < out[j].LineType })
	return out, nil
}

func (t *memTx) UpsertLine(_ context.Context, l *BettingLine) error {
	if _, ok := t.s.games[l.GameID]; !ok {
		return fmt.Errorf("%w: game %s", ErrNotFound, l.GameID)
	}
	now := t.now()
	l.UpdatedAt = now
	for id, cur := range t.s.lines {
		if cur.GameID == l.GameID && cur.LineType == l.LineType {
			l.ID, l.CreatedAt = id, cur.CreatedAt
			t.s.lines[id] = *l
			return nil
		}
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = now
	t.s.lines[l.ID] = *l
	return nil
}

// ---------- times ----------

func (t *memTx) TeamByID(_ context.Context, id string) (*Team, error) {
	tm, ok := t.s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tm, nil
}

func (t *memTx) TeamByExternalID(_ context.Context, externalID, sport string) (*Team, error) {
	for _, tm := range t.s.teams {
		if externalID != "" && tm.ExternalID == externalID && tm.Sport == sport {
			return &tm, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) TeamsBySport(_ context.Context, sport string) ([]Team, error) {
	var out []Team
	for _, tm := range t.s.teams {
		if tm.Sport == sport {
			out = append(out, tm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.s.order[out[i].ID] < t.s.order[out[j].ID] })
	return out, nil
}

func (t *memTx) checkTeamExternalID(tm *Team) error {
	if tm.ExternalID == "" {
		return nil
	}
	for _, cur := range t.s.teams {
		if cur.ID != tm.ID && cur.ExternalID == tm.ExternalID {
			return fmt.Errorf("%w: teams_external_id_key", ErrConflict)
		}
	}
	return nil
}

func (t *memTx) InsertTeam(_ context.Context, tm *Team) error {
	if tm.ID == "" {
		tm.ID = uuid.NewString()
	}
	if err := t.checkTeamExternalID(tm); err != nil {
		return err
	}
	now := t.now()
	tm.CreatedAt, tm.UpdatedAt = now, now
	t.s.teams[tm.ID] = *tm
	t.s.order[tm.ID] = t.s.next()
	return nil
}

func (t *memTx) UpdateTeam(_ context.Context, tm *Team) error {
	cur, ok := t.s.teams[tm.ID]
	if !ok {
		return ErrNotFound
	}
	if err := t.checkTeamExternalID(tm); err != nil {
		return err
	}
	tm.CreatedAt = cur.CreatedAt
	tm.UpdatedAt = t.now()
	t.s.teams[tm.ID] = *tm
	return nil
}

// ---------- execuções de jobs ----------

func (t *memTx) InsertJobExecution(_ context.Context, j *JobExecution) error {
	j.ID = t.s.next()
	t.s.jobs = append(t.s.jobs, *j)
	return nil
}

func (t *memTx) LastJobExecution(_ context.Context, jobName string) (*JobExecution, error) {
	var last *JobExecution
	for i := range t.s.jobs {
		j := t.s.jobs[i]
		if j.JobName != jobName {
			continue
		}
		if last == nil || !j.ExecutedAt.Before(last.ExecutedAt) {
			last = &j
		}
	}
	if last == nil {
		return nil, ErrNotFound
	}
	return last, nil
}
