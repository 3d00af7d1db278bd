package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// querier é satisfeito tanto por *sql.DB quanto por *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Postgres implementa Store sobre database/sql + lib/pq
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// InTx abre uma transação, executa fn e faz commit; qualquer erro desfaz tudo
func (p *Postgres) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct{ q querier }

// mapErr traduz erros do driver para os sentinelas do pacote
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- contas ----------

const accountCols = `id, user_id, available_balance, locked_balance, currency, payment_processor, created_at, updated_at`

func (t *pgTx) InsertAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.UserID, a.AvailableBalance, a.LockedBalance, a.Currency, a.PaymentProcessor, now, now)
	return mapErr(err)
}

func (t *pgTx) AccountByUser(ctx context.Context, userID string, forUpdate bool) (*Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts WHERE user_id=$1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var a Account
	err := t.q.QueryRowContext(ctx, q, userID).Scan(
		&a.ID, &a.UserID, &a.AvailableBalance, &a.LockedBalance,
		&a.Currency, &a.PaymentProcessor, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (t *pgTx) UpdateAccountBalances(ctx context.Context, a *Account) error {
	a.UpdatedAt = time.Now().UTC()
	return mustAffect(t.q.ExecContext(ctx, `
		UPDATE accounts SET available_balance=$1, locked_balance=$2, updated_at=$3 WHERE id=$4`,
		a.AvailableBalance, a.LockedBalance, a.UpdatedAt, a.ID))
}

// DeleteAccount remove a conta; os lançamentos caem em cascata
func (t *pgTx) DeleteAccount(ctx context.Context, accountID string) error {
	return mustAffect(t.q.ExecContext(ctx, `DELETE FROM accounts WHERE id=$1`, accountID))
}

// ---------- lançamentos ----------

func (t *pgTx) InsertEntry(ctx context.Context, e *LedgerEntry) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}
	return mapErr(t.q.QueryRowContext(ctx, `
		INSERT INTO ledger_entries
		  (account_id, entry_type, amount, balance_before, balance_after, reference_id, payment_transaction_id, description, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at`,
		e.AccountID, string(e.Type), e.Amount, e.BalanceBefore, e.BalanceAfter,
		nullString(e.ReferenceID), nullString(e.PaymentTransactionID), e.Description, b,
	).Scan(&e.ID, &e.CreatedAt))
}

func (t *pgTx) ListEntries(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT id, account_id, entry_type, amount, balance_before, balance_after,
		       reference_id, payment_transaction_id, description, metadata, created_at
		FROM ledger_entries
		WHERE account_id=$1
		ORDER BY id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var ref, payRef sql.NullString
		var meta []byte
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Type, &e.Amount, &e.BalanceBefore, &e.BalanceAfter,
			&ref, &payRef, &e.Description, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ReferenceID, e.PaymentTransactionID = ref.String, payRef.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode entry metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) SummarizeEntries(ctx context.Context, accountID string) (map[EntryType]EntrySummary, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT entry_type, COUNT(*), COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id=$1
		GROUP BY entry_type`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[EntryType]EntrySummary)
	for rows.Next() {
		var typ EntryType
		var s EntrySummary
		if err := rows.Scan(&typ, &s.Count, &s.Total); err != nil {
			return nil, err
		}
		out[typ] = s
	}
	return out, rows.Err()
}

// ---------- apostas ----------

const betCols = `id, user_id, game_id, betting_line_id, selection, amount, odds_at_placement,
	line_value_at_placement, potential_payout, actual_payout, status, settled_at,
	settlement_notes, metadata, created_at, updated_at`

func scanBet(row scanner) (*Bet, error) {
	var b Bet
	var settled sql.NullTime
	var meta []byte
	if err := row.Scan(&b.ID, &b.UserID, &b.GameID, &b.BettingLineID, &b.Selection, &b.Amount,
		&b.OddsAtPlacement, &b.LineValueAtPlacement, &b.PotentialPayout, &b.ActualPayout,
		&b.Status, &settled, &b.SettlementNotes, &meta, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if settled.Valid {
		ts := settled.Time
		b.SettledAt = &ts
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decode bet metadata: %w", err)
		}
	}
	return &b, nil
}

func (t *pgTx) InsertBet(ctx context.Context, b *Bet) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	meta, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("marshal bet metadata: %w", err)
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	_, err = t.q.ExecContext(ctx, `
		INSERT INTO bets (`+betCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		b.ID, b.UserID, b.GameID, b.BettingLineID, string(b.Selection), b.Amount, b.OddsAtPlacement,
		b.LineValueAtPlacement, b.PotentialPayout, b.ActualPayout, string(b.Status), b.SettledAt,
		b.SettlementNotes, meta, now, now)
	return mapErr(err)
}

func (t *pgTx) BetByID(ctx context.Context, id string, forUpdate bool) (*Bet, error) {
	q := `SELECT ` + betCols + ` FROM bets WHERE id=$1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	b, err := scanBet(t.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (t *pgTx) UpdateBetSettlement(ctx context.Context, b *Bet) error {
	b.UpdatedAt = time.Now().UTC()
	return mustAffect(t.q.ExecContext(ctx, `
		UPDATE bets
		SET status=$1, actual_payout=$2, settled_at=$3, settlement_notes=$4, updated_at=$5
		WHERE id=$6`,
		string(b.Status), b.ActualPayout, b.SettledAt, b.SettlementNotes, b.UpdatedAt, b.ID))
}

func (t *pgTx) queryBets(ctx context.Context, q string, args ...any) ([]Bet, error) {
	rows, err := t.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (t *pgTx) ListBetsByUser(ctx context.Context, userID string, limit int) ([]Bet, error) {
	return t.queryBets(ctx, `SELECT `+betCols+` FROM bets WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

func (t *pgTx) ListPendingBetsByGame(ctx context.Context, gameID string) ([]Bet, error) {
	return t.queryBets(ctx, `SELECT `+betCols+` FROM bets WHERE game_id=$1 AND status='pending' ORDER BY created_at`, gameID)
}

func (t *pgTx) ListSettleableGames(ctx context.Context) ([]Game, error) {
	return t.queryGames(ctx, `
		SELECT `+gameCols+` FROM games g
		WHERE g.status='completed'
		  AND g.home_score IS NOT NULL AND g.away_score IS NOT NULL
		  AND EXISTS (SELECT 1 FROM bets b WHERE b.game_id=g.id AND b.status='pending')
		ORDER BY g.game_time`)
}

// ---------- jogos ----------

const gameCols = `id, home_team_id, away_team_id, game_time, sport, status, home_score, away_score,
	external_id, data_source, last_synced_at, created_at, updated_at`

func scanGame(row scanner) (*Game, error) {
	var g Game
	var home, away sql.NullInt64
	var ext sql.NullString
	var synced sql.NullTime
	if err := row.Scan(&g.ID, &g.HomeTeamID, &g.AwayTeamID, &g.GameTime, &g.Sport, &g.Status,
		&home, &away, &ext, &g.DataSource, &synced, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if home.Valid {
		v := int(home.Int64)
		g.HomeScore = &v
	}
	if away.Valid {
		v := int(away.Int64)
		g.AwayScore = &v
	}
	g.ExternalID = ext.String
	if synced.Valid {
		ts := synced.Time
		g.LastSyncedAt = &ts
	}
	return &g, nil
}

func (t *pgTx) queryGames(ctx context.Context, q string, args ...any) ([]Game, error) {
	rows, err := t.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertGame(ctx context.Context, g *Game) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO games (`+gameCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		g.ID, g.HomeTeamID, g.AwayTeamID, g.GameTime, g.Sport, string(g.Status), g.HomeScore, g.AwayScore,
		nullString(g.ExternalID), g.DataSource, g.LastSyncedAt, now, now)
	return mapErr(err)
}

func (t *pgTx) UpdateGame(ctx context.Context, g *Game) error {
	g.UpdatedAt = time.Now().UTC()
	return mustAffect(t.q.ExecContext(ctx, `
		UPDATE games
		SET home_team_id=$1, away_team_id=$2, game_time=$3, sport=$4, status=$5, home_score=$6,
		    away_score=$7, external_id=$8, data_source=$9, last_synced_at=$10, updated_at=$11
		WHERE id=$12`,
		g.HomeTeamID, g.AwayTeamID, g.GameTime, g.Sport, string(g.Status), g.HomeScore,
		g.AwayScore, nullString(g.ExternalID), g.DataSource, g.LastSyncedAt, g.UpdatedAt, g.ID))
}

func (t *pgTx) GameByID(ctx context.Context, id string) (*Game, error) {
	g, err := scanGame(t.q.QueryRowContext(ctx, `SELECT `+gameCols+` FROM games WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return g, nil
}

func (t *pgTx) GameByExternalID(ctx context.Context, externalID string) (*Game, error) {
	g, err := scanGame(t.q.QueryRowContext(ctx, `SELECT `+gameCols+` FROM games WHERE external_id=$1`, externalID))
	if err != nil {
		return nil, mapErr(err)
	}
	return g, nil
}

func (t *pgTx) ListGames(ctx context.Context, f GameFilter) ([]Game, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	return t.queryGames(ctx, `
		SELECT `+gameCols+` FROM games
		WHERE ($1 = '' OR sport = $1)
		ORDER BY game_time
		LIMIT $2`, f.Sport, limit)
}

func (t *pgTx) ListProviderGames(ctx context.Context, since time.Time) ([]Game, error) {
	return t.queryGames(ctx, `
		SELECT `+gameCols+` FROM games
		WHERE external_id IS NOT NULL AND game_time >= $1
		ORDER BY game_time`, since)
}

// ---------- linhas ----------

const lineCols = `id, game_id, line_type, home_odds, away_odds, over_odds, under_odds, spread, total, created_at, updated_at`

func scanLine(row scanner) (*BettingLine, error) {
	var l BettingLine
	if err := row.Scan(&l.ID, &l.GameID, &l.LineType, &l.HomeOdds, &l.AwayOdds, &l.OverOdds,
		&l.UnderOdds, &l.Spread, &l.Total, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *pgTx) LineByID(ctx context.Context, id string) (*BettingLine, error) {
	l, err := scanLine(t.q.QueryRowContext(ctx, `SELECT `+lineCols+` FROM betting_lines WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return l, nil
}

func (t *pgTx) LinesByGame(ctx context.Context, gameID string) ([]BettingLine, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+lineCols+` FROM betting_lines WHERE game_id=$1 ORDER BY line_type`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BettingLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// UpsertLine usa ON CONFLICT para manter uma única linha por (game_id, line_type)
func (t *pgTx) UpsertLine(ctx context.Context, l *BettingLine) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.UpdatedAt = now
	return mapErr(t.q.QueryRowContext(ctx, `
		INSERT INTO betting_lines (`+lineCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
		ON CONFLICT (game_id, line_type) DO UPDATE SET
		  home_odds  = EXCLUDED.home_odds,
		  away_odds  = EXCLUDED.away_odds,
		  over_odds  = EXCLUDED.over_odds,
		  under_odds = EXCLUDED.under_odds,
		  spread     = EXCLUDED.spread,
		  total      = EXCLUDED.total,
		  updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		l.ID, l.GameID, string(l.LineType), l.HomeOdds, l.AwayOdds, l.OverOdds, l.UnderOdds, l.Spread, l.Total, now,
	).Scan(&l.ID, &l.CreatedAt))
}

// ---------- times ----------

const teamCols = `id, name, city, abbreviation, sport, external_id, data_source, created_at, updated_at`

func scanTeam(row scanner) (*Team, error) {
	var tm Team
	var ext sql.NullString
	if err := row.Scan(&tm.ID, &tm.Name, &tm.City, &tm.Abbreviation, &tm.Sport, &ext,
		&tm.DataSource, &tm.CreatedAt, &tm.UpdatedAt); err != nil {
		return nil, err
	}
	tm.ExternalID = ext.String
	return &tm, nil
}

func (t *pgTx) TeamByID(ctx context.Context, id string) (*Team, error) {
	tm, err := scanTeam(t.q.QueryRowContext(ctx, `SELECT `+teamCols+` FROM teams WHERE id=$1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return tm, nil
}

func (t *pgTx) TeamByExternalID(ctx context.Context, externalID, sport string) (*Team, error) {
	tm, err := scanTeam(t.q.QueryRowContext(ctx,
		`SELECT `+teamCols+` FROM teams WHERE external_id=$1 AND sport=$2`, externalID, sport))
	if err != nil {
		return nil, mapErr(err)
	}
	return tm, nil
}

func (t *pgTx) TeamsBySport(ctx context.Context, sport string) ([]Team, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+teamCols+` FROM teams WHERE sport=$1 ORDER BY created_at`, sport)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Team
	for rows.Next() {
		tm, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tm)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertTeam(ctx context.Context, tm *Team) error {
	if tm.ID == "" {
		tm.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tm.CreatedAt, tm.UpdatedAt = now, now
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO teams (`+teamCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		tm.ID, tm.Name, tm.City, tm.Abbreviation, tm.Sport, nullString(tm.ExternalID), tm.DataSource, now, now)
	return mapErr(err)
}

func (t *pgTx) UpdateTeam(ctx context.Context, tm *Team) error {
	tm.UpdatedAt = time.Now().UTC()
	return mustAffect(t.q.ExecContext(ctx, `
		UPDATE teams SET name=$1, city=$2, abbreviation=$3, external_id=$4, data_source=$5, updated_at=$6
		WHERE id=$7`,
		tm.Name, tm.City, tm.Abbreviation, nullString(tm.ExternalID), tm.DataSource, tm.UpdatedAt, tm.ID))
}

// ---------- execuções de jobs ----------

func (t *pgTx) InsertJobExecution(ctx context.Context, j *JobExecution) error {
	return mapErr(t.q.QueryRowContext(ctx, `
		INSERT INTO job_executions (job_name, status, executed_at, details)
		VALUES ($1,$2,$3,$4)
		RETURNING id`, j.JobName, j.Status, j.ExecutedAt, j.Details).Scan(&j.ID))
}

func (t *pgTx) LastJobExecution(ctx context.Context, jobName string) (*JobExecution, error) {
	var j JobExecution
	err := t.q.QueryRowContext(ctx, `
		SELECT id, job_name, status, executed_at, details
		FROM job_executions
		WHERE job_name=$1
		ORDER BY executed_at DESC, id DESC
		LIMIT 1`, jobName).Scan(&j.ID, &j.JobName, &j.Status, &j.ExecutedAt, &j.Details)
	if err != nil {
		return nil, mapErr(err)
	}
	return &j, nil
}
