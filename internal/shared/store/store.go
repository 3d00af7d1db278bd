package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store abre unidades transacionais. Tudo que é escrito via Tx dentro de fn
// é confirmado junto; se fn retornar erro, nada persiste.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// GameFilter filtra a listagem de jogos
type GameFilter struct {
	Sport string
	Limit int
}

// Tx agrupa as consultas de todas as entidades dentro de uma transação
type Tx interface {
	InsertAccount(ctx context.Context, a *Account) error
	// AccountByUser com forUpdate=true trava a linha até o fim da transação
	AccountByUser(ctx context.Context, userID string, forUpdate bool) (*Account, error)
	UpdateAccountBalances(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, accountID string) error

	InsertEntry(ctx context.Context, e *LedgerEntry) error
	ListEntries(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error)
	SummarizeEntries(ctx context.Context, accountID string) (map[EntryType]EntrySummary, error)

	InsertBet(ctx context.Context, b *Bet) error
	BetByID(ctx context.Context, id string, forUpdate bool) (*Bet, error)
	UpdateBetSettlement(ctx context.Context, b *Bet) error
	ListBetsByUser(ctx context.Context, userID string, limit int) ([]Bet, error)
	ListPendingBetsByGame(ctx context.Context, gameID string) ([]Bet, error)
	// ListSettleableGames retorna jogos concluídos, com placar, que têm apostas pendentes
	ListSettleableGames(ctx context.Context) ([]Game, error)

	InsertGame(ctx context.Context, g *Game) error
	UpdateGame(ctx context.Context, g *Game) error
	GameByID(ctx context.Context, id string) (*Game, error)
	GameByExternalID(ctx context.Context, externalID string) (*Game, error)
	ListGames(ctx context.Context, f GameFilter) ([]Game, error)
	// ListProviderGames retorna jogos com external_id cujo horário é >= since
	ListProviderGames(ctx context.Context, since time.Time) ([]Game, error)

	LineByID(ctx context.Context, id string) (*BettingLine, error)
	LinesByGame(ctx context.Context, gameID string) ([]BettingLine, error)
	// UpsertLine grava no máximo uma linha por (jogo, tipo)
	UpsertLine(ctx context.Context, l *BettingLine) error

	TeamByID(ctx context.Context, id string) (*Team, error)
	TeamByExternalID(ctx context.Context, externalID, sport string) (*Team, error)
	TeamsBySport(ctx context.Context, sport string) ([]Team, error)
	InsertTeam(ctx context.Context, t *Team) error
	UpdateTeam(ctx context.Context, t *Team) error

	InsertJobExecution(ctx context.Context, j *JobExecution) error
	LastJobExecution(ctx context.Context, jobName string) (*JobExecution, error)
}
