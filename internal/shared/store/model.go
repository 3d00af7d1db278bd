package store

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Origem dos dados de times e jogos
const (
	DataSourceManual  = "manual"
	DataSourceAPI     = "api"
	DataSourceOddsAPI = "the_odds_api"
)

// EntryType classifica um lançamento do ledger
type EntryType string

const (
	EntryDeposit     EntryType = "deposit"
	EntryWithdrawal  EntryType = "withdrawal"
	EntryBetPlaced   EntryType = "bet_placed"
	EntryBetWon      EntryType = "bet_won"
	EntryBetLost     EntryType = "bet_lost"
	EntryBetCanceled EntryType = "bet_canceled"
	EntryBetPush     EntryType = "bet_push"
)

// Account é a banca de um usuário: saldo disponível e saldo travado em apostas abertas.
type Account struct {
	ID               string
	UserID           string
	AvailableBalance decimal.Decimal
	LockedBalance    decimal.Decimal
	Currency         string
	PaymentProcessor string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TotalBalance = disponível + travado
func (a Account) TotalBalance() decimal.Decimal {
	return a.AvailableBalance.Add(a.LockedBalance)
}

// LedgerEntry registra uma única mutação de saldo. Imutável após inserido.
// BalanceBefore/BalanceAfter referem-se ao saldo disponível.
type LedgerEntry struct {
	ID                   int64
	AccountID            string
	Type                 EntryType
	Amount               decimal.Decimal
	BalanceBefore        decimal.Decimal
	BalanceAfter         decimal.Decimal
	ReferenceID          string
	PaymentTransactionID string
	Description          string
	Metadata             map[string]string
	CreatedAt            time.Time
}

// EntrySummary agrega lançamentos de um mesmo tipo
type EntrySummary struct {
	Count int
	Total decimal.Decimal
}

type Selection string

const (
	SelectionHome  Selection = "home"
	SelectionAway  Selection = "away"
	SelectionOver  Selection = "over"
	SelectionUnder Selection = "under"
)

func (s Selection) Valid() bool {
	switch s {
	case SelectionHome, SelectionAway, SelectionOver, SelectionUnder:
		return true
	}
	return false
}

type BetStatus string

const (
	BetPending  BetStatus = "pending"
	BetWon      BetStatus = "won"
	BetLost     BetStatus = "lost"
	BetPush     BetStatus = "push"
	BetCanceled BetStatus = "canceled"
)

// Terminal indica que nenhuma transição sai deste estado
func (s BetStatus) Terminal() bool { return s != BetPending }

type LineType string

const (
	LineMoneyline LineType = "moneyline"
	LineSpread    LineType = "spread"
	LineOverUnder LineType = "over_under"
)

// Accepts informa se a seleção faz sentido para o tipo de linha
func (t LineType) Accepts(s Selection) bool {
	switch t {
	case LineMoneyline, LineSpread:
		return s == SelectionHome || s == SelectionAway
	case LineOverUnder:
		return s == SelectionOver || s == SelectionUnder
	}
	return false
}

// BetMetadata guarda os dados de exibição do jogo no momento da aposta
type BetMetadata struct {
	GameTime     time.Time `json:"game_time"`
	Sport        string    `json:"sport"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	HomeTeamAbbr string    `json:"home_team_abbr"`
	AwayTeamAbbr string    `json:"away_team_abbr"`
	LineType     LineType  `json:"line_type"`
}

type Bet struct {
	ID                   string
	UserID               string
	GameID               string
	BettingLineID        string
	Selection            Selection
	Amount               decimal.Decimal
	OddsAtPlacement      decimal.Decimal
	LineValueAtPlacement decimal.NullDecimal
	PotentialPayout      decimal.Decimal
	ActualPayout         decimal.NullDecimal
	Status               BetStatus
	SettledAt            *time.Time
	SettlementNotes      string
	Metadata             BetMetadata
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type GameStatus string

const (
	GameScheduled  GameStatus = "scheduled"
	GameInProgress GameStatus = "in_progress"
	GameCompleted  GameStatus = "completed"
	GamePostponed  GameStatus = "postponed"
)

type Game struct {
	ID           string
	HomeTeamID   string
	AwayTeamID   string
	GameTime     time.Time
	Sport        string
	Status       GameStatus
	HomeScore    *int
	AwayScore    *int
	ExternalID   string // vazio = jogo cadastrado manualmente
	DataSource   string
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Final indica jogo concluído com placar completo
func (g Game) Final() bool {
	return g.Status == GameCompleted && g.HomeScore != nil && g.AwayScore != nil
}

// Started indica que o horário do jogo já passou
func (g Game) Started(now time.Time) bool { return g.GameTime.Before(now) }

type BettingLine struct {
	ID        string
	GameID    string
	LineType  LineType
	HomeOdds  decimal.NullDecimal
	AwayOdds  decimal.NullDecimal
	OverOdds  decimal.NullDecimal
	UnderOdds decimal.NullDecimal
	Spread    decimal.NullDecimal
	Total     decimal.NullDecimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Team struct {
	ID           string
	Name         string
	City         string
	Abbreviation string
	Sport        string
	ExternalID   string
	DataSource   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName = "cidade nome"
func (t Team) FullName() string {
	return strings.TrimSpace(t.City + " " + t.Name)
}

// Status de execução de jobs
const (
	JobSuccess = "success"
	JobFailed  = "failed"
	JobSkipped = "skipped"
)

type JobExecution struct {
	ID         int64
	JobName    string
	Status     string
	ExecutedAt time.Time
	Details    string
}
