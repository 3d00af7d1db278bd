package events

import "github.com/shopspring/decimal"

// Evento publicado no tópico "bet_placed" depois que a aposta e o bloqueio
// de saldo foram confirmados no banco.
type BetPlaced struct {
	BetID           string              `json:"bet_id"`
	UserID          string              `json:"user_id"`
	GameID          string              `json:"game_id"`
	LineID          string              `json:"line_id"`
	LineType        string              `json:"line_type"`
	Selection       string              `json:"selection"`
	Amount          decimal.Decimal     `json:"amount"`
	Odds            decimal.Decimal     `json:"odds"`
	LineValue       decimal.NullDecimal `json:"line_value"`
	PotentialPayout decimal.Decimal     `json:"potential_payout"`
	TsUnixMs        int64               `json:"ts_unix_ms"`
}
