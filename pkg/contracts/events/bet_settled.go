package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento emitido após a liquidação de uma aposta.
type BetSettled struct {
	BetID  string          `json:"betId"`
	UserID string          `json:"userId"`
	GameID string          `json:"gameId"`
	Status string          `json:"status"` // "won" | "lost" | "push"
	Amount decimal.Decimal `json:"amount"`
	Payout decimal.Decimal `json:"payout"`
	Notes  string          `json:"notes,omitempty"`
	Ts     time.Time       `json:"ts"`
}

// Evento emitido quando o usuário cancela uma aposta pendente.
type BetCanceled struct {
	BetID  string          `json:"betId"`
	UserID string          `json:"userId"`
	GameID string          `json:"gameId"`
	Amount decimal.Decimal `json:"amount"`
	Ts     time.Time       `json:"ts"`
}
