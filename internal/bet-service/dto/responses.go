package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-platform/internal/bet-service/betting"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

type BetResponse struct {
	BetID           string              `json:"betId"`
	UserID          string              `json:"userId"`
	GameID          string              `json:"gameId"`
	LineID          string              `json:"bettingLineId"`
	Selection       string              `json:"selection"`
	Amount          decimal.Decimal     `json:"amount"`
	Odds            decimal.Decimal     `json:"odds"`
	LineValue       decimal.NullDecimal `json:"line_value"`
	PotentialPayout decimal.Decimal     `json:"potential_payout"`
	ActualPayout    decimal.NullDecimal `json:"actual_payout"`
	Status          string              `json:"status"`
	SettledAt       *time.Time          `json:"settled_at,omitempty"`
	SettlementNotes string              `json:"settlement_notes,omitempty"`
	Game            store.BetMetadata   `json:"game"`
	CreatedAt       time.Time           `json:"created_at"`
}

func NewBetResponse(b *store.Bet) BetResponse {
	return BetResponse{
		BetID:           b.ID,
		UserID:          b.UserID,
		GameID:          b.GameID,
		LineID:          b.BettingLineID,
		Selection:       string(b.Selection),
		Amount:          b.Amount,
		Odds:            b.OddsAtPlacement,
		LineValue:       b.LineValueAtPlacement,
		PotentialPayout: b.PotentialPayout,
		ActualPayout:    b.ActualPayout,
		Status:          string(b.Status),
		SettledAt:       b.SettledAt,
		SettlementNotes: b.SettlementNotes,
		Game:            b.Metadata,
		CreatedAt:       b.CreatedAt,
	}
}

type OperationResponse struct {
	Success          bool             `json:"success"`
	Message          string           `json:"message"`
	Bet              *BetResponse     `json:"bet,omitempty"`
	AvailableBalance *decimal.Decimal `json:"available_balance,omitempty"`
	LockedBalance    *decimal.Decimal `json:"locked_balance,omitempty"`
}

func NewOperationResponse(r betting.Result) OperationResponse {
	out := OperationResponse{Success: r.Success, Message: r.Message}
	if r.Bet != nil {
		b := NewBetResponse(r.Bet)
		out.Bet = &b
	}
	if r.Success {
		avail, locked := r.Available, r.Locked
		out.AvailableBalance, out.LockedBalance = &avail, &locked
	}
	return out
}
