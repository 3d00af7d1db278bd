package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
)

type AccountResponse struct {
	UserID           string          `json:"userId"`
	AccountID        string          `json:"accountId"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	LockedBalance    decimal.Decimal `json:"locked_balance"`
	TotalBalance     decimal.Decimal `json:"total_balance"`
	Currency         string          `json:"currency"`
	PaymentProcessor string          `json:"payment_processor"`
}

func NewAccountResponse(a *store.Account) AccountResponse {
	return AccountResponse{
		UserID:           a.UserID,
		AccountID:        a.ID,
		AvailableBalance: a.AvailableBalance,
		LockedBalance:    a.LockedBalance,
		TotalBalance:     a.TotalBalance(),
		Currency:         a.Currency,
		PaymentProcessor: a.PaymentProcessor,
	}
}

// OperationResponse espelha ledger.Result
type OperationResponse struct {
	Success              bool             `json:"success"`
	Message              string           `json:"message"`
	AvailableBalance     *decimal.Decimal `json:"available_balance,omitempty"`
	LockedBalance        *decimal.Decimal `json:"locked_balance,omitempty"`
	PaymentTransactionID string           `json:"payment_transaction_id,omitempty"`
	Entry                *EntryResponse   `json:"entry,omitempty"`
}

func NewOperationResponse(r ledger.Result) OperationResponse {
	out := OperationResponse{
		Success:              r.Success,
		Message:              r.Message,
		PaymentTransactionID: r.PaymentTransactionID,
	}
	if r.Success {
		avail, locked := r.Available, r.Locked
		out.AvailableBalance = &avail
		out.LockedBalance = &locked
	}
	if r.Entry != nil {
		e := NewEntryResponse(*r.Entry)
		out.Entry = &e
	}
	return out
}

type EntryResponse struct {
	ID                   int64             `json:"id"`
	Type                 store.EntryType   `json:"type"`
	Amount               decimal.Decimal   `json:"amount"`
	BalanceBefore        decimal.Decimal   `json:"balance_before"`
	BalanceAfter         decimal.Decimal   `json:"balance_after"`
	ReferenceID          string            `json:"reference_id,omitempty"`
	PaymentTransactionID string            `json:"payment_transaction_id,omitempty"`
	Description          string            `json:"description"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

func NewEntryResponse(e store.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:                   e.ID,
		Type:                 e.Type,
		Amount:               e.Amount,
		BalanceBefore:        e.BalanceBefore,
		BalanceAfter:         e.BalanceAfter,
		ReferenceID:          e.ReferenceID,
		PaymentTransactionID: e.PaymentTransactionID,
		Description:          e.Description,
		Metadata:             e.Metadata,
		CreatedAt:            e.CreatedAt,
	}
}

type StatsResponse struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
	LockedBalance    decimal.Decimal `json:"locked_balance"`
	TotalBalance     decimal.Decimal `json:"total_balance"`
	Currency         string          `json:"currency"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	BetsPlaced       int             `json:"bets_placed"`
	BetsWon          int             `json:"bets_won"`
	BetsLost         int             `json:"bets_lost"`
	BetsPush         int             `json:"bets_push"`
	BetsCanceled     int             `json:"bets_canceled"`
	NetProfit        decimal.Decimal `json:"net_profit"`
}

func NewStatsResponse(s ledger.Stats) StatsResponse {
	return StatsResponse(s)
}
