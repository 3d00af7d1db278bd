package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type PlaceBetRequest struct {
	UserID    string          `json:"userId" validate:"required"`
	GameID    string          `json:"gameId" validate:"required"`
	LineID    string          `json:"bettingLineId" validate:"required"`
	Selection string          `json:"selection" validate:"required,oneof=home away over under"`
	Amount    decimal.Decimal `json:"amount"`
	// odd exibida no bilhete; se divergir da atual a aposta é recusada
	ExpectedOdds decimal.NullDecimal `json:"expected_odds"`
}

func (r *PlaceBetRequest) Validate() error { return validate.Struct(r) }

type CancelBetRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (r *CancelBetRequest) Validate() error { return validate.Struct(r) }
