package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type OpenAccountRequest struct {
	UserID           string `json:"userId" validate:"required"`
	Currency         string `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentProcessor string `json:"payment_processor,omitempty"`
}

func (r *OpenAccountRequest) Validate() error { return validate.Struct(r) }

// MoneyRequest serve para depósito e saque. Amount aceita número ou string ("25.50").
type MoneyRequest struct {
	UserID   string            `json:"userId" validate:"required"`
	Amount   decimal.Decimal   `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=20"`
}

func (r *MoneyRequest) Validate() error { return validate.Struct(r) }
