package payment

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const PaperTradingName = "paper_trading"

// DefaultStartingBalance é o saldo de papel criado para um cliente novo
var DefaultStartingBalance = decimal.NewFromInt(1000)

var paperFeatures = []Feature{
	FeatureCharge, FeatureRefund, FeatureWithdraw, FeatureBalance,
	FeatureCustomerCreation, FeatureInstantSettlement, FeatureZeroFees,
}

// PaperTrading movimenta dinheiro de mentira: liquidação instantânea, sem taxas.
// Cobrança debita a conta de papel; saque credita.
type PaperTrading struct {
	accounts PaperAccounts
	starting decimal.Decimal
	currency string
	now      func() time.Time
}

func NewPaperTrading(accounts PaperAccounts, starting decimal.Decimal, currency string) *PaperTrading {
	if !starting.IsPositive() {
		starting = DefaultStartingBalance
	}
	if currency == "" {
		currency = "USD"
	}
	return &PaperTrading{
		accounts: accounts,
		starting: starting,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *PaperTrading) Name() string { return PaperTradingName }

func (p *PaperTrading) SupportedFeatures() []Feature { return slices.Clone(paperFeatures) }

func (p *PaperTrading) Supports(f Feature) bool { return slices.Contains(paperFeatures, f) }

// ValidatePaymentMethod: qualquer meio serve para papel
func (p *PaperTrading) ValidatePaymentMethod(string) bool { return true }

// newTransactionID gera "pt_" + 32 hex
func newTransactionID() string {
	return "pt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (p *PaperTrading) currencyOr(c string) string {
	if c == "" {
		return p.currency
	}
	return c
}

func (p *PaperTrading) Charge(ctx context.Context, req Request) (Response, error) {
	if err := validateRequest(req); err != nil {
		return Response{}, err
	}
	cur := p.currencyOr(req.Currency)

	if _, err := p.accounts.FindOrCreate(ctx, req.CustomerID, p.starting, cur); err != nil {
		return failure("Payment failed: %v", err), nil
	}

	t := PaperTransaction{
		ID:         newTransactionID(),
		CustomerID: req.CustomerID,
		Type:       TxCharge,
		Amount:     req.Amount,
		Currency:   cur,
		Metadata:   req.Metadata,
		CreatedAt:  p.now(),
	}
	acct, err := p.accounts.Debit(ctx, t)
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		r := failure("Insufficient funds. Balance: %s, Required: %s", acct.Balance.StringFixed(2), req.Amount.StringFixed(2))
		r.Balance = acct.Balance
		return r, nil
	case err != nil:
		return failure("Payment failed: %v", err), nil
	}

	return Response{
		Success:       true,
		TransactionID: t.ID,
		Amount:        req.Amount,
		Currency:      cur,
		Balance:       acct.Balance,
		Message:       "Successfully charged " + req.Amount.StringFixed(2) + " " + cur,
	}, nil
}

func (p *PaperTrading) Refund(ctx context.Context, transactionID string, amount decimal.NullDecimal) (Response, error) {
	original, err := p.accounts.Transaction(ctx, transactionID)
	if errors.Is(err, ErrTransactionNotFound) {
		return failure("Transaction %s not found", transactionID), nil
	}
	if err != nil {
		return failure("Refund failed: %v", err), nil
	}
	if original.Type != TxCharge {
		return failure("Cannot refund a %s transaction", original.Type), nil
	}

	refund := original.Amount
	if amount.Valid {
		refund = amount.Decimal
	}
	if !refund.IsPositive() {
		return Response{}, ErrInvalidAmount
	}
	if refund.GreaterThan(original.Amount) {
		return failure("Refund amount (%s) cannot exceed original charge (%s)",
			refund.StringFixed(2), original.Amount.StringFixed(2)), nil
	}

	t := PaperTransaction{
		ID:         newTransactionID(),
		CustomerID: original.CustomerID,
		Type:       TxRefund,
		Amount:     refund,
		Currency:   original.Currency,
		OriginalID: original.ID,
		Metadata:   map[string]string{"original_transaction_id": original.ID},
		CreatedAt:  p.now(),
	}
	acct, err := p.accounts.Credit(ctx, t, decimal.NewNullDecimal(original.Amount))
	switch {
	case errors.Is(err, ErrRefundExceedsCharge):
		return failure("Refund amount (%s) cannot exceed original charge (%s)",
			refund.StringFixed(2), original.Amount.StringFixed(2)), nil
	case err != nil:
		return failure("Refund failed: %v", err), nil
	}

	return Response{
		Success:               true,
		TransactionID:         t.ID,
		OriginalTransactionID: original.ID,
		Amount:                refund,
		Currency:              original.Currency,
		Balance:               acct.Balance,
		Message:               "Successfully refunded " + refund.StringFixed(2) + " " + original.Currency,
	}, nil
}

// Withdraw paga ao cliente: credita a conta de papel, que precisa existir
func (p *PaperTrading) Withdraw(ctx context.Context, req Request) (Response, error) {
	if err := validateRequest(req); err != nil {
		return Response{}, err
	}
	cur := p.currencyOr(req.Currency)

	t := PaperTransaction{
		ID:         newTransactionID(),
		CustomerID: req.CustomerID,
		Type:       TxWithdrawal,
		Amount:     req.Amount,
		Currency:   cur,
		Metadata:   req.Metadata,
		CreatedAt:  p.now(),
	}
	acct, err := p.accounts.Credit(ctx, t, decimal.NullDecimal{})
	switch {
	case errors.Is(err, ErrPaperAccountNotFound):
		return failure("No payment account found for customer %s. Please make a deposit first.", req.CustomerID), nil
	case err != nil:
		return failure("Withdrawal failed: %v", err), nil
	}

	return Response{
		Success:       true,
		TransactionID: t.ID,
		Amount:        req.Amount,
		Currency:      cur,
		Balance:       acct.Balance,
		Message:       "Successfully withdrew " + req.Amount.StringFixed(2) + " " + cur,
	}, nil
}

func (p *PaperTrading) GetBalance(ctx context.Context, customerID string) (Response, error) {
	if customerID == "" {
		return Response{}, ErrMissingCustomer
	}
	acct, err := p.accounts.FindOrCreate(ctx, customerID, p.starting, p.currency)
	if err != nil {
		return failure("Failed to retrieve balance: %v", err), nil
	}
	return Response{Success: true, Balance: acct.Balance, Currency: acct.Currency}, nil
}

func (p *PaperTrading) CreateCustomer(ctx context.Context, customerID, currency string) (Response, error) {
	if customerID == "" {
		return Response{}, ErrMissingCustomer
	}
	cur := p.currencyOr(currency)
	acct, err := p.accounts.FindOrCreate(ctx, customerID, p.starting, cur)
	if err != nil {
		return failure("Failed to create customer: %v", err), nil
	}
	return Response{
		Success:  true,
		Balance:  acct.Balance,
		Currency: acct.Currency,
		Message:  "Paper trading account created with " + p.starting.StringFixed(2) + " " + cur,
	}, nil
}
