package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownProcessor = errors.New("unknown payment processor")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrMissingCustomer  = errors.New("customer_id is required")
)

// Feature identifica uma capacidade opcional de um processador
type Feature string

const (
	FeatureCharge            Feature = "charge"
	FeatureRefund            Feature = "refund"
	FeatureWithdraw          Feature = "withdraw"
	FeatureBalance           Feature = "balance"
	FeatureCustomerCreation  Feature = "customer_creation"
	FeaturePaymentValidation Feature = "payment_validation"
	FeatureInstantSettlement Feature = "instant_settlement"
	FeatureZeroFees          Feature = "zero_fees"
)

// Request descreve uma cobrança ou um saque junto ao processador
type Request struct {
	CustomerID string
	Amount     decimal.Decimal
	Currency   string
	Metadata   map[string]string
}

// Response é o resultado uniforme de qualquer chamada ao processador.
// Success=false carrega a recusa em Message; erro só para falha de programação.
type Response struct {
	Success               bool
	TransactionID         string
	OriginalTransactionID string
	Amount                decimal.Decimal
	Currency              string
	Balance               decimal.Decimal
	Message               string
}

// Processor é a interface de capacidades de um meio de pagamento
type Processor interface {
	Name() string
	Charge(ctx context.Context, req Request) (Response, error)
	// Refund devolve parte ou todo de uma cobrança; amount inválido = estorno total
	Refund(ctx context.Context, transactionID string, amount decimal.NullDecimal) (Response, error)
	Withdraw(ctx context.Context, req Request) (Response, error)
	GetBalance(ctx context.Context, customerID string) (Response, error)
	CreateCustomer(ctx context.Context, customerID, currency string) (Response, error)
	ValidatePaymentMethod(method string) bool
	SupportedFeatures() []Feature
	Supports(f Feature) bool
}

// Config seleciona e configura o backend
type Config struct {
	Name            string // "paper_trading"
	Currency        string
	StartingBalance decimal.Decimal
	Accounts        PaperAccounts // obrigatório para paper_trading
}

// New constrói o processador indicado em cfg.Name
func New(cfg Config) (Processor, error) {
	switch cfg.Name {
	case PaperTradingName:
		if cfg.Accounts == nil {
			return nil, fmt.Errorf("%s: paper accounts store is required", cfg.Name)
		}
		return NewPaperTrading(cfg.Accounts, cfg.StartingBalance, cfg.Currency), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, cfg.Name)
	}
}

func validateRequest(req Request) error {
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if req.CustomerID == "" {
		return ErrMissingCustomer
	}
	return nil
}

func failure(format string, args ...any) Response {
	return Response{Success: false, Message: fmt.Sprintf(format, args...)}
}
