package payment

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrPaperAccountNotFound = errors.New("paper account not found")
	ErrTransactionNotFound  = errors.New("paper transaction not found")
	ErrRefundExceedsCharge  = errors.New("refund exceeds original charge")
)

// Tipos de transação de papel
const (
	TxCharge     = "charge"
	TxRefund     = "refund"
	TxWithdrawal = "withdrawal"
)

type PaperAccount struct {
	CustomerID string
	Balance    decimal.Decimal
	Currency   string
}

type PaperTransaction struct {
	ID         string
	CustomerID string
	Type       string
	Amount     decimal.Decimal
	Currency   string
	OriginalID string // preenchido em estornos
	Metadata   map[string]string
	CreatedAt  time.Time
}

// PaperAccounts persiste contas e transações de papel.
// Debit e Credit são atômicos: checagem de saldo/limite e gravação juntas.
type PaperAccounts interface {
	FindOrCreate(ctx context.Context, customerID string, starting decimal.Decimal, currency string) (PaperAccount, error)
	Find(ctx context.Context, customerID string) (PaperAccount, error)
	// Debit retorna ErrInsufficientFunds (com a conta atual) se saldo < t.Amount
	Debit(ctx context.Context, t PaperTransaction) (PaperAccount, error)
	// Credit com refundCap válido limita a soma dos estornos de t.OriginalID
	Credit(ctx context.Context, t PaperTransaction, refundCap decimal.NullDecimal) (PaperAccount, error)
	Transaction(ctx context.Context, id string) (PaperTransaction, error)
}

// MemoryAccounts guarda contas de papel em memória (testes e dev)
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]PaperAccount
	txs      map[string]PaperTransaction
	refunded map[string]decimal.Decimal
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		accounts: map[string]PaperAccount{},
		txs:      map[string]PaperTransaction{},
		refunded: map[string]decimal.Decimal{},
	}
}

func (m *MemoryAccounts) FindOrCreate(_ context.Context, customerID string, starting decimal.Decimal, currency string) (PaperAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[customerID]; ok {
		return a, nil
	}
	a := PaperAccount{CustomerID: customerID, Balance: starting, Currency: currency}
	m.accounts[customerID] = a
	return a, nil
}

func (m *MemoryAccounts) Find(_ context.Context, customerID string) (PaperAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[customerID]
	if !ok {
		return PaperAccount{}, ErrPaperAccountNotFound
	}
	return a, nil
}

func (m *MemoryAccounts) Debit(_ context.Context, t PaperTransaction) (PaperAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[t.CustomerID]
	if !ok {
		return PaperAccount{}, ErrPaperAccountNotFound
	}
	if a.Balance.LessThan(t.Amount) {
		return a, ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(t.Amount)
	m.accounts[t.CustomerID] = a
	m.record(t)
	return a, nil
}

func (m *MemoryAccounts) Credit(_ context.Context, t PaperTransaction, refundCap decimal.NullDecimal) (PaperAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[t.CustomerID]
	if !ok {
		return PaperAccount{}, ErrPaperAccountNotFound
	}
	if refundCap.Valid {
		done := m.refunded[t.OriginalID].Add(t.Amount)
		if done.GreaterThan(refundCap.Decimal) {
			return a, ErrRefundExceedsCharge
		}
		m.refunded[t.OriginalID] = done
	}
	a.Balance = a.Balance.Add(t.Amount)
	m.accounts[t.CustomerID] = a
	m.record(t)
	return a, nil
}

func (m *MemoryAccounts) Transaction(_ context.Context, id string) (PaperTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return PaperTransaction{}, ErrTransactionNotFound
	}
	t.Metadata = maps.Clone(t.Metadata)
	return t, nil
}

func (m *MemoryAccounts) record(t PaperTransaction) {
	t.Metadata = maps.Clone(t.Metadata)
	m.txs[t.ID] = t
}
