package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/payment"
)

// Regras de negócio
var (
	MinDeposit     = decimal.NewFromInt(10)
	MinWithdrawal  = decimal.NewFromInt(20)
	MaxTransaction = decimal.NewFromInt(10000)
	MinBetAmount   = decimal.NewFromInt(5)
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

var ErrAccountNotFound = errors.New("account not found")

// errRejected desfaz a transação quando a operação foi recusada por regra de negócio
var errRejected = errors.New("ledger: rejected")

// Result é o retorno de toda operação do ledger. Success=false traz o motivo em Message.
type Result struct {
	Success              bool
	Message              string
	Entry                *store.LedgerEntry
	Available            decimal.Decimal
	Locked               decimal.Decimal
	Profit               decimal.Decimal
	PaymentTransactionID string
}

func reject(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Stats resume a conta
type Stats struct {
	AvailableBalance decimal.Decimal
	LockedBalance    decimal.Decimal
	TotalBalance     decimal.Decimal
	Currency         string
	TotalDeposits    decimal.Decimal
	TotalWithdrawals decimal.Decimal
	BetsPlaced       int
	BetsWon          int
	BetsLost         int
	BetsPush         int
	BetsCanceled     int
	NetProfit        decimal.Decimal
}

// Service é a única porta de escrita dos saldos. Cada operação roda em uma
// transação com a linha da conta travada.
type Service struct {
	store      store.Store
	processors map[string]payment.Processor
	log        *zap.Logger

	// OnResult é chamado ao fim de cada operação (métricas)
	OnResult func(op string, success bool)
}

func NewService(st store.Store, log *zap.Logger, processors ...payment.Processor) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	m := make(map[string]payment.Processor, len(processors))
	for _, p := range processors {
		m[p.Name()] = p
	}
	return &Service{store: st, processors: m, log: log}
}

// run executa op em uma transação; recusa desfaz e vira Result, erro sobe
func (s *Service) run(ctx context.Context, name string, op func(tx store.Tx) (Result, error)) (Result, error) {
	var res Result
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		r, err := op(tx)
		res = r
		if err != nil {
			return err
		}
		if !r.Success {
			return errRejected
		}
		return nil
	})
	if errors.Is(err, errRejected) {
		err = nil
	}
	if s.OnResult != nil {
		s.OnResult(name, err == nil && res.Success)
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) lockAccount(ctx context.Context, tx store.Tx, userID string) (*store.Account, error) {
	acc, err := tx.AccountByUser(ctx, userID, true)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return acc, err
}

// withAccount trava a conta e traduz conta inexistente em recusa
func (s *Service) withAccount(ctx context.Context, tx store.Tx, userID string, fn func(acc *store.Account) (Result, error)) (Result, error) {
	acc, err := s.lockAccount(ctx, tx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return reject("Account not found"), nil
	}
	if err != nil {
		return Result{}, err
	}
	return fn(acc)
}

// wholeCents: o banco guarda NUMERIC(14,2)
func wholeCents(d decimal.Decimal) bool { return d.Equal(d.Round(2)) }

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func mergeMeta(base map[string]string, extra map[string]string) map[string]string {
	out := maps.Clone(base)
	if out == nil {
		out = map[string]string{}
	}
	maps.Copy(out, extra)
	return out
}

// apply grava os novos saldos e o lançamento correspondente
func (s *Service) apply(ctx context.Context, tx store.Tx, acc *store.Account, before decimal.Decimal, e *store.LedgerEntry) error {
	if acc.AvailableBalance.IsNegative() || acc.LockedBalance.IsNegative() {
		return fmt.Errorf("ledger: negative balance on account %s", acc.ID)
	}
	if err := tx.UpdateAccountBalances(ctx, acc); err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	e.AccountID = acc.ID
	e.BalanceBefore = before
	e.BalanceAfter = acc.AvailableBalance
	if err := tx.InsertEntry(ctx, e); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func success(acc *store.Account, e *store.LedgerEntry, msg string) Result {
	return Result{
		Success:   true,
		Message:   msg,
		Entry:     e,
		Available: acc.AvailableBalance,
		Locked:    acc.LockedBalance,
	}
}

// ---------- contas ----------

// OpenAccount cria a conta (única) do usuário com saldos zerados
func (s *Service) OpenAccount(ctx context.Context, userID, currency, processor string) (Result, error) {
	return s.run(ctx, "open_account", func(tx store.Tx) (Result, error) {
		if userID == "" {
			return reject("User id is required"), nil
		}
		proc, ok := s.processors[processor]
		if !ok {
			return reject("Unknown payment processor %s", processor), nil
		}
		if currency == "" {
			currency = "USD"
		}
		acc := &store.Account{
			UserID:           userID,
			Currency:         currency,
			PaymentProcessor: processor,
		}
		err := tx.InsertAccount(ctx, acc)
		if errors.Is(err, store.ErrConflict) {
			return reject("Account already exists"), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("insert account: %w", err)
		}
		if proc.Supports(payment.FeatureCustomerCreation) {
			resp, err := proc.CreateCustomer(ctx, userID, currency)
			if err != nil {
				return Result{}, err
			}
			if !resp.Success {
				return reject("Payment account setup failed: %s", resp.Message), nil
			}
		}
		return Result{Success: true, Message: "Account opened", Available: acc.AvailableBalance, Locked: acc.LockedBalance}, nil
	})
}

// CloseAccount remove a conta e seus lançamentos; recusado com apostas abertas
func (s *Service) CloseAccount(ctx context.Context, userID string) (Result, error) {
	return s.run(ctx, "close_account", func(tx store.Tx) (Result, error) {
		return s.withAccount(ctx, tx, userID, func(acc *store.Account) (Result, error) {
			if acc.LockedBalance.IsPositive() {
				return reject("Cannot close account with locked funds"), nil
			}
			if err := tx.DeleteAccount(ctx, acc.ID); err != nil {
				return Result{}, fmt.Errorf("delete account: %w", err)
			}
			return Result{Success: true, Message: "Account closed", Available: acc.AvailableBalance}, nil
		})
	})
}

func (s *Service) Account(ctx context.Context, userID string) (*store.Account, error) {
	var acc *store.Account
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		a, err := tx.AccountByUser(ctx, userID, false)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		acc = a
		return err
	})
	return acc, err
}

// ---------- depósito / saque ----------

func (s *Service) Deposit(ctx context.Context, userID string, amount decimal.Decimal, metadata map[string]string) (Result, error) {
	var charged Result
	var proc payment.Processor
	res, err := s.run(ctx, "deposit", func(tx store.Tx) (Result, error) {
		r, p, err := s.deposit(ctx, tx, userID, amount, metadata)
		charged, proc = r, p
		return r, err
	})
	if err != nil && charged.PaymentTransactionID != "" && proc != nil {
		s.compensateCharge(ctx, proc, charged.PaymentTransactionID, amount, err)
	}
	return res, err
}

// DepositTx roda o depósito em uma transação aberta. Se a transação falhar depois
// da cobrança, cabe ao chamador estornar Result.PaymentTransactionID.
func (s *Service) DepositTx(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal, metadata map[string]string) (Result, error) {
	r, _, err := s.deposit(ctx, tx, userID, amount, metadata)
	return r, err
}

func (s *Service) deposit(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal, metadata map[string]string) (Result, payment.Processor, error) {
	if amount.LessThan(MinDeposit) {
		return reject("Deposit amount must be at least $%s", money(MinDeposit)), nil, nil
	}
	if amount.GreaterThan(MaxTransaction) {
		return reject("Deposit amount cannot exceed $%s", money(MaxTransaction)), nil, nil
	}
	if !wholeCents(amount) {
		return reject("Amount must be in whole cents"), nil, nil
	}

	acc, err := s.lockAccount(ctx, tx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return reject("Account not found"), nil, nil
	}
	if err != nil {
		return Result{}, nil, err
	}
	proc, ok := s.processors[acc.PaymentProcessor]
	if !ok {
		return reject("Payment processor %s is not available", acc.PaymentProcessor), nil, nil
	}

	meta := mergeMeta(metadata, map[string]string{"account_id": acc.ID, "user_id": userID})
	resp, err := proc.Charge(ctx, payment.Request{CustomerID: userID, Amount: amount, Currency: acc.Currency, Metadata: meta})
	if err != nil {
		return Result{}, proc, fmt.Errorf("charge: %w", err)
	}
	if !resp.Success {
		return reject("Payment failed: %s", resp.Message), proc, nil
	}

	before := acc.AvailableBalance
	acc.AvailableBalance = acc.AvailableBalance.Add(amount)
	e := &store.LedgerEntry{
		Type:                 store.EntryDeposit,
		Amount:               amount,
		PaymentTransactionID: resp.TransactionID,
		Description:          fmt.Sprintf("Deposit of %s %s", money(amount), acc.Currency),
		Metadata:             maps.Clone(metadata),
	}
	if err := s.apply(ctx, tx, acc, before, e); err != nil {
		return Result{PaymentTransactionID: resp.TransactionID}, proc, err
	}

	r := success(acc, e, fmt.Sprintf("Successfully deposited %s %s", money(amount), acc.Currency))
	r.PaymentTransactionID = resp.TransactionID
	return r, proc, nil
}

// compensateCharge estorna uma cobrança cujo lançamento não foi gravado
func (s *Service) compensateCharge(ctx context.Context, proc payment.Processor, txID string, amount decimal.Decimal, cause error) {
	resp, err := proc.Refund(context.WithoutCancel(ctx), txID, decimal.NewNullDecimal(amount))
	switch {
	case err != nil:
		s.log.Error("deposit compensation failed", zap.String("paymentTx", txID), zap.NamedError("cause", cause), zap.Error(err))
	case !resp.Success:
		s.log.Error("deposit compensation rejected", zap.String("paymentTx", txID), zap.NamedError("cause", cause), zap.String("reason", resp.Message))
	default:
		s.log.Warn("deposit charge refunded after ledger failure", zap.String("paymentTx", txID), zap.String("refundTx", resp.TransactionID), zap.NamedError("cause", cause))
	}
}

func (s *Service) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, metadata map[string]string) (Result, error) {
	var paid Result
	res, err := s.run(ctx, "withdraw", func(tx store.Tx) (Result, error) {
		r, err := s.WithdrawTx(ctx, tx, userID, amount, metadata)
		paid = r
		return r, err
	})
	if err != nil && paid.PaymentTransactionID != "" {
		// o pagamento saiu mas o ledger não registrou: precisa de conciliação manual
		s.log.Error("withdrawal paid out without ledger entry",
			zap.String("userId", userID), zap.String("paymentTx", paid.PaymentTransactionID),
			zap.String("amount", money(amount)), zap.Error(err))
	}
	return res, err
}

func (s *Service) WithdrawTx(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal, metadata map[string]string) (Result, error) {
	if amount.LessThan(MinWithdrawal) {
		return reject("Withdrawal amount must be at least $%s", money(MinWithdrawal)), nil
	}
	if amount.GreaterThan(MaxTransaction) {
		return reject("Withdrawal amount cannot exceed $%s", money(MaxTransaction)), nil
	}
	if !wholeCents(amount) {
		return reject("Amount must be in whole cents"), nil
	}

	return s.withAccount(ctx, tx, userID, func(acc *store.Account) (Result, error) {
		if acc.AvailableBalance.LessThan(amount) {
			return reject("Insufficient available balance"), nil
		}
		proc, ok := s.processors[acc.PaymentProcessor]
		if !ok {
			return reject("Payment processor %s is not available", acc.PaymentProcessor), nil
		}

		meta := mergeMeta(metadata, map[string]string{"account_id": acc.ID, "user_id": userID})
		resp, err := proc.Withdraw(ctx, payment.Request{CustomerID: userID, Amount: amount, Currency: acc.Currency, Metadata: meta})
		if err != nil {
			return Result{}, fmt.Errorf("withdraw: %w", err)
		}
		if !resp.Success {
			return reject("Withdrawal failed: %s", resp.Message), nil
		}

		before := acc.AvailableBalance
		acc.AvailableBalance = acc.AvailableBalance.Sub(amount)
		e := &store.LedgerEntry{
			Type:                 store.EntryWithdrawal,
			Amount:               amount,
			PaymentTransactionID: resp.TransactionID,
			Description:          fmt.Sprintf("Withdrawal of %s %s", money(amount), acc.Currency),
			Metadata:             maps.Clone(metadata),
		}
		if err := s.apply(ctx, tx, acc, before, e); err != nil {
			return Result{PaymentTransactionID: resp.TransactionID}, err
		}

		r := success(acc, e, fmt.Sprintf("Successfully withdrew %s %s", money(amount), acc.Currency))
		r.PaymentTransactionID = resp.TransactionID
		return r, nil
	})
}

// ---------- apostas ----------

func (s *Service) LockFundsForBet(ctx context.Context, userID string, amount decimal.Decimal, betRef string, metadata map[string]string) (Result, error) {
	return s.run(ctx, "lock_funds", func(tx store.Tx) (Result, error) {
		return s.LockFundsForBetTx(ctx, tx, userID, amount, betRef, metadata)
	})
}

// LockFundsForBetTx move amount de disponível para travado
func (s *Service) LockFundsForBetTx(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal, betRef string, metadata map[string]string) (Result, error) {
	if !amount.IsPositive() {
		return reject("Bet amount must be positive"), nil
	}
	if !wholeCents(amount) {
		return reject("Amount must be in whole cents"), nil
	}
	return s.withAccount(ctx, tx, userID, func(acc *store.Account) (Result, error) {
		if acc.AvailableBalance.LessThan(amount) {
			return reject("Insufficient available balance to place bet"), nil
		}
		before := acc.AvailableBalance
		acc.AvailableBalance = acc.AvailableBalance.Sub(amount)
		acc.LockedBalance = acc.LockedBalance.Add(amount)
		e := &store.LedgerEntry{
			Type:        store.EntryBetPlaced,
			Amount:      amount,
			ReferenceID: betRef,
			Description: fmt.Sprintf("Locked %s %s for bet #%s", money(amount), acc.Currency, betRef),
			Metadata:    maps.Clone(metadata),
		}
		if err := s.apply(ctx, tx, acc, before, e); err != nil {
			return Result{}, err
		}
		return success(acc, e, fmt.Sprintf("Successfully locked %s %s for bet", money(amount), acc.Currency)), nil
	})
}

func (s *Service) SettleBetWin(ctx context.Context, userID, betRef string, original, payout decimal.Decimal) (Result, error) {
	return s.run(ctx, "settle_win", func(tx store.Tx) (Result, error) {
		return s.SettleBetWinTx(ctx, tx, userID, betRef, original, payout)
	})
}

// SettleBetWinTx libera o valor travado e credita o pagamento total
func (s *Service) SettleBetWinTx(ctx context.Context, tx store.Tx, userID, betRef string, original, payout decimal.Decimal) (Result, error) {
	if !payout.IsPositive() {
		return reject("Invalid payout amount"), nil
	}
	if !original.IsPositive() {
		return reject("Invalid bet amount"), nil
	}
	return s.withAccount(ctx, tx, userID, func(acc *store.Account) (Result, error) {
		if acc.LockedBalance.LessThan(original) {
			return reject("Insufficient locked balance"), nil
		}
		profit := payout.Sub(original)
		before := acc.AvailableBalance
		acc.LockedBalance = acc.LockedBalance.Sub(original)
		acc.AvailableBalance = acc.AvailableBalance.Add(payout)
		e := &store.LedgerEntry{
			Type:        store.EntryBetWon,
			Amount:      payout,
			ReferenceID: betRef,
			Description: fmt.Sprintf("Won bet #%s: %s %s (profit: %s %s)", betRef, money(payout), acc.Currency, money(profit), acc.Currency),
			Metadata:    map[string]string{"bet_amount": money(original), "profit": money(profit)},
		}
		if err := s.apply(ctx, tx, acc, before, e); err != nil {
			return Result{}, err
		}
		r := success(acc, e, fmt.Sprintf("Bet won! Credited %s %s", money(payout), acc.Currency))
		r.Profit = profit
		return r, nil
	})
}

func (s *Service) SettleBetLoss(ctx context.Context, userID, betRef string, original decimal.Decimal) (Result, error) {
	return s.run(ctx, "settle_loss", func(tx store.Tx) (Result, error) {
		return s.SettleBetLossTx(ctx, tx, userID, betRef, original)
	})
}

// SettleBetLossTx baixa o valor travado; o disponível não muda
func (s *Service) SettleBetLossTx(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal) (Result, error) {
	if !original.IsPositive() {
		return reject("Invalid bet amount"), nil
	}
	return s.withAccount(ctx, tx, userID, func(acc *store.Account) (Result, error) {
		if acc.LockedBalance.LessThan(original) {
			return reject("Insufficient locked balance"), nil
		}
		before := acc.AvailableBalance
		acc.LockedBalance = acc.LockedBalance.Sub(original)
		e := &store.LedgerEntry{
			Type:        store.EntryBetLost,
			Amount:      original,
			ReferenceID: betRef,
			Description: fmt.Sprintf("Lost bet #%s: %s %s", betRef, money(original), acc.Currency),
		}
		if err := s.apply(ctx, tx, acc, before, e); err != nil {
			return Result{}, err
		}
		return success(acc, e, fmt.Sprintf("Bet lost. %s %s deducted", money(original), acc.Currency)), nil
	})
}

func (s *Service) CancelBet(ctx context.Context, userID, betRef string, original decimal.Decimal) (Result, error) {
	return s.run(ctx, "cancel_bet", func(tx store.Tx) (Result, error) {
		return s.CancelBetTx(ctx, tx, userID, betRef, original)
	})
}

func (s *Service) CancelBetTx(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal) (Result, error) {
	return s.unlock(ctx, tx, userID, betRef, original, store.EntryBetCanceled)
}

func (s *Service) SettleBetPush(ctx context.Context, userID, betRef string, original decimal.Decimal) (Result, error) {
	return s.run(ctx, "settle_push", func(tx store.Tx) (Result, error) {
		return s.SettleBetPushTx(ctx, tx, userID, betRef, original)
	})
}

func (s *Service) SettleBetPushTx(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal) (Result, error) {
	return s.unlock(ctx, tx, userID, betRef, original, store.EntryBetPush)
}

// unlock devolve o valor travado ao disponível (cancelamento e push)
func (s *Service) unlock(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal, typ store.EntryType) (Result, error) {
	if !original.IsPositive() {
		return reject("Invalid bet amount"), nil
	}
	return s.withAccount(ctx, tx, userID, func(acc *store.Account) (Result, error) {
		if acc.LockedBalance.LessThan(original) {
			return reject("Insufficient locked balance"), nil
		}
		before := acc.AvailableBalance
		acc.LockedBalance = acc.LockedBalance.Sub(original)
		acc.AvailableBalance = acc.AvailableBalance.Add(original)

		e := &store.LedgerEntry{Type: typ, Amount: original, ReferenceID: betRef}
		var msg string
		if typ == store.EntryBetPush {
			e.Description = fmt.Sprintf("Bet #%s pushed: %s %s returned", betRef, money(original), acc.Currency)
			msg = fmt.Sprintf("Bet pushed. %s %s returned", money(original), acc.Currency)
		} else {
			e.Description = fmt.Sprintf("Canceled bet #%s: %s %s returned", betRef, money(original), acc.Currency)
			msg = fmt.Sprintf("Bet canceled. %s %s returned to available balance", money(original), acc.Currency)
		}
		if err := s.apply(ctx, tx, acc, before, e); err != nil {
			return Result{}, err
		}
		return success(acc, e, msg), nil
	})
}

// ---------- consultas ----------

// ClampLimit aplica o padrão e os limites do histórico
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

// TransactionHistory devolve os lançamentos mais recentes primeiro
func (s *Service) TransactionHistory(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error) {
	var out []store.LedgerEntry
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		acc, err := tx.AccountByUser(ctx, userID, false)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		out, err = tx.ListEntries(ctx, acc.ID, ClampLimit(limit))
		return err
	})
	return out, err
}

func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		acc, err := tx.AccountByUser(ctx, userID, false)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		sum, err := tx.SummarizeEntries(ctx, acc.ID)
		if err != nil {
			return err
		}
		st = Stats{
			AvailableBalance: acc.AvailableBalance,
			LockedBalance:    acc.LockedBalance,
			TotalBalance:     acc.TotalBalance(),
			Currency:         acc.Currency,
			TotalDeposits:    sum[store.EntryDeposit].Total,
			TotalWithdrawals: sum[store.EntryWithdrawal].Total,
			BetsPlaced:       sum[store.EntryBetPlaced].Count,
			BetsWon:          sum[store.EntryBetWon].Count,
			BetsLost:         sum[store.EntryBetLost].Count,
			BetsPush:         sum[store.EntryBetPush].Count,
			BetsCanceled:     sum[store.EntryBetCanceled].Count,
			NetProfit:        sum[store.EntryBetWon].Total.Sub(sum[store.EntryBetLost].Total),
		}
		return nil
	})
	return st, err
}
