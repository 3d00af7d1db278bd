package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Saldos ficam em centavos inteiros para o Lua não fazer conta em float
var (
	findOrCreateScript = redis.NewScript(`
redis.call('HSETNX', KEYS[1], 'balance_cents', ARGV[1])
redis.call('HSETNX', KEYS[1], 'currency', ARGV[2])
return redis.call('HMGET', KEYS[1], 'balance_cents', 'currency')
`)

	debitScript = redis.NewScript(`
local bal = redis.call('HGET', KEYS[1], 'balance_cents')
if not bal then return {-1, 0} end
bal = tonumber(bal)
local amt = tonumber(ARGV[1])
if bal < amt then return {-2, bal} end
bal = redis.call('HINCRBY', KEYS[1], 'balance_cents', -amt)
redis.call('HSET', KEYS[2], 'customer_id', ARGV[2], 'type', ARGV[3], 'amount_cents', ARGV[1],
  'currency', ARGV[4], 'original_id', ARGV[5], 'metadata', ARGV[6], 'created_at', ARGV[7])
return {0, bal}
`)

	creditScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {-1, 0} end
local amt = tonumber(ARGV[1])
local cap = tonumber(ARGV[8])
if cap >= 0 then
  local done = tonumber(redis.call('GET', KEYS[3]) or '0')
  if done + amt > cap then
    return {-3, tonumber(redis.call('HGET', KEYS[1], 'balance_cents'))}
  end
  redis.call('INCRBY', KEYS[3], amt)
end
local bal = redis.call('HINCRBY', KEYS[1], 'balance_cents', amt)
redis.call('HSET', KEYS[2], 'customer_id', ARGV[2], 'type', ARGV[3], 'amount_cents', ARGV[1],
  'currency', ARGV[4], 'original_id', ARGV[5], 'metadata', ARGV[6], 'created_at', ARGV[7])
return {0, bal}
`)
)

// códigos de retorno dos scripts
const (
	codeOK           = 0
	codeNoAccount    = -1
	codeInsufficient = -2
	codeOverRefund   = -3
)

// RedisAccounts guarda contas de papel no Redis
type RedisAccounts struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisAccounts(rdb *redis.Client) *RedisAccounts {
	return &RedisAccounts{rdb: rdb, prefix: "paper:"}
}

func (r *RedisAccounts) accountKey(customerID string) string { return r.prefix + "acct:" + customerID }
func (r *RedisAccounts) txKey(id string) string              { return r.prefix + "tx:" + id }
func (r *RedisAccounts) refundedKey(id string) string        { return r.prefix + "refunded:" + id }

func toCents(d decimal.Decimal) int64 { return d.Shift(2).Round(0).IntPart() }

func fromCents(c int64) decimal.Decimal { return decimal.New(c, -2) }

func (r *RedisAccounts) FindOrCreate(ctx context.Context, customerID string, starting decimal.Decimal, currency string) (PaperAccount, error) {
	vals, err := findOrCreateScript.Run(ctx, r.rdb,
		[]string{r.accountKey(customerID)}, toCents(starting), currency).Slice()
	if err != nil {
		return PaperAccount{}, fmt.Errorf("paper find-or-create: %w", err)
	}
	if len(vals) != 2 {
		return PaperAccount{}, fmt.Errorf("paper find-or-create: unexpected reply %v", vals)
	}
	cents, err := strconv.ParseInt(fmt.Sprint(vals[0]), 10, 64)
	if err != nil {
		return PaperAccount{}, fmt.Errorf("paper balance: %w", err)
	}
	return PaperAccount{CustomerID: customerID, Balance: fromCents(cents), Currency: fmt.Sprint(vals[1])}, nil
}

func (r *RedisAccounts) Find(ctx context.Context, customerID string) (PaperAccount, error) {
	m, err := r.rdb.HGetAll(ctx, r.accountKey(customerID)).Result()
	if err != nil {
		return PaperAccount{}, err
	}
	if len(m) == 0 {
		return PaperAccount{}, ErrPaperAccountNotFound
	}
	cents, err := strconv.ParseInt(m["balance_cents"], 10, 64)
	if err != nil {
		return PaperAccount{}, fmt.Errorf("paper balance: %w", err)
	}
	return PaperAccount{CustomerID: customerID, Balance: fromCents(cents), Currency: m["currency"]}, nil
}

func txArgs(t PaperTransaction) ([]any, error) {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, err
	}
	return []any{
		toCents(t.Amount), t.CustomerID, t.Type, t.Currency, t.OriginalID,
		string(meta), t.CreatedAt.Format(time.RFC3339Nano),
	}, nil
}

func (r *RedisAccounts) Debit(ctx context.Context, t PaperTransaction) (PaperAccount, error) {
	args, err := txArgs(t)
	if err != nil {
		return PaperAccount{}, err
	}
	res, err := debitScript.Run(ctx, r.rdb,
		[]string{r.accountKey(t.CustomerID), r.txKey(t.ID)}, args...).Int64Slice()
	if err != nil {
		return PaperAccount{}, fmt.Errorf("paper debit: %w", err)
	}
	return r.result(t, res)
}

func (r *RedisAccounts) Credit(ctx context.Context, t PaperTransaction, refundCap decimal.NullDecimal) (PaperAccount, error) {
	args, err := txArgs(t)
	if err != nil {
		return PaperAccount{}, err
	}
	capCents := int64(-1)
	if refundCap.Valid {
		capCents = toCents(refundCap.Decimal)
	}
	args = append(args, capCents)
	res, err := creditScript.Run(ctx, r.rdb,
		[]string{r.accountKey(t.CustomerID), r.txKey(t.ID), r.refundedKey(t.OriginalID)}, args...).Int64Slice()
	if err != nil {
		return PaperAccount{}, fmt.Errorf("paper credit: %w", err)
	}
	return r.result(t, res)
}

func (r *RedisAccounts) result(t PaperTransaction, res []int64) (PaperAccount, error) {
	if len(res) != 2 {
		return PaperAccount{}, fmt.Errorf("paper script: unexpected reply %v", res)
	}
	acct := PaperAccount{CustomerID: t.CustomerID, Balance: fromCents(res[1]), Currency: t.Currency}
	switch res[0] {
	case codeOK:
		return acct, nil
	case codeNoAccount:
		return PaperAccount{}, ErrPaperAccountNotFound
	case codeInsufficient:
		return acct, ErrInsufficientFunds
	case codeOverRefund:
		return acct, ErrRefundExceedsCharge
	}
	return PaperAccount{}, fmt.Errorf("paper script: unknown code %d", res[0])
}

func (r *RedisAccounts) Transaction(ctx context.Context, id string) (PaperTransaction, error) {
	m, err := r.rdb.HGetAll(ctx, r.txKey(id)).Result()
	if err != nil {
		return PaperTransaction{}, err
	}
	if len(m) == 0 {
		return PaperTransaction{}, ErrTransactionNotFound
	}
	cents, err := strconv.ParseInt(m["amount_cents"], 10, 64)
	if err != nil {
		return PaperTransaction{}, fmt.Errorf("paper tx amount: %w", err)
	}
	t := PaperTransaction{
		ID:         id,
		CustomerID: m["customer_id"],
		Type:       m["type"],
		Amount:     fromCents(cents),
		Currency:   m["currency"],
		OriginalID: m["original_id"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, m["created_at"]); err == nil {
		t.CreatedAt = ts
	}
	if raw := m["metadata"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &t.Metadata); err != nil {
			return PaperTransaction{}, fmt.Errorf("paper tx metadata: %w", err)
		}
	}
	return t, nil
}
