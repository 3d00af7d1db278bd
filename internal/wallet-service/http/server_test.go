package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/payment"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	proc, err := payment.New(payment.Config{Name: payment.PaperTradingName, Accounts: payment.NewMemoryAccounts()})
	require.NoError(t, err)
	svc := ledger.NewService(store.NewMemory(), zap.NewNop(), proc)
	return NewServer(zap.NewNop(), svc, payment.PaperTradingName).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestWalletAPI_DepositFlow(t *testing.T) {
	h := newTestServer(t)

	rec, body := do(t, h, http.MethodPost, "/v1/accounts", `{"userId":"u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])

	rec, body = do(t, h, http.MethodPost, "/v1/wallet/deposit", `{"userId":"u1","amount":"50.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "50", body["available_balance"])

	rec, body = do(t, h, http.MethodPost, "/v1/wallet/deposit", `{"userId":"u1","amount":5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Deposit amount must be at least $10.00", body["message"])

	rec, body = do(t, h, http.MethodGet, "/v1/accounts/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50", body["total_balance"])

	rec, _ = do(t, h, http.MethodGet, "/v1/accounts/u1/transactions?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "deposit", entries[0]["type"])
}

func TestWalletAPI_Errors(t *testing.T) {
	h := newTestServer(t)

	rec, _ := do(t, h, http.MethodPost, "/v1/wallet/deposit", `{"amount":"50"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/v1/wallet/deposit", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/v1/accounts/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/v1/accounts/ghost/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/v1/accounts/u1/transactions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/v1/accounts", `{"userId":"u2","payment_processor":"stripe"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Unknown payment processor stripe", body["message"])
}
