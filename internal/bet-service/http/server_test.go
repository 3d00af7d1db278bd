package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/bet-service/betting"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

type mockBets struct{ mock.Mock }

func (m *mockBets) PlaceBet(ctx context.Context, req betting.PlaceBetRequest) (betting.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(betting.Result), args.Error(1)
}

func (m *mockBets) Cancel(ctx context.Context, betID, userID string) (betting.Result, error) {
	args := m.Called(ctx, betID, userID)
	return args.Get(0).(betting.Result), args.Error(1)
}

func (m *mockBets) Bet(ctx context.Context, id string) (*store.Bet, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*store.Bet)
	return b, args.Error(1)
}

func (m *mockBets) UserBets(ctx context.Context, userID string, limit int) ([]store.Bet, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]store.Bet), args.Error(1)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestPlaceBet_MapsRequest(t *testing.T) {
	m := &mockBets{}
	h := NewServer(zap.NewNop(), m).Router()

	bet := &store.Bet{ID: "b1", Selection: store.SelectionHome, Status: store.BetPending, Amount: decimal.NewFromInt(25)}
	m.On("PlaceBet", mock.Anything, mock.MatchedBy(func(r betting.PlaceBetRequest) bool {
		return r.UserID == "u1" && r.Selection == store.SelectionHome &&
			r.Amount.Equal(decimal.NewFromInt(25)) && r.ExpectedOdds.Valid
	})).Return(betting.Result{Success: true, Message: "Bet placed successfully!", Bet: bet}, nil).Once()

	rec := serve(h, http.MethodPost, "/v1/bets",
		`{"userId":"u1","gameId":"g1","bettingLineId":"l1","selection":"home","amount":"25","expected_odds":-150}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "b1", body["bet"].(map[string]any)["betId"])
	m.AssertExpectations(t)
}

func TestPlaceBet_ValidationAndRejection(t *testing.T) {
	m := &mockBets{}
	h := NewServer(zap.NewNop(), m).Router()

	rec := serve(h, http.MethodPost, "/v1/bets", `{"userId":"u1","gameId":"g1","bettingLineId":"l1","selection":"draw","amount":"25"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.AssertNotCalled(t, "PlaceBet", mock.Anything, mock.Anything)

	m.On("PlaceBet", mock.Anything, mock.Anything).
		Return(betting.Result{Success: false, Message: "Insufficient available balance to place bet"}, nil).Once()
	rec = serve(h, http.MethodPost, "/v1/bets", `{"userId":"u1","gameId":"g1","bettingLineId":"l1","selection":"away","amount":"25"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Insufficient available balance")
}

func TestGetBetAndCancel(t *testing.T) {
	m := &mockBets{}
	h := NewServer(zap.NewNop(), m).Router()

	m.On("Bet", mock.Anything, "missing").Return(nil, betting.ErrBetNotFound).Once()
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/v1/bets/missing", "").Code)

	m.On("Cancel", mock.Anything, "b1", "u1").Return(betting.Result{Success: true, Message: "ok"}, nil).Once()
	assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/v1/bets/b1/cancel", `{"userId":"u1"}`).Code)

	m.On("UserBets", mock.Anything, "u1", 5).Return([]store.Bet{{ID: "b1"}}, nil).Once()
	rec := serve(h, http.MethodGet, "/v1/users/u1/bets?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
	m.AssertExpectations(t)
}
