package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/dto"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
)

// Ledger define as operações da banca usadas pelo handler HTTP
type Ledger interface {
	OpenAccount(ctx context.Context, userID, currency, processor string) (ledger.Result, error)
	CloseAccount(ctx context.Context, userID string) (ledger.Result, error)
	Account(ctx context.Context, userID string) (*store.Account, error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, metadata map[string]string) (ledger.Result, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal, metadata map[string]string) (ledger.Result, error)
	TransactionHistory(ctx context.Context, userID string, limit int) ([]store.LedgerEntry, error)
	Stats(ctx context.Context, userID string) (ledger.Stats, error)
}

// Server expõe endpoints HTTP da banca (wallet)
type Server struct {
	log              *zap.Logger
	ledger           Ledger
	defaultProcessor string
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, l Ledger, defaultProcessor string) *Server {
	return &Server{log: log, ledger: l, defaultProcessor: defaultProcessor}
}

// Router retorna o roteador com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/accounts", s.openAccount)
	r.Get("/v1/accounts/{userId}", s.getAccount)
	r.Delete("/v1/accounts/{userId}", s.closeAccount)
	r.Get("/v1/accounts/{userId}/transactions", s.history) // ?limit=
	r.Get("/v1/accounts/{userId}/stats", s.stats)
	r.Post("/v1/wallet/deposit", s.deposit)
	r.Post("/v1/wallet/withdraw", s.withdraw)
	return r
}

func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PaymentProcessor == "" {
		req.PaymentProcessor = s.defaultProcessor
	}
	res, err := s.ledger.OpenAccount(r.Context(), req.UserID, req.Currency, req.PaymentProcessor)
	s.writeResult(w, "open account", res, err, http.StatusCreated)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.ledger.Account(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeErr(w, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAccountResponse(acc))
}

func (s *Server) closeAccount(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.CloseAccount(r.Context(), chi.URLParam(r, "userId"))
	s.writeResult(w, "close account", res, err, http.StatusOK)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := s.ledger.TransactionHistory(r.Context(), chi.URLParam(r, "userId"), limit)
	if err != nil {
		s.writeErr(w, "history", err)
		return
	}
	out := make([]dto.EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NewEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Stats(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeErr(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewStatsResponse(st))
}

// deposit adiciona saldo via processador de pagamento
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.MoneyRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.ledger.Deposit(r.Context(), req.UserID, req.Amount, req.Metadata)
	s.writeResult(w, "deposit", res, err, http.StatusOK)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.MoneyRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.ledger.Withdraw(r.Context(), req.UserID, req.Amount, req.Metadata)
	s.writeResult(w, "withdraw", res, err, http.StatusOK)
}

type validatable interface{ Validate() error }

func decode(w http.ResponseWriter, r *http.Request, v validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// writeResult: recusa de negócio vira 422 com a mensagem do ledger
func (s *Server) writeResult(w http.ResponseWriter, op string, res ledger.Result, err error, okStatus int) {
	if err != nil {
		s.writeErr(w, op, err)
		return
	}
	status := okStatus
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, dto.NewOperationResponse(res))
}

func (s *Server) writeErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ledger.ErrAccountNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	s.log.Error(op+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
