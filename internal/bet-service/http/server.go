package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/bet-service/betting"
	"github.com/radieske/sports-bankroll-platform/internal/bet-service/dto"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

type Bets interface {
	PlaceBet(ctx context.Context, req betting.PlaceBetRequest) (betting.Result, error)
	Cancel(ctx context.Context, betID, userID string) (betting.Result, error)
	Bet(ctx context.Context, id string) (*store.Bet, error)
	UserBets(ctx context.Context, userID string, limit int) ([]store.Bet, error)
}

type Server struct {
	log  *zap.Logger
	bets Bets
}

func NewServer(log *zap.Logger, bets Bets) *Server {
	return &Server{log: log, bets: bets}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/bets/{id}", s.getBet)
	r.Post("/v1/bets/{id}/cancel", s.cancelBet)
	r.Get("/v1/users/{userId}/bets", s.userBets) // ?limit=
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.bets.PlaceBet(r.Context(), betting.PlaceBetRequest{
		UserID:       req.UserID,
		GameID:       req.GameID,
		LineID:       req.LineID,
		Selection:    store.Selection(req.Selection),
		Amount:       req.Amount,
		ExpectedOdds: req.ExpectedOdds,
	})
	s.writeResult(w, "place bet", res, err, http.StatusCreated)
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelBetRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.bets.Cancel(r.Context(), chi.URLParam(r, "id"), req.UserID)
	s.writeResult(w, "cancel bet", res, err, http.StatusOK)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := s.bets.Bet(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, betting.ErrBetNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		s.internal(w, "get bet", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewBetResponse(b))
}

func (s *Server) userBets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	bets, err := s.bets.UserBets(r.Context(), chi.URLParam(r, "userId"), limit)
	if err != nil {
		s.internal(w, "list bets", err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, dto.NewBetResponse(&bets[i]))
	}
	writeJSON(w, http.StatusOK, out)
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

func (s *Server) writeResult(w http.ResponseWriter, op string, res betting.Result, err error, okStatus int) {
	if err != nil {
		s.internal(w, op, err)
		return
	}
	status := okStatus
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, dto.NewOperationResponse(res))
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
