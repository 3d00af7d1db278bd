package betting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
	"github.com/radieske/sports-bankroll-platform/internal/wallet-service/ledger"
	"github.com/radieske/sports-bankroll-platform/pkg/contracts/events"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var ErrBetNotFound = errors.New("bet not found")

var errRejected = errors.New("betting: rejected")

// Ledger são as operações da banca compostas na transação da aposta.
// *ledger.Service satisfaz esta interface.
type Ledger interface {
	LockFundsForBetTx(ctx context.Context, tx store.Tx, userID string, amount decimal.Decimal, betRef string, metadata map[string]string) (ledger.Result, error)
	SettleBetWinTx(ctx context.Context, tx store.Tx, userID, betRef string, original, payout decimal.Decimal) (ledger.Result, error)
	SettleBetLossTx(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal) (ledger.Result, error)
	SettleBetPushTx(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal) (ledger.Result, error)
	CancelBetTx(ctx context.Context, tx store.Tx, userID, betRef string, original decimal.Decimal) (ledger.Result, error)
}

// Publisher publica os eventos de aposta depois do commit
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
	PublishBetCanceled(ctx context.Context, e events.BetCanceled) error
}

type PlaceBetRequest struct {
	UserID    string
	GameID    string
	LineID    string
	Selection store.Selection
	Amount    decimal.Decimal
	// ExpectedOdds, se preenchido, precisa bater com a odd atual da linha
	ExpectedOdds decimal.NullDecimal
}

type Result struct {
	Success   bool
	Message   string
	Bet       *store.Bet
	Outcome   Outcome
	Available decimal.Decimal
	Locked    decimal.Decimal
}

func reject(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

type BetError struct {
	BetID string `json:"bet_id"`
	Error string `json:"error"`
}

// SettlementReport resume uma rodada do job de liquidação
type SettlementReport struct {
	Games   int        `json:"games"`
	Settled int        `json:"settled"`
	Won     int        `json:"won"`
	Lost    int        `json:"lost"`
	Push    int        `json:"push"`
	Skipped int        `json:"skipped"`
	Errors  []BetError `json:"errors,omitempty"`
}

type Service struct {
	store  store.Store
	ledger Ledger
	pub    Publisher
	log    *zap.Logger
	now    func() time.Time

	// callbacks de métricas
	OnPlaced  func(success bool)
	OnSettled func(outcome Outcome)
}

func NewService(st store.Store, l Ledger, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  st,
		ledger: l,
		pub:    pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock troca o relógio (testes)
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) run(ctx context.Context, op func(tx store.Tx) (Result, error)) (Result, error) {
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
		return res, nil
	}
	return res, err
}

// PlaceBet cria a aposta e trava o valor na banca na mesma transação.
// Qualquer recusa desfaz tudo: não existe aposta sem saldo travado.
func (s *Service) PlaceBet(ctx context.Context, req PlaceBetRequest) (Result, error) {
	res, err := s.run(ctx, func(tx store.Tx) (Result, error) {
		return s.placeBet(ctx, tx, req)
	})
	if s.OnPlaced != nil {
		s.OnPlaced(err == nil && res.Success)
	}
	if err != nil || !res.Success {
		return res, err
	}

	b := res.Bet
	s.publish(ctx, "bet_placed", b.ID, func(ctx context.Context) error {
		return s.pub.PublishBetPlaced(ctx, events.BetPlaced{
			BetID:           b.ID,
			UserID:          b.UserID,
			GameID:          b.GameID,
			LineID:          b.BettingLineID,
			LineType:        string(b.Metadata.LineType),
			Selection:       string(b.Selection),
			Amount:          b.Amount,
			Odds:            b.OddsAtPlacement,
			LineValue:       b.LineValueAtPlacement,
			PotentialPayout: b.PotentialPayout,
		})
	})
	return res, nil
}

func (s *Service) placeBet(ctx context.Context, tx store.Tx, req PlaceBetRequest) (Result, error) {
	if req.UserID == "" {
		return reject("User id is required"), nil
	}
	if req.Amount.LessThan(ledger.MinBetAmount) {
		return reject("Amount must be at least $%s", ledger.MinBetAmount.StringFixed(2)), nil
	}
	if !req.Selection.Valid() {
		return reject("Selection %q is not valid", req.Selection), nil
	}

	game, err := tx.GameByID(ctx, req.GameID)
	if errors.Is(err, store.ErrNotFound) {
		return reject("Game or betting line not found"), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load game: %w", err)
	}
	if game.Started(s.now()) {
		return reject("Cannot bet on game that has already started"), nil
	}

	line, err := tx.LineByID(ctx, req.LineID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && line.GameID != game.ID) {
		return reject("Game or betting line not found"), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load line: %w", err)
	}
	if !line.LineType.Accepts(req.Selection) {
		return reject("Selection %s is not valid for a %s line", req.Selection, line.LineType), nil
	}

	odds, lineValue := oddsFor(*line, req.Selection)
	if !odds.Valid {
		return reject("Odds are not available for this selection"), nil
	}
	if req.ExpectedOdds.Valid && !req.ExpectedOdds.Decimal.Equal(odds.Decimal) {
		return reject("Odds changed: current odds are %s", odds.Decimal.String()), nil
	}
	payout, err := PotentialPayout(req.Amount, odds.Decimal)
	if err != nil {
		s.log.Error("betting line with invalid odds", zap.String("lineId", line.ID), zap.Error(err))
		return reject("Invalid odds on betting line"), nil
	}

	meta, err := s.snapshot(ctx, tx, game, line.LineType)
	if err != nil {
		return Result{}, err
	}

	bet := &store.Bet{
		ID:                   uuid.NewString(),
		UserID:               req.UserID,
		GameID:               game.ID,
		BettingLineID:        line.ID,
		Selection:            req.Selection,
		Amount:               req.Amount,
		OddsAtPlacement:      odds.Decimal,
		LineValueAtPlacement: lineValue,
		PotentialPayout:      payout,
		Status:               store.BetPending,
		Metadata:             meta,
	}
	if err := tx.InsertBet(ctx, bet); err != nil {
		return Result{}, fmt.Errorf("insert bet: %w", err)
	}

	locked, err := s.ledger.LockFundsForBetTx(ctx, tx, req.UserID, req.Amount, bet.ID, map[string]string{
		"game_id":   game.ID,
		"selection": string(req.Selection),
	})
	if err != nil {
		return Result{}, err
	}
	if !locked.Success {
		return reject("%s", locked.Message), nil
	}
	return Result{
		Success:   true,
		Message:   "Bet placed successfully!",
		Bet:       bet,
		Available: locked.Available,
		Locked:    locked.Locked,
	}, nil
}

// snapshot copia os dados de exibição do jogo para a aposta
func (s *Service) snapshot(ctx context.Context, tx store.Tx, g *store.Game, lt store.LineType) (store.BetMetadata, error) {
	home, err := tx.TeamByID(ctx, g.HomeTeamID)
	if err != nil {
		return store.BetMetadata{}, fmt.Errorf("load home team: %w", err)
	}
	away, err := tx.TeamByID(ctx, g.AwayTeamID)
	if err != nil {
		return store.BetMetadata{}, fmt.Errorf("load away team: %w", err)
	}
	return store.BetMetadata{
		GameTime:     g.GameTime,
		Sport:        g.Sport,
		HomeTeam:     home.Name,
		AwayTeam:     away.Name,
		HomeTeamAbbr: home.Abbreviation,
		AwayTeamAbbr: away.Abbreviation,
		LineType:     lt,
	}, nil
}

// Cancel devolve o valor travado; só para apostas pendentes de jogos futuros
func (s *Service) Cancel(ctx context.Context, betID, userID string) (Result, error) {
	res, err := s.run(ctx, func(tx store.Tx) (Result, error) {
		bet, err := tx.BetByID(ctx, betID, true)
		if errors.Is(err, store.ErrNotFound) || (err == nil && bet.UserID != userID) {
			return reject("Bet not found"), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("load bet: %w", err)
		}
		if bet.Status != store.BetPending {
			return reject("Only pending bets can be canceled"), nil
		}
		game, err := tx.GameByID(ctx, bet.GameID)
		if err != nil {
			return Result{}, fmt.Errorf("load game: %w", err)
		}
		if game.Started(s.now()) {
			return reject("Cannot cancel a bet after the game has started"), nil
		}

		lr, err := s.ledger.CancelBetTx(ctx, tx, bet.UserID, bet.ID, bet.Amount)
		if err != nil {
			return Result{}, err
		}
		if !lr.Success {
			return reject("%s", lr.Message), nil
		}

		now := s.now()
		bet.Status = store.BetCanceled
		bet.SettledAt = &now
		bet.SettlementNotes = "Canceled by user - stake returned"
		if err := tx.UpdateBetSettlement(ctx, bet); err != nil {
			return Result{}, fmt.Errorf("update bet: %w", err)
		}
		return Result{Success: true, Message: lr.Message, Bet: bet, Available: lr.Available, Locked: lr.Locked}, nil
	})
	if err != nil || !res.Success {
		return res, err
	}

	b := res.Bet
	s.publish(ctx, "bet_canceled", b.ID, func(ctx context.Context) error {
		return s.pub.PublishBetCanceled(ctx, events.BetCanceled{
			BetID: b.ID, UserID: b.UserID, GameID: b.GameID, Amount: b.Amount, Ts: s.now(),
		})
	})
	return res, nil
}

func (s *Service) Bet(ctx context.Context, id string) (*store.Bet, error) {
	var bet *store.Bet
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		b, err := tx.BetByID(ctx, id, false)
		if errors.Is(err, store.ErrNotFound) {
			return ErrBetNotFound
		}
		bet = b
		return err
	})
	return bet, err
}

// UserBets lista as apostas do usuário, mais recentes primeiro
func (s *Service) UserBets(ctx context.Context, userID string, limit int) ([]store.Bet, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	var out []store.Bet
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListBetsByUser(ctx, userID, limit)
		return err
	})
	return out, err
}

// Settle liquida uma aposta pendente. Resultado indeterminado ou recusa do
// ledger deixam a aposta pendente para a próxima rodada (Success=false).
func (s *Service) Settle(ctx context.Context, betID string) (Result, error) {
	res, err := s.run(ctx, func(tx store.Tx) (Result, error) {
		bet, err := tx.BetByID(ctx, betID, true)
		if errors.Is(err, store.ErrNotFound) {
			return reject("Bet not found"), nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("load bet: %w", err)
		}
		if bet.Status.Terminal() {
			return reject("Bet is already %s", bet.Status), nil
		}
		game, err := tx.GameByID(ctx, bet.GameID)
		if err != nil {
			return Result{}, fmt.Errorf("load game: %w", err)
		}
		if bet.Metadata.LineType == "" {
			line, err := tx.LineByID(ctx, bet.BettingLineID)
			if err != nil {
				return Result{}, fmt.Errorf("load line: %w", err)
			}
			bet.Metadata.LineType = line.LineType
		}

		outcome := DetermineResult(*bet, *game)
		if outcome == OutcomeUndetermined {
			return reject("Result undetermined"), nil
		}
		return s.settle(ctx, tx, bet, outcome)
	})
	if err != nil || !res.Success {
		return res, err
	}

	if s.OnSettled != nil {
		s.OnSettled(res.Outcome)
	}
	b := res.Bet
	s.publish(ctx, "bet_settled", b.ID, func(ctx context.Context) error {
		return s.pub.PublishBetSettled(ctx, events.BetSettled{
			BetID:  b.ID,
			UserID: b.UserID,
			GameID: b.GameID,
			Status: string(b.Status),
			Amount: b.Amount,
			Payout: b.ActualPayout.Decimal,
			Notes:  b.SettlementNotes,
			Ts:     s.now(),
		})
	})
	return res, nil
}

func (s *Service) settle(ctx context.Context, tx store.Tx, bet *store.Bet, outcome Outcome) (Result, error) {
	var (
		lr     ledger.Result
		err    error
		status store.BetStatus
		payout decimal.Decimal
		notes  string
	)
	switch outcome {
	case OutcomeWon:
		lr, err = s.ledger.SettleBetWinTx(ctx, tx, bet.UserID, bet.ID, bet.Amount, bet.PotentialPayout)
		status, payout = store.BetWon, bet.PotentialPayout
		notes = "Bet won - payout: " + payout.StringFixed(2)
	case OutcomeLost:
		lr, err = s.ledger.SettleBetLossTx(ctx, tx, bet.UserID, bet.ID, bet.Amount)
		status, payout = store.BetLost, decimal.Zero
		notes = "Bet lost"
	case OutcomePush:
		lr, err = s.ledger.SettleBetPushTx(ctx, tx, bet.UserID, bet.ID, bet.Amount)
		status, payout = store.BetPush, bet.Amount
		notes = "Push - stake returned"
	default:
		return reject("Result undetermined"), nil
	}
	if err != nil {
		return Result{}, err
	}
	if !lr.Success {
		return Result{Success: false, Message: lr.Message, Outcome: outcome}, nil
	}

	now := s.now()
	bet.Status = status
	bet.ActualPayout = decimal.NewNullDecimal(payout)
	bet.SettledAt = &now
	bet.SettlementNotes = notes
	if err := tx.UpdateBetSettlement(ctx, bet); err != nil {
		return Result{}, fmt.Errorf("update bet: %w", err)
	}
	return Result{Success: true, Message: notes, Bet: bet, Outcome: outcome, Available: lr.Available, Locked: lr.Locked}, nil
}

// SettleBets liquida as apostas pendentes de todos os jogos concluídos.
// Cada aposta é independente: falha em uma não interrompe as demais.
func (s *Service) SettleBets(ctx context.Context) (SettlementReport, error) {
	var rep SettlementReport
	var games []store.Game
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		games, err = tx.ListSettleableGames(ctx)
		return err
	})
	if err != nil {
		return rep, fmt.Errorf("list settleable games: %w", err)
	}
	rep.Games = len(games)
	s.log.Info("settlement: completed games with pending bets", zap.Int("games", len(games)))

	for _, g := range games {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		var bets []store.Bet
		err := s.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			bets, err = tx.ListPendingBetsByGame(ctx, g.ID)
			return err
		})
		if err != nil {
			s.log.Error("settlement: list pending bets", zap.String("gameId", g.ID), zap.Error(err))
			rep.Errors = append(rep.Errors, BetError{Error: fmt.Sprintf("game %s: %v", g.ID, err)})
			continue
		}

		for _, b := range bets {
			res, err := s.settleOne(ctx, b.ID)
			switch {
			case err != nil:
				s.log.Error("settlement: failed to settle bet", zap.String("betId", b.ID), zap.Error(err))
				rep.Errors = append(rep.Errors, BetError{BetID: b.ID, Error: err.Error()})
			case !res.Success:
				s.log.Warn("settlement: bet left pending", zap.String("betId", b.ID), zap.String("reason", res.Message))
				rep.Skipped++
			default:
				rep.Settled++
				switch res.Outcome {
				case OutcomeWon:
					rep.Won++
				case OutcomeLost:
					rep.Lost++
				case OutcomePush:
					rep.Push++
				}
				s.log.Info("settlement: bet settled", zap.String("betId", b.ID), zap.String("status", string(res.Bet.Status)))
			}
		}
	}
	return rep, nil
}

// settleOne isola panics de uma aposta do restante do lote
func (s *Service) settleOne(ctx context.Context, betID string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic settling bet: %v", r)
		}
	}()
	return s.Settle(ctx, betID)
}

// publish: falha de publicação só gera log, a transação já foi confirmada
func (s *Service) publish(ctx context.Context, kind, betID string, fn func(ctx context.Context) error) {
	if s.pub == nil {
		return
	}
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("publish event failed", zap.String("event", kind), zap.String("betId", betID), zap.Error(err))
	}
}
