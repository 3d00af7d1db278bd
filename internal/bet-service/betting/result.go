package betting

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

// ErrZeroOdds indica linha corrompida: odds americanas nunca são zero
var ErrZeroOdds = errors.New("odds cannot be zero")

type Outcome string

const (
	OutcomeUndetermined Outcome = ""
	OutcomeWon          Outcome = "won"
	OutcomeLost         Outcome = "lost"
	OutcomePush         Outcome = "push"
)

var hundred = decimal.NewFromInt(100)

// PotentialPayout devolve stake + lucro para odds americanas, em centavos.
// +130 paga 130 a cada 100; -150 paga 100 a cada 150.
func PotentialPayout(amount, odds decimal.Decimal) (decimal.Decimal, error) {
	if odds.IsZero() {
		return decimal.Zero, ErrZeroOdds
	}
	var profit decimal.Decimal
	if odds.IsPositive() {
		profit = amount.Mul(odds).Div(hundred)
	} else {
		profit = amount.Mul(hundred).Div(odds.Abs())
	}
	return amount.Add(profit).Round(2), nil
}

// oddsFor escolhe o lado da linha correspondente à seleção
func oddsFor(l store.BettingLine, sel store.Selection) (odds, lineValue decimal.NullDecimal) {
	switch l.LineType {
	case store.LineMoneyline:
		if sel == store.SelectionHome {
			return l.HomeOdds, decimal.NullDecimal{}
		}
		return l.AwayOdds, decimal.NullDecimal{}
	case store.LineSpread:
		if sel == store.SelectionHome {
			return l.HomeOdds, l.Spread
		}
		return l.AwayOdds, l.Spread
	case store.LineOverUnder:
		if sel == store.SelectionOver {
			return l.OverOdds, l.Total
		}
		return l.UnderOdds, l.Total
	}
	return decimal.NullDecimal{}, decimal.NullDecimal{}
}

// DetermineResult avalia a aposta contra o placar final. Sem jogo concluído
// com os dois placares o resultado fica indeterminado.
func DetermineResult(b store.Bet, g store.Game) Outcome {
	if !g.Final() {
		return OutcomeUndetermined
	}
	home := decimal.NewFromInt(int64(*g.HomeScore))
	away := decimal.NewFromInt(int64(*g.AwayScore))

	switch b.Metadata.LineType {
	case store.LineMoneyline:
		if home.Equal(away) {
			return OutcomePush
		}
		winner := store.SelectionAway
		if home.GreaterThan(away) {
			winner = store.SelectionHome
		}
		return wonIf(b.Selection == winner)

	case store.LineSpread:
		if !b.LineValueAtPlacement.Valid {
			return OutcomeUndetermined
		}
		line := b.LineValueAtPlacement.Decimal
		adjusted, other := home.Add(line), away
		if b.Selection == store.SelectionAway {
			adjusted, other = away.Sub(line), home
		}
		if adjusted.Equal(other) {
			return OutcomePush
		}
		return wonIf(adjusted.GreaterThan(other))

	case store.LineOverUnder:
		if !b.LineValueAtPlacement.Valid {
			return OutcomeUndetermined
		}
		total, line := home.Add(away), b.LineValueAtPlacement.Decimal
		if total.Equal(line) {
			return OutcomePush
		}
		if b.Selection == store.SelectionOver {
			return wonIf(total.GreaterThan(line))
		}
		return wonIf(total.LessThan(line))
	}
	return OutcomeUndetermined
}

func wonIf(ok bool) Outcome {
	if ok {
		return OutcomeWon
	}
	return OutcomeLost
}
