package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/provider"
	"github.com/radieske/sports-bankroll-platform/internal/odds-ingest/resolver"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

// campos numéricos de uma linha
const (
	fieldHomeOdds  = "home_odds"
	fieldAwayOdds  = "away_odds"
	fieldSpread    = "spread"
	fieldOverOdds  = "over_odds"
	fieldUnderOdds = "under_odds"
	fieldTotal     = "total"
)

// quote são os valores de um mercado reportados por uma casa
type quote map[string]decimal.NullDecimal

// LineType mapeia a chave do mercado; ok=false para mercados ignorados
func LineType(marketKey string) (store.LineType, bool) {
	switch marketKey {
	case provider.MarketH2H:
		return store.LineMoneyline, true
	case provider.MarketSpreads:
		return store.LineSpread, true
	case provider.MarketTotals:
		return store.LineOverUnder, true
	}
	return "", false
}

// pickTeams acha o outcome de cada time; sem match cai no primeiro/último.
// ok=false quando os dois lados caem no mesmo outcome.
func pickTeams(outcomes []provider.Outcome, home, away store.Team) (h, a provider.Outcome, ok bool) {
	hi, ai := -1, -1
	for i, o := range outcomes {
		if hi < 0 && resolver.MatchesOutcome(home, o.Name) {
			hi = i
		}
		if ai < 0 && resolver.MatchesOutcome(away, o.Name) {
			ai = i
		}
	}
	if hi < 0 {
		hi = 0
	}
	if ai < 0 {
		ai = len(outcomes) - 1
	}
	return outcomes[hi], outcomes[ai], hi != ai
}

func pickTotals(outcomes []provider.Outcome) (over, under provider.Outcome, ok bool) {
	oi, ui := -1, -1
	for i, o := range outcomes {
		switch strings.ToLower(strings.TrimSpace(o.Name)) {
		case "over":
			if oi < 0 {
				oi = i
			}
		case "under":
			if ui < 0 {
				ui = i
			}
		}
	}
	if oi < 0 {
		oi = 0
	}
	if ui < 0 {
		ui = len(outcomes) - 1
	}
	return outcomes[oi], outcomes[ui], oi != ui
}

// parseMarket converte um mercado de uma casa; ok=false se não houver o que aproveitar
func parseMarket(m provider.Market, home, away store.Team) (quote, bool) {
	if len(m.Outcomes) == 0 {
		return nil, false
	}
	switch m.Key {
	case provider.MarketH2H:
		h, a, ok := pickTeams(m.Outcomes, home, away)
		if !ok {
			return nil, false
		}
		return quote{fieldHomeOdds: h.Price, fieldAwayOdds: a.Price}, true
	case provider.MarketSpreads:
		h, a, ok := pickTeams(m.Outcomes, home, away)
		if !ok {
			return nil, false
		}
		return quote{fieldSpread: h.Point, fieldHomeOdds: h.Price, fieldAwayOdds: a.Price}, true
	case provider.MarketTotals:
		o, u, ok := pickTotals(m.Outcomes)
		if !ok {
			return nil, false
		}
		return quote{fieldTotal: o.Point, fieldOverOdds: o.Price, fieldUnderOdds: u.Price}, true
	}
	return nil, false
}

// average faz a média campo a campo das casas que informaram o valor
func average(quotes []quote) quote {
	out := quote{}
	fields := map[string]struct{}{}
	for _, q := range quotes {
		for f := range q {
			fields[f] = struct{}{}
		}
	}
	for f := range fields {
		sum, n := decimal.Zero, int64(0)
		for _, q := range quotes {
			if v, ok := q[f]; ok && v.Valid {
				sum = sum.Add(v.Decimal)
				n++
			}
		}
		if n > 0 {
			out[f] = decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(n)).Round(2))
		}
	}
	return out
}

// aggregateMarkets agrupa os mercados de todas as casas por tipo de linha
func aggregateMarkets(bookmakers []provider.Bookmaker, home, away store.Team) map[store.LineType]quote {
	byType := map[store.LineType][]quote{}
	for _, bm := range bookmakers {
		for _, m := range bm.Markets {
			lt, ok := LineType(m.Key)
			if !ok {
				continue
			}
			q, ok := parseMarket(m, home, away)
			if !ok {
				continue
			}
			byType[lt] = append(byType[lt], q)
		}
	}
	out := make(map[store.LineType]quote, len(byType))
	for lt, qs := range byType {
		out[lt] = average(qs)
	}
	return out
}

func (q quote) line(gameID string, lt store.LineType) store.BettingLine {
	l := store.BettingLine{GameID: gameID, LineType: lt}
	switch lt {
	case store.LineMoneyline:
		l.HomeOdds, l.AwayOdds = q[fieldHomeOdds], q[fieldAwayOdds]
	case store.LineSpread:
		l.Spread, l.HomeOdds, l.AwayOdds = q[fieldSpread], q[fieldHomeOdds], q[fieldAwayOdds]
	case store.LineOverUnder:
		l.Total, l.OverOdds, l.UnderOdds = q[fieldTotal], q[fieldOverOdds], q[fieldUnderOdds]
	}
	return l
}
