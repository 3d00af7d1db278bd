package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento publicado no tópico "odds_updates" para cada linha gravada pela importação
type OddsUpdate struct {
	GameID     string              `json:"game_id"`
	ExternalID string              `json:"external_id"`
	Sport      string              `json:"sport"`
	LineID     string              `json:"line_id"`
	LineType   string              `json:"line_type"` // moneyline | spread | over_under
	HomeOdds   decimal.NullDecimal `json:"home_odds"`
	AwayOdds   decimal.NullDecimal `json:"away_odds"`
	OverOdds   decimal.NullDecimal `json:"over_odds"`
	UnderOdds  decimal.NullDecimal `json:"under_odds"`
	Spread     decimal.NullDecimal `json:"spread"`
	Total      decimal.NullDecimal `json:"total"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Source     string              `json:"source"` // "the_odds_api"
}
