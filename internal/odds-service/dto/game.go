package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-platform/internal/odds-service/repo"
	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

var validate = validator.New()

type TeamResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	City         string `json:"city,omitempty"`
	FullName     string `json:"full_name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

func newTeamResponse(t store.Team) TeamResponse {
	return TeamResponse{ID: t.ID, Name: t.Name, City: t.City, FullName: t.FullName(), Abbreviation: t.Abbreviation}
}

type GameResponse struct {
	ID           string       `json:"id"`
	Sport        string       `json:"sport"`
	GameTime     time.Time    `json:"game_time"`
	Status       string       `json:"status"`
	HomeTeam     TeamResponse `json:"home_team"`
	AwayTeam     TeamResponse `json:"away_team"`
	HomeScore    *int         `json:"home_score"`
	AwayScore    *int         `json:"away_score"`
	ExternalID   string       `json:"external_id,omitempty"`
	DataSource   string       `json:"data_source"`
	LastSyncedAt *time.Time   `json:"last_synced_at,omitempty"`
}

func NewGameResponse(v repo.GameView) GameResponse {
	g := v.Game
	return GameResponse{
		ID:           g.ID,
		Sport:        g.Sport,
		GameTime:     g.GameTime,
		Status:       string(g.Status),
		HomeTeam:     newTeamResponse(v.Home),
		AwayTeam:     newTeamResponse(v.Away),
		HomeScore:    g.HomeScore,
		AwayScore:    g.AwayScore,
		ExternalID:   g.ExternalID,
		DataSource:   g.DataSource,
		LastSyncedAt: g.LastSyncedAt,
	}
}

// LineResponse: campos sem valor saem como null
type LineResponse struct {
	ID        string              `json:"id"`
	GameID    string              `json:"game_id"`
	LineType  string              `json:"line_type"`
	HomeOdds  decimal.NullDecimal `json:"home_odds"`
	AwayOdds  decimal.NullDecimal `json:"away_odds"`
	OverOdds  decimal.NullDecimal `json:"over_odds"`
	UnderOdds decimal.NullDecimal `json:"under_odds"`
	Spread    decimal.NullDecimal `json:"spread"`
	Total     decimal.NullDecimal `json:"total"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewLineResponse(l store.BettingLine) LineResponse {
	return LineResponse{
		ID:        l.ID,
		GameID:    l.GameID,
		LineType:  string(l.LineType),
		HomeOdds:  l.HomeOdds,
		AwayOdds:  l.AwayOdds,
		OverOdds:  l.OverOdds,
		UnderOdds: l.UnderOdds,
		Spread:    l.Spread,
		Total:     l.Total,
		UpdatedAt: l.UpdatedAt,
	}
}

// ResultRequest: jogo concluído exige os dois placares
type ResultRequest struct {
	Status    string `json:"status" validate:"required,oneof=scheduled in_progress completed postponed"`
	HomeScore *int   `json:"home_score" validate:"required_if=Status completed,omitempty,min=0"`
	AwayScore *int   `json:"away_score" validate:"required_if=Status completed,omitempty,min=0"`
}

func (r *ResultRequest) Validate() error { return validate.Struct(r) }
