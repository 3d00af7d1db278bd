package topics

const (
	// Odds
	OddsUpdates = "odds_updates"

	// Bets
	BetPlaced   = "bet_placed"
	BetSettled  = "bet_settled"
	BetCanceled = "bet_canceled"
)
