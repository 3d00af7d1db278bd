package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/radieske/sports-bankroll-platform/internal/shared/store"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// Normalize deixa o nome comparável: minúsculas, sem pontuação, sem espaços nas pontas
func Normalize(name string) string {
	return nonAlnum.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), "")
}

// Matches: igualdade exata com "cidade nome". Só o apelido não basta,
// "Eagles" sozinho não pode virar o Boston College Eagles.
func Matches(t store.Team, name string) bool {
	n := Normalize(name)
	return n != "" && Normalize(t.FullName()) == n
}

// MatchesOutcome aceita também o apelido sozinho; só para outcomes de um
// evento cujos dois times já foram resolvidos.
func MatchesOutcome(t store.Team, name string) bool {
	n := Normalize(name)
	if n == "" {
		return false
	}
	return Normalize(t.FullName()) == n || Normalize(t.Name) == n
}

// Resolver encontra ou cria times a partir dos nomes do provedor
type Resolver struct{}

func New() *Resolver { return &Resolver{} }

// FindOrCreateTeam resolve o time dentro da transação tx
func (r *Resolver) FindOrCreateTeam(ctx context.Context, tx store.Tx, name, sport, externalID string) (*store.Team, error) {
	if externalID != "" {
		t, err := tx.TeamByExternalID(ctx, externalID, sport)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("team by external id: %w", err)
		}
	}

	teams, err := tx.TeamsBySport(ctx, sport)
	if err != nil {
		return nil, fmt.Errorf("teams by sport: %w", err)
	}
	for i := range teams {
		if Matches(teams[i], name) {
			return r.touch(ctx, tx, &teams[i], externalID)
		}
	}
	return r.create(ctx, tx, name, sport, externalID)
}

// touch completa external_id e marca o primeiro contato via API
func (r *Resolver) touch(ctx context.Context, tx store.Tx, t *store.Team, externalID string) (*store.Team, error) {
	changed := false
	if externalID != "" && t.ExternalID == "" {
		t.ExternalID = externalID
		changed = true
	}
	if t.DataSource == store.DataSourceManual {
		t.DataSource = store.DataSourceAPI
		changed = true
	}
	if !changed {
		return t, nil
	}
	if err := tx.UpdateTeam(ctx, t); err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	return t, nil
}

func (r *Resolver) create(ctx context.Context, tx store.Tx, name, sport, externalID string) (*store.Team, error) {
	city, nick := SplitName(name)
	t := &store.Team{
		Name:         nick,
		City:         city,
		Abbreviation: Abbreviation(nick),
		Sport:        sport,
		ExternalID:   externalID,
		DataSource:   store.DataSourceAPI,
	}
	if err := tx.InsertTeam(ctx, t); err != nil {
		return nil, fmt.Errorf("insert team %q: %w", name, err)
	}
	return t, nil
}

// SplitName: "Los Angeles Lakers" -> ("Los Angeles", "Lakers")
func SplitName(name string) (city, nickname string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", strings.TrimSpace(name)
	case 1:
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// Abbreviation: três primeiras letras do apelido, em maiúsculas
func Abbreviation(nickname string) string {
	r := []rune(nickname)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}
