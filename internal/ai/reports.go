package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRequest marks a bad scope or report name
var ErrInvalidRequest = errors.New("invalid ai request")

var (
	scopeIDRe = regexp.MustCompile(`^[a-zA-Z0-9._:-]{1,128}$`)
	orRe      = regexp.MustCompile(`(?i)\bor\b`)
)

// Scope restricts questions and reports to one game, and optionally one player
type Scope struct {
	GameID   string `json:"game_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

func (s Scope) validate() error {
	if s.GameID == "" && s.PlayerID != "" {
		return fmt.Errorf("%w: player scope needs a game", ErrInvalidRequest)
	}
	for _, id := range []string{s.GameID, s.PlayerID} {
		if id != "" && !scopeIDRe.MatchString(id) {
			return fmt.Errorf("%w: invalid id %q", ErrInvalidRequest, id)
		}
	}
	return nil
}

// filters are the WHERE predicates generated SQL must carry for s
func (s Scope) filters() []string {
	var out []string
	if s.GameID != "" {
		out = append(out, fmt.Sprintf("game_id = '%s'", s.GameID))
	}
	if s.PlayerID != "" {
		out = append(out, fmt.Sprintf("player_id = '%s'", s.PlayerID))
	}
	return out
}

// requireScope checks that generated SQL filters on every scoped id.
// OR is refused in scoped queries so a filter cannot be widened.
func requireScope(sqlQuery string, s Scope) error {
	if len(s.filters()) > 0 && orRe.MatchString(sqlQuery) {
		return fmt.Errorf("OR is not allowed in scoped queries")
	}
	compact := strings.Join(strings.Fields(strings.ToLower(sqlQuery)), "")
	for _, f := range s.filters() {
		want := strings.Join(strings.Fields(strings.ToLower(f)), "")
		if !strings.Contains(compact, want) {
			return fmt.Errorf("query must filter on %s", f)
		}
	}
	return nil
}

type ReportKind string

const (
	// ReportNetting is a player's net units and cash per turn and drug
	ReportNetting ReportKind = "netting"
	// ReportPrices is the per-turn price history of every market traded in a game
	ReportPrices ReportKind = "prices"
	// ReportLeaders ranks a game's players by net cash from trading
	ReportLeaders ReportKind = "leaders"
)

// question is what the summariser is asked to answer for a report
func (k ReportKind) question() string {
	switch k {
	case ReportNetting:
		return "How did this player's position in each drug change turn by turn, and which turns made or lost the most cash?"
	case ReportPrices:
		return "How did prices move per location and drug across turns, and where was slippage worst?"
	case ReportLeaders:
		return "Which players made the most cash from trading in this game?"
	}
	return ""
}

const nettingQuery = `
SELECT
	turn,
	drug,
	toInt64(sumIf(quantity, direction = 'buy')) - toInt64(sumIf(quantity, direction = 'sell')) AS net_units,
	round(sumIf(total, direction = 'sell') - sumIf(total, direction = 'buy'), 2) AS net_cash,
	count() AS trades
FROM %s
WHERE game_id = ? AND player_id = ?
GROUP BY turn, drug
ORDER BY turn, drug`

const pricesQuery = `
SELECT
	turn,
	location,
	drug,
	round(sum(total) / sum(quantity), 4) AS avg_price,
	round(min(spot_price), 4) AS min_spot,
	round(max(spot_price), 4) AS max_spot,
	round(max(price_impact), 4) AS max_impact,
	sum(quantity) AS units
FROM %s
WHERE %s
GROUP BY turn, location, drug
ORDER BY turn, location, drug
LIMIT 500`

const leadersQuery = `
SELECT
	player_id,
	round(sumIf(total, direction = 'sell') - sumIf(total, direction = 'buy'), 2) AS net_cash,
	round(sum(total), 2) AS volume,
	count() AS trades
FROM %s
WHERE game_id = ?
GROUP BY player_id
ORDER BY net_cash DESC
LIMIT 10`

// reportQuery returns the parameterised SQL for kind over table
func reportQuery(kind ReportKind, table string, s Scope) (string, []any, error) {
	if err := s.validate(); err != nil {
		return "", nil, err
	}
	if s.GameID == "" {
		return "", nil, fmt.Errorf("%w: reports need a game", ErrInvalidRequest)
	}

	switch kind {
	case ReportNetting:
		if s.PlayerID == "" {
			return "", nil, fmt.Errorf("%w: %s report needs a player", ErrInvalidRequest, kind)
		}
		return fmt.Sprintf(nettingQuery, table), []any{s.GameID, s.PlayerID}, nil
	case ReportPrices:
		if s.PlayerID != "" {
			return fmt.Sprintf(pricesQuery, table, "game_id = ? AND player_id = ?"), []any{s.GameID, s.PlayerID}, nil
		}
		return fmt.Sprintf(pricesQuery, table, "game_id = ?"), []any{s.GameID}, nil
	case ReportLeaders:
		return fmt.Sprintf(leadersQuery, table), []any{s.GameID}, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown report %q", ErrInvalidRequest, kind)
	}
}
