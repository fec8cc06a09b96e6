package indexer

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// GraphQLError is a single entry of a GraphQL "errors" array
type GraphQLError struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// GraphQLErrors is returned when the indexer answers with a non-empty errors array
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors"`
}

// Amount decodes the numeric encodings the indexer emits for felts:
// JSON numbers, decimal strings and 0x-prefixed hex strings.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	if s == "" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return fmt.Errorf("invalid hex amount %q", s)
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		*a = Amount(f)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

// Units truncates a to a unit count. Negative and NaN amounts are 0.
func (a Amount) Units() uint64 {
	f := float64(a)
	if !(f > 0) {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}

type marketNode struct {
	DrugID   string `json:"drug_id"`
	Cash     Amount `json:"cash"`
	Quantity Amount `json:"quantity"`
}

type marketsData struct {
	MarketComponents struct {
		Edges []struct {
			Node marketNode `json:"node"`
		} `json:"edges"`
	} `json:"marketComponents"`
}

type playerNode struct {
	Name       string `json:"name"`
	Cash       Amount `json:"cash"`
	Health     Amount `json:"health"`
	Turn       Amount `json:"turn"`
	Status     string `json:"status"`
	LocationID string `json:"location_id"`
	BagLimit   Amount `json:"bag_limit"`
}

type drugNode struct {
	DrugID   string `json:"drug_id"`
	Quantity Amount `json:"quantity"`
}

type playerData struct {
	PlayerComponents struct {
		Edges []struct {
			Node playerNode `json:"node"`
		} `json:"edges"`
	} `json:"playerComponents"`
	DrugComponents struct {
		Edges []struct {
			Node drugNode `json:"node"`
		} `json:"edges"`
	} `json:"drugComponents"`
}
