package container

import (
	"fmt"
	"slices"
	"strings"
)

// Strategy picks one provider when several are eligible for a request.
type Strategy int

const (
	// DirectMatch requires exactly one provider whose declared type is
	// exactly the requested one.
	DirectMatch Strategy = iota

	// FirstDirectMatch takes the first exact-type provider.
	FirstDirectMatch

	// BestMatch prefers exact-type providers over assignable ones, then
	// lower Order, then earlier registration.
	BestMatch

	// First takes the first candidate unconditionally.
	First

	// None always fails. Useful to surface every ambiguity in diagnostics.
	None
)

var strategyNames = map[Strategy]string{
	DirectMatch:      "direct_match",
	FirstDirectMatch: "first_direct_match",
	BestMatch:        "best_match",
	First:            "first",
	None:             "none",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name such as "best_match". Dashes and case
// are ignored; the empty string yields DirectMatch.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	if n == "" {
		return DirectMatch, nil
	}
	for s, sn := range strategyNames {
		if sn == n {
			return s, nil
		}
	}
	return DirectMatch, fmt.Errorf("unknown resolution strategy %q", name)
}

// ── Selection ─────────────────────────────────────────────────────────────────

// match is one eligible provider for a request.
type match struct {
	entry *entry
	exact bool
}

// choose applies s to eligible, which is sorted by (Order, registration).
// It returns false when the strategy cannot pick a provider.
func (s Strategy) choose(eligible []match) (match, bool) {
	switch s {
	case DirectMatch:
		var found []match
		for _, m := range eligible {
			if m.exact {
				found = append(found, m)
			}
		}
		if len(found) == 1 {
			return found[0], true
		}
	case FirstDirectMatch:
		for _, m := range eligible {
			if m.exact {
				return m, true
			}
		}
	case BestMatch:
		sorted := slices.Clone(eligible)
		slices.SortStableFunc(sorted, func(a, b match) int {
			switch {
			case a.exact == b.exact:
				return 0
			case a.exact:
				return -1
			default:
				return 1
			}
		})
		return sorted[0], true
	case First:
		return eligible[0], true
	}
	return match{}, false
}
