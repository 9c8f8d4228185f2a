// internal/domain/models/ticker.go
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// B3 tickers: four letters, a one or two digit class, optional suffix
// letter (HGLG11, KNRI11, PETR4, XPML11B).
var tickerRE = regexp.MustCompile(`^[A-Z]{4}[0-9]{1,2}[A-Z]?$`)

// ValidTicker reports whether s is an uppercase B3 ticker.
func ValidTicker(s string) bool { return tickerRE.MatchString(s) }

// NormalizeTicker trims and uppercases s.
func NormalizeTicker(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// NormalizeTickers uppercases, dedupes and validates a ticker list, keeping
// first-seen order. Empty entries are dropped.
func NormalizeTickers(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		t := NormalizeTicker(raw)
		if t == "" || seen[t] {
			continue
		}
		if !ValidTicker(t) {
			return nil, fmt.Errorf("invalid ticker %q", raw)
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}
