// Package strings parses the list-shaped values found in environment
// configuration, such as broker lists and tld=multiplier seeds.
package strings

import (
	"strings"
)

// SplitList splits a separated config value ("a, b,,a") into its distinct
// non-empty elements, in first-seen order.
func SplitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, sep)
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// SplitPairs parses "k1=v1,k2=v2" into ordered key/value pairs. The first
// occurrence of a key wins. Elements without "=" are reported in bad.
func SplitPairs(raw string) (pairs [][2]string, bad []string) {
	seen := make(map[string]bool)
	for _, item := range SplitList(raw, ",") {
		k, v, ok := strings.Cut(item, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" {
			bad = append(bad, item)
			continue
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		pairs = append(pairs, [2]string{k, v})
	}
	return pairs, bad
}
