// Package aggregate computes global takeoff totals from the ledger. Totals
// are recomputed synchronously on demand; at the expected scale (tens of
// entries) there is nothing worth caching.
package aggregate

import (
	"github.com/wudi/takeoffkit/ledger"
)

// Totals are the global sums across all categories.
type Totals struct {
	// Hours is the sum over all entries of live count times labor.
	Hours float64
	// Devices is the live shape count over all counting categories.
	Devices int
	// Points is the live shape count over every category, the non-counting
	// one included.
	Points int
	// Wire is the union of per-category wire subtotals, merged by summation
	// on identical key. Non-counting categories do not contribute.
	Wire map[ledger.WireKey]float64
}

// Compute walks every category and entry once. The result is independent of
// iteration order: every component is a commutative sum.
func Compute(l *ledger.Ledger) Totals {
	t := Totals{Wire: make(map[ledger.WireKey]float64)}
	for _, c := range l.Categories() {
		for _, e := range c.Entries() {
			count := e.Count()
			t.Hours += float64(count) * e.LaborHours()
			t.Points += count
			if !c.NonCounting {
				t.Devices += count
			}
		}
		if c.NonCounting {
			continue
		}
		for key, length := range l.WireSubtotals(c) {
			t.Wire[key] += length
		}
	}
	return t
}

// Labor is the canonical spreadsheet labor total: live count times labor
// summed over all entries regardless of name.
func Labor(l *ledger.Ledger) float64 {
	total := 0.0
	for _, c := range l.Categories() {
		for _, e := range c.Entries() {
			total += float64(e.Count()) * e.LaborHours()
		}
	}
	return total
}
