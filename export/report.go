package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"sort"

	"github.com/yuin/goldmark"

	"github.com/wudi/takeoffkit/aggregate"
	"github.com/wudi/takeoffkit/ledger"
)

// Report writes an HTML estimate summary: global totals, one table per
// category with a row per named entry, the merged wire subtotal table, and
// entry notes rendered from markdown.
func Report(w io.Writer, l *ledger.Ledger) error {
	totals := aggregate.Compute(l)
	md := goldmark.New()

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Takeoff Estimate</title></head><body>\n")
	b.WriteString("<h1>Takeoff Estimate</h1>\n")
	fmt.Fprintf(&b, "<p>Total Hours: %.2f &mdash; Total Devices: %d &mdash; Total Points: %d</p>\n",
		totals.Hours, totals.Devices, totals.Points)

	for _, c := range l.Categories() {
		entries := c.Entries()
		named := 0
		for _, e := range entries {
			if e.Name != "" {
				named++
			}
		}
		if named == 0 {
			continue
		}
		fmt.Fprintf(&b, "<h2>%s</h2>\n<table>\n<tr><th>Item</th><th>Count</th><th>Labor</th></tr>\n", html.EscapeString(c.Name))
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%.2f</td></tr>\n",
				html.EscapeString(e.Name), e.Count(), e.LaborHours())
		}
		b.WriteString("</table>\n")
		for _, e := range entries {
			if e.Name == "" || e.Notes == "" {
				continue
			}
			fmt.Fprintf(&b, "<h3>Notes: %s</h3>\n<div class=\"notes\">\n", html.EscapeString(e.Name))
			if err := md.Convert([]byte(e.Notes), &b); err != nil {
				return fmt.Errorf("export: render notes for %q: %w", e.Name, err)
			}
			b.WriteString("</div>\n")
		}
	}

	if len(totals.Wire) > 0 {
		b.WriteString("<h2>Wire</h2>\n<table>\n<tr><th>Type</th><th>Cable</th><th>Material</th><th>Length</th></tr>\n")
		for _, key := range sortedWireKeys(totals.Wire) {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%.1f</td></tr>\n",
				html.EscapeString(string(key.Type)), html.EscapeString(key.Cable),
				html.EscapeString(string(key.Material)), totals.Wire[key])
		}
		b.WriteString("</table>\n")
	}

	b.WriteString("</body></html>\n")
	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("export: write report: %w", err)
	}
	return nil
}

// sortedWireKeys returns wire keys in a stable order for deterministic
// output.
func sortedWireKeys(m map[ledger.WireKey]float64) []ledger.WireKey {
	keys := make([]ledger.WireKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Cable != b.Cable {
			return a.Cable < b.Cable
		}
		return a.Material < b.Material
	})
	return keys
}
