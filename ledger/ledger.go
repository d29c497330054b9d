// Package ledger keeps the takeoff bookkeeping: a fixed set of named
// categories, each holding an ordered list of entries, each entry owning the
// shapes that back its count. Labor and wire length fields hold the raw text
// the user typed; they parse leniently, with anything non-numeric counting
// as zero.
package ledger

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wudi/takeoffkit/shape"
)

// DefaultCategories is the fixed category set created at startup, in display
// order. Demo is the designated non-counting category.
var DefaultCategories = []struct {
	Name        string
	Wire        bool
	NonCounting bool
}{
	{Name: "General", Wire: true},
	{Name: "Lighting", Wire: true},
	{Name: "Mechanical", Wire: true},
	{Name: "Fire Alarm", Wire: true},
	{Name: "Low Voltage", Wire: true},
	{Name: "Demo", NonCounting: true},
}

// WireAttrs are the wire takeoff attributes of an entry in a wire-enabled
// category. Length holds raw user text.
type WireAttrs struct {
	Type     WireType
	Cable    string
	Material Material
	Length   string
}

// UnitLength returns the parsed unit length, or 0 for unparsable or missing
// input.
func (w *WireAttrs) UnitLength() float64 {
	if w == nil {
		return 0
	}
	return parseFloat(w.Length)
}

// Entry is one countable line item. Its count is the number of live shapes
// it owns.
type Entry struct {
	ID    uuid.UUID
	Name  string
	Labor string
	Notes string
	Color shape.Color
	Wire  *WireAttrs

	shapes []*shape.Shape
}

// LaborHours returns the parsed labor multiplier, or 0 for unparsable input.
func (e *Entry) LaborHours() float64 {
	return parseFloat(e.Labor)
}

// Count returns the number of shapes in the entry's list that are still live
// on the canvas. Deleted shapes are excluded without requiring removal from
// the list.
func (e *Entry) Count() int {
	n := 0
	for _, s := range e.shapes {
		if !s.Deleted() {
			n++
		}
	}
	return n
}

// Shapes returns the entry's live shapes in attachment order.
func (e *Entry) Shapes() []*shape.Shape {
	var out []*shape.Shape
	for _, s := range e.shapes {
		if !s.Deleted() {
			out = append(out, s)
		}
	}
	return out
}

// Category is a named, ordered collection of entries.
type Category struct {
	Name        string
	Wire        bool
	NonCounting bool

	entries []*Entry
}

// Entries returns the category's entries in creation order.
func (c *Category) Entries() []*Entry {
	return append([]*Entry(nil), c.entries...)
}

// Ledger owns all categories. A single mutex serializes shape-list access;
// contention is low since all interactive mutation happens on one goroutine.
type Ledger struct {
	mu         sync.Mutex
	categories []*Category

	unlinked []func(*shape.Shape)
}

// New creates a ledger with the fixed default category set.
func New() *Ledger {
	l := &Ledger{}
	for _, d := range DefaultCategories {
		l.categories = append(l.categories, &Category{
			Name:        d.Name,
			Wire:        d.Wire,
			NonCounting: d.NonCounting,
		})
	}
	return l
}

// Categories returns all categories in display order.
func (l *Ledger) Categories() []*Category {
	return append([]*Category(nil), l.categories...)
}

// Category looks up a category by name.
func (l *Ledger) Category(name string) *Category {
	for _, c := range l.categories {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// OnShapeUnlinked registers a callback invoked for every shape removed from
// the canvas by the ledger itself (entry removal). The display layer uses
// this to drop visuals.
func (l *Ledger) OnShapeUnlinked(fn func(*shape.Shape)) {
	l.unlinked = append(l.unlinked, fn)
}

// AddEntry appends a new entry with default attributes to the category and
// returns it. Wire attributes are present only for wire-enabled categories.
func (l *Ledger) AddEntry(c *Category) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := &Entry{ID: uuid.New()}
	if c.Wire {
		e.Wire = &WireAttrs{Type: WireTypeNMD, Material: MaterialCopper}
	}
	c.entries = append(c.entries, e)
	return e
}

// RemoveEntry unlinks all of the entry's shapes from the canvas and removes
// the entry from the category. A no-op if the entry is not present.
func (l *Ledger) RemoveEntry(c *Category, e *Entry) {
	l.mu.Lock()
	idx := -1
	for i, x := range c.entries {
		if x == e {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return
	}
	c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	removed := e.shapes
	e.shapes = nil
	l.mu.Unlock()

	for _, s := range removed {
		if s.Deleted() {
			continue
		}
		s.MarkDeleted()
		for _, fn := range l.unlinked {
			fn(s)
		}
	}
}

// AttachShape appends a shape to the entry's list. Called when the canvas
// commits a new or re-adopted shape for the active entry.
func (l *Ledger) AttachShape(e *Entry, s *shape.Shape) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, x := range e.shapes {
		if x.ID == s.ID {
			return
		}
	}
	e.shapes = append(e.shapes, s)
}

// DetachShape removes the shape with s's ID from whichever entry owns it.
// Idempotent: unknown shapes are ignored. The scan over all categories and
// entries is linear but the expected scale is tens of entries.
func (l *Ledger) DetachShape(s *shape.Shape) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.categories {
		for _, e := range c.entries {
			for i, x := range e.shapes {
				if x.ID == s.ID {
					e.shapes = append(e.shapes[:i], e.shapes[i+1:]...)
					return
				}
			}
		}
	}
}

// Owner returns the entry currently owning the shape with s's ID, or nil.
func (l *Ledger) Owner(s *shape.Shape) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.categories {
		for _, e := range c.entries {
			for _, x := range e.shapes {
				if x.ID == s.ID {
					return e
				}
			}
		}
	}
	return nil
}

// AllShapes returns descriptors for every live committed shape across all
// categories, in display order. This is the payload of a mutation request.
func (l *Ledger) AllShapes() []shape.Descriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []shape.Descriptor
	for _, c := range l.categories {
		for _, e := range c.entries {
			for _, s := range e.shapes {
				if s.Deleted() || s.Page < 0 {
					continue
				}
				out = append(out, s.Descriptor())
			}
		}
	}
	return out
}

// WireSubtotals aggregates wire length for a wire-enabled category: for each
// entry with a positive unit length and at least one live shape, unit length
// times live count is added to the bucket keyed by the entry's wire
// attributes. Returns nil for categories without wire takeoff.
func (l *Ledger) WireSubtotals(c *Category) map[WireKey]float64 {
	if !c.Wire {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	totals := make(map[WireKey]float64)
	for _, e := range c.entries {
		if e.Wire == nil {
			continue
		}
		unit := e.Wire.UnitLength()
		if unit <= 0 {
			continue
		}
		count := e.Count()
		if count == 0 {
			continue
		}
		key := WireKey{Type: e.Wire.Type, Cable: e.Wire.Cable, Material: e.Wire.Material}
		totals[key] += unit * float64(count)
	}
	return totals
}

// parseFloat is the lenient field parse: empty or non-numeric input counts
// as zero, never as an error.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
