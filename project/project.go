// Package project persists a takeoff in progress: every category, entry and
// committed shape, as JSON. A saved project plus the source document is
// enough to rebuild the ledger exactly, which is also how the export CLI
// receives its input.
package project

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/wudi/takeoffkit/ledger"
	"github.com/wudi/takeoffkit/shape"
)

// FormatVersion guards against reading files written by an incompatible
// release.
const FormatVersion = 1

// File is the on-disk project layout.
type File struct {
	Version    int        `json:"version"`
	Document   string     `json:"document,omitempty"`
	Categories []Category `json:"categories"`
}

// Category mirrors one ledger category.
type Category struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Entry mirrors one ledger entry with its shapes in descriptor form.
type Entry struct {
	Name   string             `json:"name"`
	Labor  string             `json:"labor,omitempty"`
	Notes  string             `json:"notes,omitempty"`
	Color  [3]float64         `json:"color"`
	Wire   *Wire              `json:"wire,omitempty"`
	Shapes []shape.Descriptor `json:"shapes,omitempty"`
}

// Wire mirrors the wire attributes of an entry.
type Wire struct {
	Type     string `json:"type"`
	Cable    string `json:"cable"`
	Material string `json:"material"`
	Length   string `json:"length,omitempty"`
}

// Snapshot captures the ledger into a project file structure.
func Snapshot(l *ledger.Ledger, documentPath string) *File {
	f := &File{Version: FormatVersion, Document: documentPath}
	for _, c := range l.Categories() {
		pc := Category{Name: c.Name}
		for _, e := range c.Entries() {
			pe := Entry{
				Name:  e.Name,
				Labor: e.Labor,
				Notes: e.Notes,
				Color: [3]float64{e.Color.R, e.Color.G, e.Color.B},
			}
			if e.Wire != nil {
				pe.Wire = &Wire{
					Type:     string(e.Wire.Type),
					Cable:    e.Wire.Cable,
					Material: string(e.Wire.Material),
					Length:   e.Wire.Length,
				}
			}
			for _, s := range e.Shapes() {
				pe.Shapes = append(pe.Shapes, s.Descriptor())
			}
			pc.Entries = append(pc.Entries, pe)
		}
		f.Categories = append(f.Categories, pc)
	}
	return f
}

// Restore rebuilds a fresh ledger from a project file. Categories not in
// the fixed set are ignored; the fixed set always exists.
func Restore(f *File) (*ledger.Ledger, error) {
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("project: unsupported version %d", f.Version)
	}
	l := ledger.New()
	for _, pc := range f.Categories {
		c := l.Category(pc.Name)
		if c == nil {
			continue
		}
		for _, pe := range pc.Entries {
			e := l.AddEntry(c)
			e.Name = pe.Name
			e.Labor = pe.Labor
			e.Notes = pe.Notes
			e.Color = shape.Color{R: pe.Color[0], G: pe.Color[1], B: pe.Color[2], A: 0.4}
			if pe.Wire != nil && e.Wire != nil {
				e.Wire.Type = ledger.WireType(pe.Wire.Type)
				e.Wire.Cable = pe.Wire.Cable
				e.Wire.Material = ledger.Material(pe.Wire.Material)
				e.Wire.Length = pe.Wire.Length
			}
			for _, d := range pe.Shapes {
				s, err := fromDescriptor(d, e.Color)
				if err != nil {
					return nil, err
				}
				l.AttachShape(e, s)
			}
		}
	}
	return l, nil
}

func fromDescriptor(d shape.Descriptor, fallback shape.Color) (*shape.Shape, error) {
	c := shape.Color{R: d.Color[0], G: d.Color[1], B: d.Color[2], A: fallback.A}
	var s *shape.Shape
	switch d.Kind {
	case "rect":
		s = shape.NewRect(shape.Rect{X0: d.Rect[0], Y0: d.Rect[1], X1: d.Rect[2], Y1: d.Rect[3]}, c)
	case "line":
		s = shape.NewLine(shape.Line{X1: d.P1[0], Y1: d.P1[1], X2: d.P2[0], Y2: d.P2[1]}, c, d.Width)
	default:
		return nil, fmt.Errorf("project: unknown shape kind %q", d.Kind)
	}
	// Saved identity survives the round trip; files from before identity was
	// persisted get a fresh one.
	if id, err := uuid.Parse(d.ID); err == nil {
		s.ID = id
	}
	s.Page = d.Page
	return s, nil
}

// Write serializes the file as indented JSON.
func (f *File) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("project: encode: %w", err)
	}
	return nil
}

// Read parses a project file.
func Read(r io.Reader) (*File, error) {
	f := &File{}
	if err := json.NewDecoder(r).Decode(f); err != nil {
		return nil, fmt.Errorf("project: decode: %w", err)
	}
	return f, nil
}

// SaveFile writes the ledger snapshot to path.
func SaveFile(path string, l *ledger.Ledger, documentPath string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("project: create %s: %w", path, err)
	}
	defer out.Close()
	return Snapshot(l, documentPath).Write(out)
}

// LoadFile reads a project file and rebuilds its ledger.
func LoadFile(path string) (*File, *ledger.Ledger, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("project: open %s: %w", path, err)
	}
	defer in.Close()
	f, err := Read(in)
	if err != nil {
		return nil, nil, err
	}
	l, err := Restore(f)
	if err != nil {
		return nil, nil, err
	}
	return f, l, nil
}
