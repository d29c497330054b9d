// Package mutate materializes committed shapes as permanent annotations in
// a fresh copy of the source document. The interactive layer is permissive
// about degenerate geometry; this boundary is strict: rectangles are clipped
// to the page and skipped when empty, zero-length lines are skipped, and
// line widths are floored at a minimum visible value. The mutation normally
// runs in an isolated worker process (see Runner and cmd/takeoff-annotate)
// so a crash or hang cannot corrupt the interactive session.
package mutate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/wudi/takeoffkit/shape"
)

// MinLineWidth is the smallest stroke width written to the document, applied
// even when the descriptor supplies zero or a negative width.
const MinLineWidth = 0.1

// Request is the mutation payload: the original document bytes captured at
// load time plus every committed shape in descriptor form. It crosses the
// worker boundary as JSON.
type Request struct {
	Original []byte             `json:"pdf"`
	Shapes   []shape.Descriptor `json:"shapes"`
}

// Encode serializes the request for the worker bundle file.
func (r *Request) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

// DecodeRequest reads a request from a worker bundle file.
func DecodeRequest(r io.Reader) (*Request, error) {
	req := &Request{}
	if err := json.NewDecoder(r).Decode(req); err != nil {
		return nil, fmt.Errorf("mutate: decode request: %w", err)
	}
	return req, nil
}

// Stats reports what Apply did.
type Stats struct {
	Applied int
	Skipped int
}

// Apply opens the original bytes, adds one annotation per eligible shape,
// and writes the complete mutated document to w. The original slice is
// never modified. Shapes that are degenerate, fall entirely outside their
// page, or name a page the document does not have are skipped silently.
func Apply(req *Request, w io.Writer) (Stats, error) {
	var stats Stats

	data, err := pdf.Read(bytes.NewReader(req.Original), nil)
	if err != nil {
		return stats, fmt.Errorf("mutate: open document: %w", err)
	}
	pages, err := pagetree.FindPages(data)
	if err != nil {
		return stats, fmt.Errorf("mutate: read page tree: %w", err)
	}

	for _, desc := range req.Shapes {
		if desc.Page < 0 || desc.Page >= len(pages) {
			stats.Skipped++
			continue
		}
		pageRef := pages[desc.Page]
		pageDict, err := pdf.GetDict(data, pageRef)
		if err != nil {
			return stats, fmt.Errorf("mutate: load page %d: %w", desc.Page, err)
		}

		var annot pdf.Dict
		switch desc.Kind {
		case "rect":
			bounds, err := mediaBox(data, pageDict)
			if err != nil {
				return stats, fmt.Errorf("mutate: page %d bounds: %w", desc.Page, err)
			}
			annot = squareAnnotation(desc, bounds)
		case "line":
			annot = lineAnnotation(desc)
		default:
			stats.Skipped++
			continue
		}
		if annot == nil {
			stats.Skipped++
			continue
		}

		ref := data.Alloc()
		if err := data.Put(ref, annot); err != nil {
			return stats, fmt.Errorf("mutate: store annotation: %w", err)
		}
		annots, err := pdf.GetArray(data, pageDict["Annots"])
		if err != nil {
			// A malformed Annots entry on the page; start fresh rather
			// than fail the whole save.
			annots = nil
		}
		pageDict["Annots"] = append(annots, ref)
		if err := data.Put(pageRef, pageDict); err != nil {
			return stats, fmt.Errorf("mutate: update page %d: %w", desc.Page, err)
		}
		stats.Applied++
	}

	if err := data.Write(w); err != nil {
		return stats, fmt.Errorf("mutate: write document: %w", err)
	}
	return stats, nil
}

// ApplyToFile runs Apply against a temporary file in dest's directory and
// renames it over dest only on full success, so a failed mutation leaves
// dest byte-identical to before the call.
func ApplyToFile(req *Request, dest string) (Stats, error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".takeoff-*.pdf")
	if err != nil {
		return Stats{}, fmt.Errorf("mutate: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	stats, err := Apply(req, tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return stats, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return stats, fmt.Errorf("mutate: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return stats, fmt.Errorf("mutate: replace %s: %w", dest, err)
	}
	return stats, nil
}

// squareAnnotation builds a filled rectangle annotation clipped to the page
// bounds, or nil when the clipped rectangle is empty.
func squareAnnotation(desc shape.Descriptor, bounds shape.Rect) pdf.Dict {
	r := shape.Rect{X0: desc.Rect[0], Y0: desc.Rect[1], X1: desc.Rect[2], Y1: desc.Rect[3]}
	r = r.Normalized().Intersect(bounds)
	if r.IsEmpty() {
		return nil
	}
	return pdf.Dict{
		"Type":    pdf.Name("Annot"),
		"Subtype": pdf.Name("Square"),
		"Rect":    rectArray(r),
		"IC":      colorArray(desc.Color),
		// No stroke: zero-width border.
		"Border": pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(0)},
	}
}

// lineAnnotation builds a stroked line annotation, or nil for a zero-length
// line.
func lineAnnotation(desc shape.Descriptor) pdf.Dict {
	l := shape.Line{X1: desc.P1[0], Y1: desc.P1[1], X2: desc.P2[0], Y2: desc.P2[1]}
	if l.IsDegenerate() {
		return nil
	}
	width := desc.Width
	if width < MinLineWidth {
		width = MinLineWidth
	}
	ends := shape.RectFromCorners(shape.Point{X: l.X1, Y: l.Y1}, shape.Point{X: l.X2, Y: l.Y2})
	return pdf.Dict{
		"Type":    pdf.Name("Annot"),
		"Subtype": pdf.Name("Line"),
		"Rect":    rectArray(ends),
		"L": pdf.Array{
			pdf.Number(l.X1), pdf.Number(l.Y1),
			pdf.Number(l.X2), pdf.Number(l.Y2),
		},
		"C":  colorArray(desc.Color),
		"BS": pdf.Dict{"W": pdf.Number(width), "S": pdf.Name("S")},
	}
}

// mediaBox resolves a page's MediaBox, walking the Parent chain for
// inherited values. Malformed pages fall back to US Letter.
func mediaBox(data *pdf.Data, pageDict pdf.Dict) (shape.Rect, error) {
	node := pageDict
	for depth := 0; node != nil && depth < 32; depth++ {
		if node["MediaBox"] != nil {
			box, err := pdf.GetRectangle(data, node["MediaBox"])
			if err != nil {
				return shape.Rect{}, err
			}
			if box != nil && !box.IsZero() {
				return shape.Rect{X0: box.LLx, Y0: box.LLy, X1: box.URx, Y1: box.URy}.Normalized(), nil
			}
		}
		parent := node["Parent"]
		if parent == nil {
			break
		}
		next, err := pdf.GetDict(data, parent)
		if err != nil {
			return shape.Rect{}, err
		}
		node = next
	}
	return shape.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}, nil
}

func rectArray(r shape.Rect) pdf.Array {
	return pdf.Array{
		pdf.Number(r.X0), pdf.Number(r.Y0),
		pdf.Number(r.X1), pdf.Number(r.Y1),
	}
}

func colorArray(c [3]float64) pdf.Array {
	cl := shape.Color{R: c[0], G: c[1], B: c[2]}.Clamped()
	return pdf.Array{pdf.Number(cl.R), pdf.Number(cl.G), pdf.Number(cl.B)}
}
