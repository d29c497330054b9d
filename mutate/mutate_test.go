package mutate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/wudi/takeoffkit/shape"
)

// testDocument builds a two-page document. Page 0 carries its own MediaBox
// (0,0)-(612,792); page 1 inherits (0,0)-(200,200) from the page tree node.
func testDocument(t *testing.T) []byte {
	t.Helper()
	data := pdf.NewData(pdf.V1_7)

	pagesRef := data.Alloc()
	p0 := data.Alloc()
	p1 := data.Alloc()

	if err := data.Put(p0, pdf.Dict{
		"Type":   pdf.Name("Page"),
		"Parent": pagesRef,
		"MediaBox": pdf.Array{
			pdf.Integer(0), pdf.Integer(0), pdf.Integer(612), pdf.Integer(792),
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := data.Put(p1, pdf.Dict{
		"Type":   pdf.Name("Page"),
		"Parent": pagesRef,
	}); err != nil {
		t.Fatal(err)
	}
	if err := data.Put(pagesRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{p0, p1},
		"Count": pdf.Integer(2),
		"MediaBox": pdf.Array{
			pdf.Integer(0), pdf.Integer(0), pdf.Integer(200), pdf.Integer(200),
		},
	}); err != nil {
		t.Fatal(err)
	}
	data.GetMeta().Catalog.Pages = pagesRef

	var buf bytes.Buffer
	if err := data.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// annotations reads back the Annots array of page i from an encoded document.
func annotations(t *testing.T, doc []byte, page int) []pdf.Dict {
	t.Helper()
	data, err := pdf.Read(bytes.NewReader(doc), nil)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := pagetree.FindPages(data)
	if err != nil {
		t.Fatal(err)
	}
	pageDict, err := pdf.GetDict(data, pages[page])
	if err != nil {
		t.Fatal(err)
	}
	arr, err := pdf.GetArray(data, pageDict["Annots"])
	if err != nil {
		t.Fatal(err)
	}
	var out []pdf.Dict
	for _, obj := range arr {
		d, err := pdf.GetDict(data, obj)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, d)
	}
	return out
}

// num unwraps a parsed numeric object; the writer stores integral values as
// integers.
func num(t *testing.T, obj pdf.Object) float64 {
	t.Helper()
	switch v := obj.(type) {
	case pdf.Integer:
		return float64(v)
	case pdf.Real:
		return float64(v)
	case pdf.Number:
		return float64(v)
	}
	t.Fatalf("not a number: %T", obj)
	return 0
}

func rectDesc(page int, r shape.Rect) shape.Descriptor {
	s := shape.NewRect(r, shape.Color{R: 1, A: 0.4})
	s.Page = page
	return s.Descriptor()
}

func lineDesc(page int, l shape.Line, width float64) shape.Descriptor {
	s := shape.NewLine(l, shape.Color{B: 1}, width)
	s.Page = page
	return s.Descriptor()
}

func TestApplyWritesSquareAndLineAnnotations(t *testing.T) {
	req := &Request{
		Original: testDocument(t),
		Shapes: []shape.Descriptor{
			rectDesc(0, shape.Rect{X0: 10, Y0: 10, X1: 50, Y1: 40}),
			lineDesc(0, shape.Line{X1: 5, Y1: 5, X2: 100, Y2: 100}, 2),
		},
	}
	var out bytes.Buffer
	stats, err := Apply(req, &out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Applied != 2 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want 2 applied", stats)
	}

	annots := annotations(t, out.Bytes(), 0)
	if len(annots) != 2 {
		t.Fatalf("annotation count = %d, want 2", len(annots))
	}
	if annots[0]["Subtype"] != pdf.Name("Square") {
		t.Fatalf("first subtype = %v, want Square", annots[0]["Subtype"])
	}
	if annots[1]["Subtype"] != pdf.Name("Line") {
		t.Fatalf("second subtype = %v, want Line", annots[1]["Subtype"])
	}
}

func TestApplyClipsRectangleToInheritedMediaBox(t *testing.T) {
	// Page 1 inherits a 200x200 box from the tree node.
	req := &Request{
		Original: testDocument(t),
		Shapes: []shape.Descriptor{
			rectDesc(1, shape.Rect{X0: 150, Y0: 150, X1: 300, Y1: 300}),
		},
	}
	var out bytes.Buffer
	stats, err := Apply(req, &out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Applied != 1 {
		t.Fatalf("stats = %+v, want 1 applied", stats)
	}

	annots := annotations(t, out.Bytes(), 1)
	rect := annots[0]["Rect"].(pdf.Array)
	want := []float64{150, 150, 200, 200}
	for i, obj := range rect {
		if got := num(t, obj); got != want[i] {
			t.Fatalf("Rect[%d] = %g, want %g", i, got, want[i])
		}
	}
}

func TestApplySkipsIneligibleShapes(t *testing.T) {
	req := &Request{
		Original: testDocument(t),
		Shapes: []shape.Descriptor{
			// Entirely outside the page.
			rectDesc(0, shape.Rect{X0: 700, Y0: 800, X1: 750, Y1: 900}),
			// Zero area.
			rectDesc(0, shape.Rect{X0: 10, Y0: 10, X1: 10, Y1: 40}),
			// Zero length.
			lineDesc(0, shape.Line{X1: 5, Y1: 5, X2: 5, Y2: 5}, 1),
			// Page out of range.
			rectDesc(7, shape.Rect{X0: 10, Y0: 10, X1: 50, Y1: 40}),
			// Unknown kind.
			{Kind: "circle", Page: 0},
		},
	}
	var out bytes.Buffer
	stats, err := Apply(req, &out)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Applied != 0 || stats.Skipped != 5 {
		t.Fatalf("stats = %+v, want 0 applied, 5 skipped", stats)
	}
	if annots := annotations(t, out.Bytes(), 0); len(annots) != 0 {
		t.Fatalf("page 0 has %d annotations, want 0", len(annots))
	}
}

func TestApplyFloorsLineWidth(t *testing.T) {
	req := &Request{
		Original: testDocument(t),
		Shapes: []shape.Descriptor{
			lineDesc(0, shape.Line{X1: 0, Y1: 0, X2: 50, Y2: 0}, 0),
		},
	}
	var out bytes.Buffer
	if _, err := Apply(req, &out); err != nil {
		t.Fatal(err)
	}
	annots := annotations(t, out.Bytes(), 0)
	bs := annots[0]["BS"].(pdf.Dict)
	if got := num(t, bs["W"]); got != MinLineWidth {
		t.Fatalf("line width = %g, want %g", got, MinLineWidth)
	}
}

func TestApplyToFileReplacesDestAtomically(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(dest, []byte("previous contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := &Request{
		Original: testDocument(t),
		Shapes: []shape.Descriptor{
			rectDesc(0, shape.Rect{X0: 10, Y0: 10, X1: 50, Y1: 40}),
		},
	}
	stats, err := ApplyToFile(req, dest)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Applied != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	doc, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if annots := annotations(t, doc, 0); len(annots) != 1 {
		t.Fatalf("annotation count = %d, want 1", len(annots))
	}
	leftovers, err := filepath.Glob(filepath.Join(dir, ".takeoff-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestApplyToFileLeavesDestUntouchedOnFailure(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.pdf")
	before := []byte("previous contents")
	if err := os.WriteFile(dest, before, 0o644); err != nil {
		t.Fatal(err)
	}

	req := &Request{Original: []byte("not a document")}
	if _, err := ApplyToFile(req, dest); err == nil {
		t.Fatal("expected failure for corrupt input")
	}
	after, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("dest changed despite failed mutation")
	}
	leftovers, err := filepath.Glob(filepath.Join(dir, ".takeoff-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		Original: []byte{1, 2, 3},
		Shapes: []shape.Descriptor{
			rectDesc(0, shape.Rect{X0: 10, Y0: 10, X1: 50, Y1: 40}),
		},
	}
	var buf bytes.Buffer
	if err := req.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRequest(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Original, req.Original) {
		t.Fatal("original bytes did not survive the round trip")
	}
	if len(got.Shapes) != 1 || got.Shapes[0] != req.Shapes[0] {
		t.Fatalf("shapes = %+v", got.Shapes)
	}
}
