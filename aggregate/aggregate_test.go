package aggregate

import (
	"testing"

	"github.com/wudi/takeoffkit/ledger"
	"github.com/wudi/takeoffkit/shape"
)

func attach(t *testing.T, l *ledger.Ledger, e *ledger.Entry, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s := shape.NewRect(shape.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}, shape.Color{A: 0.4})
		s.Page = 0
		l.AttachShape(e, s)
	}
}

func TestComputeExcludesDemoFromDevicesNotPoints(t *testing.T) {
	l := ledger.New()

	gen := l.AddEntry(l.Category("General"))
	gen.Labor = "1.5"
	attach(t, l, gen, 3)

	demo := l.AddEntry(l.Category("Demo"))
	demo.Labor = "0.5"
	attach(t, l, demo, 2)

	got := Compute(l)
	if got.Devices != 3 {
		t.Fatalf("Devices = %d, want 3 (Demo excluded)", got.Devices)
	}
	if got.Points != 5 {
		t.Fatalf("Points = %d, want 5 (Demo included)", got.Points)
	}
	if want := 3*1.5 + 2*0.5; got.Hours != want {
		t.Fatalf("Hours = %g, want %g", got.Hours, want)
	}
}

func TestComputeWireUnionMergesAcrossCategories(t *testing.T) {
	l := ledger.New()

	a := l.AddEntry(l.Category("General"))
	a.Wire.Length = "20"
	attach(t, l, a, 2)

	b := l.AddEntry(l.Category("Lighting"))
	b.Wire.Length = "15"
	attach(t, l, b, 1)

	c := l.AddEntry(l.Category("Mechanical"))
	c.Wire.Type = ledger.WireTypeAC90
	c.Wire.Length = "100"
	attach(t, l, c, 1)

	got := Compute(l)
	nmd := ledger.WireKey{Type: ledger.WireTypeNMD, Material: ledger.MaterialCopper}
	ac90 := ledger.WireKey{Type: ledger.WireTypeAC90, Material: ledger.MaterialCopper}
	if got.Wire[nmd] != 55 {
		t.Fatalf("NMD bucket = %g, want 55", got.Wire[nmd])
	}
	if got.Wire[ac90] != 100 {
		t.Fatalf("AC90 bucket = %g, want 100", got.Wire[ac90])
	}
	if len(got.Wire) != 2 {
		t.Fatalf("bucket count = %d, want 2", len(got.Wire))
	}
}

func TestComputeIgnoresDeletedShapes(t *testing.T) {
	l := ledger.New()
	e := l.AddEntry(l.Category("General"))
	e.Labor = "2"
	e.Wire.Length = "10"
	attach(t, l, e, 2)
	e.Shapes()[0].MarkDeleted()

	got := Compute(l)
	if got.Devices != 1 || got.Points != 1 {
		t.Fatalf("Devices=%d Points=%d, want 1/1", got.Devices, got.Points)
	}
	if got.Hours != 2 {
		t.Fatalf("Hours = %g, want 2", got.Hours)
	}
	key := ledger.WireKey{Type: ledger.WireTypeNMD, Material: ledger.MaterialCopper}
	if got.Wire[key] != 10 {
		t.Fatalf("wire = %g, want 10", got.Wire[key])
	}
}

func TestLaborSumsEveryEntryRegardlessOfName(t *testing.T) {
	l := ledger.New()

	a := l.AddEntry(l.Category("General"))
	a.Name = "Switch"
	a.Labor = "1.5"
	attach(t, l, a, 3)

	b := l.AddEntry(l.Category("Lighting"))
	// Unnamed entries still contribute.
	b.Labor = "2.0"
	attach(t, l, b, 1)

	c := l.AddEntry(l.Category("Demo"))
	c.Name = "Tear-out"
	c.Labor = "0.25"
	attach(t, l, c, 4)

	if got, want := Labor(l), 3*1.5+1*2.0+4*0.25; got != want {
		t.Fatalf("Labor = %g, want %g", got, want)
	}
}

func TestEmptyLedgerTotals(t *testing.T) {
	got := Compute(ledger.New())
	if got.Hours != 0 || got.Devices != 0 || got.Points != 0 || len(got.Wire) != 0 {
		t.Fatalf("empty totals = %+v", got)
	}
}
