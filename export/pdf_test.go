package export

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/wudi/takeoffkit/ledger"
	"github.com/wudi/takeoffkit/mutate"
	"github.com/wudi/takeoffkit/session"
	"github.com/wudi/takeoffkit/shape"

	"seehuhn.de/go/pdf"
)

// onePageDoc builds a minimal single-page document for session loading.
func onePageDoc(t *testing.T) []byte {
	t.Helper()
	data := pdf.NewData(pdf.V1_7)
	pagesRef := data.Alloc()
	pageRef := data.Alloc()
	if err := data.Put(pageRef, pdf.Dict{
		"Type":   pdf.Name("Page"),
		"Parent": pagesRef,
		"MediaBox": pdf.Array{
			pdf.Integer(0), pdf.Integer(0), pdf.Integer(612), pdf.Integer(792),
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := data.Put(pagesRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{pageRef},
		"Count": pdf.Integer(1),
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

type recordingSaver struct {
	req  *mutate.Request
	dest string
	err  error
}

func (s *recordingSaver) Save(_ context.Context, req *mutate.Request, dest string) error {
	s.req = req
	s.dest = dest
	return s.err
}

type recordingPauser struct {
	events []string
}

func (p *recordingPauser) Stop()  { p.events = append(p.events, "stop") }
func (p *recordingPauser) Start() { p.events = append(p.events, "start") }

func TestAnnotatedPDFPausesRenderingAroundSave(t *testing.T) {
	sess, err := session.LoadBytes(onePageDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New()
	e := l.AddEntry(l.Category("General"))
	s := shape.NewRect(shape.Rect{X0: 10, Y0: 10, X1: 50, Y1: 40}, shape.Color{R: 1, A: 0.4})
	s.Page = 0
	l.AttachShape(e, s)

	saver := &recordingSaver{}
	pauser := &recordingPauser{}
	if err := AnnotatedPDF(context.Background(), sess, l, saver, pauser, "/tmp/out.pdf"); err != nil {
		t.Fatal(err)
	}

	if saver.dest != "/tmp/out.pdf" {
		t.Fatalf("dest = %q", saver.dest)
	}
	if len(saver.req.Shapes) != 1 {
		t.Fatalf("request shapes = %d, want 1", len(saver.req.Shapes))
	}
	if !bytes.Equal(saver.req.Original, sess.Original()) {
		t.Fatal("request does not carry the original bytes")
	}
	want := []string{"stop", "start"}
	if len(pauser.events) != 2 || pauser.events[0] != want[0] || pauser.events[1] != want[1] {
		t.Fatalf("pauser events = %v, want %v", pauser.events, want)
	}
}

func TestAnnotatedPDFRestartsRenderingOnFailure(t *testing.T) {
	sess, err := session.LoadBytes(onePageDoc(t))
	if err != nil {
		t.Fatal(err)
	}
	wantErr := errors.New("worker crashed")
	saver := &recordingSaver{err: wantErr}
	pauser := &recordingPauser{}

	err = AnnotatedPDF(context.Background(), sess, ledger.New(), saver, pauser, "/tmp/out.pdf")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if len(pauser.events) != 2 || pauser.events[1] != "start" {
		t.Fatalf("pauser events = %v, rendering not restarted", pauser.events)
	}
}

func TestAnnotatedPDFWithoutSession(t *testing.T) {
	err := AnnotatedPDF(context.Background(), nil, ledger.New(), &recordingSaver{}, nil, "/tmp/out.pdf")
	if !errors.Is(err, session.ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}
