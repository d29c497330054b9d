package export

import (
	"context"
	"fmt"

	"github.com/wudi/takeoffkit/ledger"
	"github.com/wudi/takeoffkit/mutate"
	"github.com/wudi/takeoffkit/session"
)

// Saver runs a mutation request against a destination path. Implemented by
// mutate.Runner (isolated worker) and mutate.Direct (in-process).
type Saver interface {
	Save(ctx context.Context, req *mutate.Request, dest string) error
}

// Pauser quiesces background rendering around the mutation: Stop must block
// until confirmed termination, Start must restart unconditionally.
// Implemented by render.Thumbnailer.
type Pauser interface {
	Stop()
	Start()
}

// AnnotatedPDF materializes every committed shape into a fresh copy of the
// session's original bytes and writes the result to dest. Background
// rendering, when supplied, is stopped for the duration of the save and
// restarted even if the save fails. On failure dest is unchanged.
func AnnotatedPDF(ctx context.Context, s *session.Session, l *ledger.Ledger, saver Saver, pauser Pauser, dest string) error {
	if s == nil {
		return session.ErrNotLoaded
	}
	req := &mutate.Request{
		Original: s.Original(),
		Shapes:   l.AllShapes(),
	}

	run := func() error { return saver.Save(ctx, req, dest) }
	var err error
	if pauser != nil {
		pauser.Stop()
		defer pauser.Start()
		err = run()
	} else {
		err = run()
	}
	if err != nil {
		return fmt.Errorf("export: annotated document: %w", err)
	}
	return nil
}
