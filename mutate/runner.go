package mutate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/wudi/takeoffkit/observability"
)

// ErrWorkerFailed reports that the annotate worker exited with a failure
// status or could not be launched. The destination document is unchanged.
var ErrWorkerFailed = errors.New("mutate: worker failed, document unchanged")

// DefaultWorker is the worker binary looked up on PATH when a Runner does
// not name one explicitly.
const DefaultWorker = "takeoff-annotate"

// Runner invokes the annotate worker as an isolated process. The call is
// synchronous and at-most-once: no retries, no partial results. A crash or
// hang in the worker cannot touch the interactive session; all data crosses
// the boundary by value through the bundle file.
type Runner struct {
	// Worker is the path to the worker binary. Empty means DefaultWorker
	// resolved via PATH.
	Worker string

	// Timeout, when positive, bounds the worker run; expiry counts as a
	// failure with document-unchanged semantics.
	Timeout time.Duration

	Log observability.Logger
}

func (r *Runner) logger() observability.Logger {
	if r.Log != nil {
		return r.Log
	}
	return observability.NopLogger{}
}

// Save writes the request to a bundle file, runs the worker with the
// destination path and bundle path as arguments, and interprets its exit
// status. On any failure the destination is untouched and the returned
// error wraps ErrWorkerFailed.
func (r *Runner) Save(ctx context.Context, req *Request, dest string) error {
	log := r.logger()

	bundle, err := os.CreateTemp("", "takeoff-bundle-*.json")
	if err != nil {
		return fmt.Errorf("%w: create bundle: %v", ErrWorkerFailed, err)
	}
	bundlePath := bundle.Name()
	defer os.Remove(bundlePath)

	if err := req.Encode(bundle); err != nil {
		bundle.Close()
		return fmt.Errorf("%w: encode bundle: %v", ErrWorkerFailed, err)
	}
	if err := bundle.Close(); err != nil {
		return fmt.Errorf("%w: flush bundle: %v", ErrWorkerFailed, err)
	}

	worker := r.Worker
	if worker == "" {
		worker = DefaultWorker
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, worker, dest, bundlePath)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	log.Info("running annotate worker",
		observability.String("worker", worker),
		observability.String("dest", dest),
		observability.Int(observability.MetricMutateShapes, len(req.Shapes)))

	if err := cmd.Run(); err != nil {
		log.Error("annotate worker failed",
			observability.Error("err", err),
			observability.String("stderr", strings.TrimSpace(stderr.String())))
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", ErrWorkerFailed, msg)
		}
		return fmt.Errorf("%w: %v", ErrWorkerFailed, err)
	}

	log.Info("annotate worker finished",
		observability.Float(observability.MetricMutateDuration, time.Since(start).Seconds()))
	return nil
}

// Direct applies the mutation in-process. It honors the same
// document-unchanged-on-failure contract as the worker but without process
// isolation; intended for the export CLI and tests.
type Direct struct{}

// Save implements the same contract as Runner.Save.
func (Direct) Save(_ context.Context, req *Request, dest string) error {
	if _, err := ApplyToFile(req, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerFailed, err)
	}
	return nil
}
