// Command takeoff-annotate is the isolated mutation worker. It is invoked
// as
//
//	takeoff-annotate DEST BUNDLE
//
// where BUNDLE is a JSON request file holding the original document bytes
// and the shape descriptors. The worker writes the annotated document to a
// temporary file next to DEST and renames it over DEST only on full
// success. On any failure it writes a diagnostic log under the system temp
// directory and exits nonzero, leaving DEST untouched.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wudi/takeoffkit/mutate"
	"github.com/wudi/takeoffkit/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logPath := writeDiagnostic(err)
		fmt.Fprintf(os.Stderr, "takeoff-annotate: %v (log: %s)\n", err, logPath)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: takeoff-annotate DEST BUNDLE")
	}
	dest, bundlePath := args[0], args[1]

	bundle, err := os.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer bundle.Close()

	req, err := mutate.DecodeRequest(bundle)
	if err != nil {
		return err
	}

	stats, err := mutate.ApplyToFile(req, dest)
	if err != nil {
		return err
	}
	observability.NewTextLogger(os.Stderr).Info("annotations applied",
		observability.Int("applied", stats.Applied),
		observability.Int(observability.MetricMutateSkipped, stats.Skipped))
	return nil
}

// writeDiagnostic leaves a durable record of the failure for post-mortem.
// Best effort: if even the log cannot be written the exit status still
// tells the caller the document is unchanged.
func writeDiagnostic(cause error) string {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("takeoff-annotate-%d.log", os.Getpid()))
	f, err := os.Create(path)
	if err != nil {
		return "(unavailable)"
	}
	defer f.Close()
	log := observability.NewTextLogger(f)
	log.Error("mutation failed", observability.Error("err", cause))
	return path
}
