// Command takeoff-export turns a source document plus a saved takeoff
// project into the three deliverables: the estimate spreadsheet, the HTML
// summary report, and the annotated document.
//
//	takeoff-export -doc plans.pdf -project site.takeoff.json [-out dir]
//	               [-worker takeoff-annotate] [-script price.js]
//
// Without -worker the mutation runs in-process; with it the save goes
// through the isolated worker exactly as the interactive application does.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wudi/takeoffkit/aggregate"
	"github.com/wudi/takeoffkit/export"
	"github.com/wudi/takeoffkit/mutate"
	"github.com/wudi/takeoffkit/observability"
	"github.com/wudi/takeoffkit/project"
	"github.com/wudi/takeoffkit/script"
	"github.com/wudi/takeoffkit/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "takeoff-export: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		docPath     = flag.String("doc", "", "source document (PDF)")
		projectPath = flag.String("project", "", "saved takeoff project (JSON)")
		outDir      = flag.String("out", "", "output directory (default: alongside the document)")
		worker      = flag.String("worker", "", "annotate worker binary; empty runs the mutation in-process")
		scriptPath  = flag.String("script", "", "optional estimate script run over the totals")
	)
	flag.Parse()

	if *docPath == "" || *projectPath == "" {
		flag.Usage()
		return fmt.Errorf("both -doc and -project are required")
	}

	log := observability.NewTextLogger(os.Stderr)
	ctx := context.Background()
	start := time.Now()

	sess, err := session.Load(*docPath)
	if err != nil {
		return err
	}
	_, led, err := project.LoadFile(*projectPath)
	if err != nil {
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = filepath.Dir(*docPath)
	}
	base := strings.TrimSuffix(filepath.Base(*docPath), filepath.Ext(*docPath))

	xlsxPath := filepath.Join(dir, base+".xlsx")
	if err := export.Spreadsheet(xlsxPath, led); err != nil {
		return err
	}
	log.Info("wrote spreadsheet", observability.String("path", xlsxPath))

	htmlPath := filepath.Join(dir, base+".estimate.html")
	htmlFile, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := export.Report(htmlFile, led); err != nil {
		htmlFile.Close()
		return err
	}
	if err := htmlFile.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	log.Info("wrote report", observability.String("path", htmlPath))

	var saver export.Saver = mutate.Direct{}
	if *worker != "" {
		saver = &mutate.Runner{Worker: *worker, Log: log}
	}
	pdfPath := filepath.Join(dir, base+".annotated.pdf")
	if err := export.AnnotatedPDF(ctx, sess, led, saver, nil, pdfPath); err != nil {
		return err
	}
	log.Info("wrote annotated document", observability.String("path", pdfPath))
	log.Info("export complete",
		observability.Float(observability.MetricExportDuration, time.Since(start).Seconds()))

	if *scriptPath != "" {
		src, err := os.ReadFile(*scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		result, err := script.NewHook().Run(ctx, string(src), aggregate.Compute(led))
		if err != nil {
			return err
		}
		fmt.Printf("estimate script result: %v\n", result)
	}

	totals := aggregate.Compute(led)
	fmt.Printf("hours=%.2f devices=%d points=%d wire-buckets=%d\n",
		totals.Hours, totals.Devices, totals.Points, len(totals.Wire))
	return nil
}
