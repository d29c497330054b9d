// Package export produces the takeoff deliverables: the estimate
// spreadsheet, the HTML summary report, and the annotated document.
package export

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/wudi/takeoffkit/aggregate"
	"github.com/wudi/takeoffkit/ledger"
)

const (
	// SheetName is the single sheet holding the estimate.
	SheetName = "Estimate"
	// FirstDataRow is the fixed row offset where entry rows begin.
	FirstDataRow = 4
)

// Spreadsheet writes the estimate workbook to path: one (name, count) row
// per named entry, category sections separated by one blank row (none after
// the last), then a final ("Labor", total) row. Name presence is the only
// row filter; a named entry with count zero is still written. The labor
// total sums over all entries regardless of name.
func Spreadsheet(path string, l *ledger.Ledger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	row := FirstDataRow
	cats := l.Categories()
	for i, c := range cats {
		for _, e := range c.Entries() {
			if e.Name == "" {
				continue
			}
			if err := setCell(f, 1, row, e.Name); err != nil {
				return err
			}
			if err := setCell(f, 2, row, e.Count()); err != nil {
				return err
			}
			row++
		}
		if i < len(cats)-1 {
			row++
		}
	}

	labor := math.Round(aggregate.Labor(l)*100) / 100
	if err := setCell(f, 1, row, "Labor"); err != nil {
		return err
	}
	if err := setCell(f, 2, row, labor); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save spreadsheet %s: %w", path, err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("export: cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(SheetName, cell, v); err != nil {
		return fmt.Errorf("export: set %s: %w", cell, err)
	}
	return nil
}
