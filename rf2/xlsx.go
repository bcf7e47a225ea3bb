package rf2

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/clinvoc/termgraph/concept"
	"github.com/clinvoc/termgraph/sctid"
)

// ReadSubsetXLSX reads a concept subset from a spreadsheet: the first cell
// of every row, across all sheets. Cells are parsed as SNOMED CT
// identifiers where possible; plainly numeric cells that fail the strict
// check (local or test codes) are still accepted, and non-numeric cells
// (headers, labels) are skipped.
func ReadSubsetXLSX(path string) (concept.Set, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return concept.Set{}, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	subset := concept.NewSet()
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			cell := strings.TrimSpace(row[0])
			if cell == "" || !isDigits(cell) {
				continue
			}
			id, err := sctid.ParseConcept(cell)
			if err != nil {
				// Not a checksummed SCTID; accept the raw number.
				raw, perr := parseID(cell)
				if perr != nil {
					continue
				}
				id = raw
			}
			subset.Add(id)
		}
	}

	if subset.IsEmpty() {
		return concept.Set{}, fmt.Errorf("no concept ids found in %s", path)
	}
	return subset, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
