package docread

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSX parses an Excel workbook: one table per non-empty sheet, plus a
// flattened text block per sheet so RawText covers the whole workbook.
func readXLSX(path string) (string, []Block, []Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var blocks []Block
	var tables []Table
	var title string

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		// GetRows trims trailing empty cells; pad to the widest row so the
		// grid stays rectangular.
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		grid := make([][]string, len(rows))
		for i, row := range rows {
			padded := make([]string, width)
			copy(padded, row)
			grid[i] = padded
		}

		if title == "" {
			title = sheet
		}
		t := Table{Name: sheet, Rows: grid}
		tables = append(tables, t)
		blocks = append(blocks, Block{
			Title: sheet,
			Level: 1,
			Text:  flattenTable(t),
			Type:  "table",
			Metadata: map[string]string{
				"sheet_name": sheet,
				"row_count":  fmt.Sprintf("%d", len(rows)),
			},
		})
	}

	if len(tables) == 0 {
		return "", nil, nil, fmt.Errorf("no data found in workbook")
	}
	return title, blocks, tables, nil
}
