package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractCSV reads the header plus at most the first 500 data rows and
// renders them as a markdown table.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	truncated := false
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read csv: %w", err)
		}
		// The row cap counts data rows; the header record rides along.
		if len(rows) == maxTableRows+1 {
			truncated = true
			break
		}
		rows = append(rows, record)
	}

	text := renderMarkdownTable(rows)
	if truncated {
		text += CSVTruncationMarker
	}
	return text, nil
}

// extractSpreadsheet samples the first sheet of a workbook, header plus
// 500 data rows max, using excelize's streaming row iterator so huge
// workbooks stay cheap.
func extractSpreadsheet(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		// Legacy .xls is not a zip container; this error routes the file
		// into the raw-salvage tier.
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	iter, err := f.Rows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}
	defer iter.Close()

	var rows [][]string
	truncated := false
	for iter.Next() {
		if len(rows) == maxTableRows+1 {
			truncated = true
			break
		}
		cols, err := iter.Columns()
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, cols)
	}

	text := renderMarkdownTable(rows)
	if truncated {
		text += SheetTruncationMarker
	}
	return text, nil
}

// renderMarkdownTable renders rows as a pipe table, first row as header.
// Cell newlines and pipes are flattened so the table survives re-parsing.
func renderMarkdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = sanitizeCell(row[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func sanitizeCell(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.NewReplacer("\n", " ", "\r", " ", "|", "\\|").Replace(s)
	return strings.TrimSpace(s)
}
