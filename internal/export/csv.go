// Package export renders admin tables as spreadsheet-safe CSV files.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// BOM marks the file as UTF-8 for spreadsheet tools.
	BOM = "\uFEFF"
	// TextMarker is prefixed to phone cells so spreadsheets keep them as text
	// instead of coercing to scientific notation.
	TextMarker = "\u200B"
)

// WriteCSV writes a header row and data rows. Every field is double-quoted.
// Cells in textColumns get TextMarker prepended when non-empty.
func WriteCSV(w io.Writer, headers []string, rows [][]string, textColumns ...int) error {
	marked := make(map[int]bool, len(textColumns))
	for _, c := range textColumns {
		marked[c] = true
	}

	var buf bytes.Buffer
	buf.WriteString(BOM)
	writeRow(&buf, headers, nil)
	for _, row := range rows {
		buf.WriteByte('\n')
		writeRow(&buf, row, marked)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeRow(buf *bytes.Buffer, cells []string, marked map[int]bool) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		if marked[i] && cell != "" {
			buf.WriteString(TextMarker)
		}
		buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		buf.WriteByte('"')
	}
}

// Filename builds <entity>-YYYY-MM-DD-HHMM-<label>.csv in loc.
func Filename(entity string, now time.Time, loc *time.Location, label string) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s-%s-%s.csv", entity, now.In(loc).Format("2006-01-02-1504"), label)
}
