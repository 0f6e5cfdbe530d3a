package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// File is a rendered export ready to download.
type File struct {
	Name string
	Rows int
	Body []byte
}

// Archiver keeps a copy of each export somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, name string, body []byte) error
}

// Exporter renders CSV files in the operator's timezone.
type Exporter struct {
	loc      *time.Location
	label    string
	archiver Archiver
	logger   *logging.Logger
	now      func() time.Time
}

// NewExporter loads tz and returns an exporter. archiver may be nil.
func NewExporter(tz, label string, archiver Archiver, logger *logging.Logger) (*Exporter, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("export: load timezone %q: %w", tz, err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if label == "" {
		label = "UTC"
	}
	return &Exporter{
		loc:      loc,
		label:    label,
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// TimeHeader returns e.g. "Created At (PH Time)".
func (e *Exporter) TimeHeader(prefix string) string {
	return fmt.Sprintf("%s (%s Time)", prefix, e.label)
}

// FormatTime renders t in the export timezone.
func (e *Exporter) FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.loc).Format("1/2/2006, 3:04:05 PM")
}

// Build renders the CSV and archives it best-effort.
func (e *Exporter) Build(ctx context.Context, entity string, headers []string, rows [][]string, textColumns ...int) (File, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, headers, rows, textColumns...); err != nil {
		return File{}, fmt.Errorf("export: write csv: %w", err)
	}
	file := File{
		Name: Filename(entity, e.now(), e.loc, e.label),
		Rows: len(rows),
		Body: buf.Bytes(),
	}
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, file.Name, file.Body); err != nil {
			e.logger.Warn("export archive failed", "error", err, "file", file.Name)
		}
	}
	return file, nil
}

// Serve writes f as a CSV attachment.
func Serve(w http.ResponseWriter, f File) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Body)
}
