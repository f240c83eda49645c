package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyResult means there is nothing to export; no workbook is written
// and no upload happens.
var ErrEmptyResult = errors.New("ledger: empty result, nothing to export")

const (
	defaultTag   = "resultado"
	maxTagLength = 50
)

var tagStrip = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeTag reduces a free-text tag to a filename-safe token: only
// [A-Za-z0-9_-], at most 50 characters, defaulting to "resultado".
func SanitizeTag(tag string) string {
	clean := tagStrip.ReplaceAllString(tag, "")
	if len(clean) > maxTagLength {
		clean = clean[:maxTagLength]
	}
	if clean == "" {
		clean = defaultTag
	}
	return clean
}

// Uploader stores a local file remotely and returns a shareable link.
type Uploader interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

// Exporter writes result tables to xlsx and uploads them.
type Exporter struct {
	up  Uploader
	dir string
	now func() time.Time
}

// ExporterOption customises an Exporter.
type ExporterOption func(*Exporter)

// WithWorkDir overrides the directory temporary workbooks are written to.
func WithWorkDir(dir string) ExporterOption {
	return func(e *Exporter) { e.dir = dir }
}

// WithExportClock overrides the timestamp source, mainly for tests.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

func NewExporter(up Uploader, opts ...ExporterOption) *Exporter {
	e := &Exporter{up: up, dir: os.TempDir(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes t to resultado_{tag}_{unix}.xlsx, uploads it to the output
// folder and returns the shareable link. The local file is removed
// afterwards on a best-effort basis.
func (e *Exporter) Export(ctx context.Context, t *Table, tag string) (string, error) {
	if t.Empty() {
		return "", ErrEmptyResult
	}

	name := fmt.Sprintf("resultado_%s_%d.xlsx", SanitizeTag(tag), e.now().Unix())
	path := filepath.Join(e.dir, name)
	if err := writeWorkbook(t, path); err != nil {
		return "", err
	}
	defer os.Remove(path)

	link, err := e.up.Upload(ctx, path, name)
	if err != nil {
		return "", err
	}
	return link, nil
}

func writeWorkbook(t *Table, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("ledger: write header: %w", err)
	}
	for i, row := range t.Rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("ledger: cell name: %w", err)
		}
		if err := wb.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("ledger: write row %d: %w", i+2, err)
		}
	}
	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("ledger: save workbook: %w", err)
	}
	return nil
}
