package ledger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/glbot/glbot/internal/drive"
)

const (
	// ReportSheet is the worksheet holding the transaction rows.
	ReportSheet = "ReportOutput"
	// SourceColumn names the provenance column added to matched rows.
	SourceColumn = "source_file"
)

// Store lists and downloads ledger workbooks.
type Store interface {
	ListLedgerFiles(ctx context.Context, max int) ([]drive.LedgerFile, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Scanner walks the most recent ledger workbooks and collects filter matches.
type Scanner struct {
	store Store
	log   *slog.Logger
}

func NewScanner(store Store, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{store: store, log: log}
}

// Scan applies filter to up to maxFiles workbooks, newest first, tagging
// every surviving row with its source file name and concatenating results
// in scan order. A workbook that fails to download, parse or filter is
// logged and skipped; it never aborts the scan.
func (s *Scanner) Scan(ctx context.Context, filter RowFilter, maxFiles int) (*Table, error) {
	files, err := s.store.ListLedgerFiles(ctx, maxFiles)
	if err != nil {
		return nil, err
	}

	out := &Table{}
	for _, f := range files {
		data, err := s.store.Download(ctx, f.ID)
		if err != nil {
			s.log.Warn("ledger file download failed, skipping", "file", f.Name, "error", err)
			continue
		}
		t, err := ParseReport(data)
		if err != nil {
			s.log.Warn("ledger file parse failed, skipping", "file", f.Name, "error", err)
			continue
		}
		matched, err := filter(t)
		if err != nil {
			s.log.Warn("ledger file filter failed, skipping", "file", f.Name, "error", err)
			continue
		}
		if matched.Empty() {
			continue
		}
		matched.AddColumn(SourceColumn, f.Name)
		out.Append(matched)
	}
	return out, nil
}

// ParseReport opens workbook bytes and extracts the ReportOutput sheet as a
// table. The sheet carries a title on the first physical row; the header is
// the second row and data starts on the third.
func ParseReport(data []byte) (*Table, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ledger: open workbook: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(ReportSheet)
	if err != nil {
		return nil, fmt.Errorf("ledger: read sheet %q: %w", ReportSheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("ledger: sheet %q has no header row", ReportSheet)
	}

	header := rows[1]
	t := &Table{Columns: append([]string(nil), header...)}
	for _, raw := range rows[2:] {
		row := make([]string, len(header))
		copy(row, raw)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
