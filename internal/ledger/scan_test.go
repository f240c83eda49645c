package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/glbot/glbot/internal/drive"
)

// reportBytes builds a workbook with the report sheet layout: title on the
// first row, header on the second, data after that.
func reportBytes(t *testing.T, header []string, rows [][]string) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	if _, err := wb.NewSheet(ReportSheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	title := []any{"General Ledger Report"}
	if err := wb.SetSheetRow(ReportSheet, "A1", &title); err != nil {
		t.Fatalf("title row: %v", err)
	}
	h := make([]any, len(header))
	for i, c := range header {
		h[i] = c
	}
	if err := wb.SetSheetRow(ReportSheet, "A2", &h); err != nil {
		t.Fatalf("header row: %v", err)
	}
	for i, row := range rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := wb.SetSheetRow(ReportSheet, cellRef, &values); err != nil {
			t.Fatalf("data row: %v", err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

type fakeStore struct {
	files    []drive.LedgerFile
	contents map[string][]byte
	failing  map[string]bool
}

func (f *fakeStore) ListLedgerFiles(ctx context.Context, max int) ([]drive.LedgerFile, error) {
	if max < len(f.files) {
		return f.files[:max], nil
	}
	return f.files, nil
}

func (f *fakeStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	if f.failing[fileID] {
		return nil, errors.New("boom")
	}
	data, ok := f.contents[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown file %s", fileID)
	}
	return data, nil
}

func TestParseReportHeaderOnSecondRow(t *testing.T) {
	data := reportBytes(t, []string{"PO_NUMBER", "AMOUNT"}, [][]string{{"PO-1", "10"}})
	table, err := ParseReport(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if table.Columns[0] != "PO_NUMBER" {
		t.Fatalf("header not taken from second row: %v", table.Columns)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "PO-1" {
		t.Fatalf("rows: %v", table.Rows)
	}
}

func TestParseReportMissingSheet(t *testing.T) {
	wb := excelize.NewFile()
	buf, err := wb.WriteToBuffer()
	wb.Close()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	if _, err := ParseReport(buf.Bytes()); err == nil {
		t.Fatal("expected error for workbook without report sheet")
	}
}

func TestScanTagsProvenanceAndConcatenates(t *testing.T) {
	store := &fakeStore{
		files: []drive.LedgerFile{
			{ID: "f1", Name: "GL_FP_2025_07.xlsx"},
			{ID: "f2", Name: "GL_FP_2025_06.xlsx"},
		},
		contents: map[string][]byte{
			"f1": reportBytes(t, []string{"po_number"}, [][]string{{"PO-12345"}, {"PO-777"}}),
			"f2": reportBytes(t, []string{"po_number"}, [][]string{{"SPXBR-PO-12345"}}),
		},
	}
	s := NewScanner(store, nil)

	got, err := s.Scan(context.Background(), RefFilter("po 12345"), 12)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", got.Rows)
	}
	srcIdx := len(got.Columns) - 1
	if got.Columns[srcIdx] != SourceColumn {
		t.Fatalf("missing provenance column: %v", got.Columns)
	}
	if got.Rows[0][srcIdx] != "GL_FP_2025_07.xlsx" || got.Rows[1][srcIdx] != "GL_FP_2025_06.xlsx" {
		t.Fatalf("provenance values: %v", got.Rows)
	}
}

func TestScanSkipsFailingFiles(t *testing.T) {
	store := &fakeStore{
		files: []drive.LedgerFile{
			{ID: "f1", Name: "GL_FP_2025_07.xlsx"},
			{ID: "f2", Name: "GL_FP_2025_06.xlsx"},
			{ID: "f3", Name: "GL_FP_2025_05.xlsx"},
		},
		contents: map[string][]byte{
			"f1": reportBytes(t, []string{"po_number"}, [][]string{{"PO-111"}}),
			"f3": reportBytes(t, []string{"po_number"}, [][]string{{"PO-111"}}),
		},
		failing: map[string]bool{"f2": true},
	}
	s := NewScanner(store, nil)

	got, err := s.Scan(context.Background(), RefFilter("po 111"), 12)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected matches from healthy files, got %v", got.Rows)
	}
}

func TestScanSkipsFilesMissingColumns(t *testing.T) {
	store := &fakeStore{
		files: []drive.LedgerFile{
			{ID: "f1", Name: "GL_FP_2025_07.xlsx"},
			{ID: "f2", Name: "GL_FP_2025_06.xlsx"},
		},
		contents: map[string][]byte{
			"f1": reportBytes(t, []string{"other"}, [][]string{{"x"}}),
			"f2": reportBytes(t, []string{"po_number"}, [][]string{{"PO-222"}}),
		},
	}
	s := NewScanner(store, nil)

	got, err := s.Scan(context.Background(), RefFilter("po 222"), 12)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Fatalf("expected 1 row from the well-formed file, got %v", got.Rows)
	}
}

func TestScanEmptyWhenNothingMatches(t *testing.T) {
	store := &fakeStore{
		files:    []drive.LedgerFile{{ID: "f1", Name: "GL_FP_2025_07.xlsx"}},
		contents: map[string][]byte{"f1": reportBytes(t, []string{"po_number"}, [][]string{{"PO-1"}})},
	}
	s := NewScanner(store, nil)

	got, err := s.Scan(context.Background(), RefFilter("po 99999"), 12)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty table, got %v", got.Rows)
	}
}
