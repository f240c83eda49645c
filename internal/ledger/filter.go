package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrColumnMissing means the sheet lacks every column a filter matches on.
var ErrColumnMissing = errors.New("ledger: expected column missing")

// RowFilter selects matching rows out of a parsed report table.
type RowFilter func(t *Table) (*Table, error)

// refColumns are the columns a PO/PR reference may appear in. The sheets
// are inconsistent about underscores versus spaces, hence the mix.
var refColumns = []string{"po_number", "source desc", "line desc"}

// journalColumns are the accepted spellings of the journal document column.
var journalColumns = []string{"journal_doc_no", "journal doc no", "journal_doc"}

var (
	// refPattern pins a type token to its number. The separator is either
	// nothing ("PR123") or one non-alphanumeric followed by non-digits
	// ("PO-12345", "po 12345", "po nr 12345"); requiring the first
	// separator char to be non-alphanumeric keeps "pr" inside a longer
	// word from pairing with a later number.
	refPattern  = regexp.MustCompile(`(?i)(?:SPXBR-)?\b(PO|PR)(?:[^0-9A-Za-z][^0-9]*)?(\d+)`)
	nonDigits   = regexp.MustCompile(`\D+`)
	alnumTokens = regexp.MustCompile(`[A-Za-z0-9]+`)
)

// RefVariants normalizes a free-text PO/PR reference into the lowercase
// substrings to look for. A typed reference ("PO-123", "po 12345",
// "spxbr-pr123") yields two variants for that type; input without a
// recognizable type keeps only its digits and yields the variants for
// both types, since the type is ambiguous.
func RefVariants(raw string) []string {
	if m := refPattern.FindStringSubmatch(raw); m != nil {
		return typeVariants(strings.ToLower(m[1]), m[2])
	}
	num := nonDigits.ReplaceAllString(raw, "")
	if num == "" {
		return nil
	}
	return append(typeVariants("po", num), typeVariants("pr", num)...)
}

func typeVariants(typ, num string) []string {
	return []string{typ + "-" + num, "spxbr-" + typ + "-" + num}
}

// RefFilter matches rows whose reference columns contain any normalized
// variant of query as a case-insensitive substring.
func RefFilter(query string) RowFilter {
	variants := RefVariants(query)
	return func(t *Table) (*Table, error) {
		idxs := t.columnIndexes(refColumns...)
		if len(idxs) == 0 {
			return nil, fmt.Errorf("%w: none of %v", ErrColumnMissing, refColumns)
		}
		out := &Table{Columns: t.Columns}
		for _, row := range t.Rows {
			if rowContainsAny(row, idxs, variants) {
				out.Rows = append(out.Rows, row)
			}
		}
		return out, nil
	}
}

func rowContainsAny(row []string, idxs []int, variants []string) bool {
	for _, idx := range idxs {
		value := strings.ToLower(cell(row, idx))
		if value == "" {
			continue
		}
		for _, v := range variants {
			if strings.Contains(value, v) {
				return true
			}
		}
	}
	return false
}

// JournalFilter matches rows whose journal document number equals, after
// trimming, any of the requested ids. Matching is exact and case-sensitive:
// journal numbers are system-generated keys, and substring matching would
// drag in unrelated documents sharing digit runs.
func JournalFilter(ids []string) RowFilter {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = struct{}{}
		}
	}
	return func(t *Table) (*Table, error) {
		idx := t.columnIndex(journalColumns...)
		if idx < 0 {
			return nil, fmt.Errorf("%w: none of %v", ErrColumnMissing, journalColumns)
		}
		out := &Table{Columns: t.Columns}
		for _, row := range t.Rows {
			if _, ok := wanted[strings.TrimSpace(cell(row, idx))]; ok {
				out.Rows = append(out.Rows, row)
			}
		}
		return out, nil
	}
}

// JournalIDs extracts candidate journal document numbers from free text:
// every alphanumeric token carrying at least one digit.
func JournalIDs(text string) []string {
	var out []string
	for _, tok := range alnumTokens.FindAllString(text, -1) {
		if strings.ContainsAny(tok, "0123456789") {
			out = append(out, tok)
		}
	}
	return out
}
