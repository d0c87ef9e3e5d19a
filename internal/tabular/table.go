// Package tabular answers questions over one in-memory table through a
// bounded reasoning loop. The model plans one operation per step from a
// closed set (filter, aggregate, group, preview); nothing it emits is
// ever executed as code.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind classifies a column for operator validation.
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

func (k Kind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "text"
}

// Table is an immutable dataset loaded once at startup.
type Table struct {
	name    string
	columns []string
	kinds   []Kind
	rows    [][]string
}

// LoadCSV reads the dataset from path. The first record is the header;
// a column is numeric when every non-empty cell parses as a float.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	header := records[0]
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("dataset %s has a blank column name", path)
		}
		if seen[col] {
			return nil, fmt.Errorf("dataset %s has duplicate column %q", path, col)
		}
		seen[col] = true
	}

	rows := records[1:]
	return &Table{
		name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		columns: header,
		kinds:   inferKinds(header, rows),
		rows:    rows,
	}, nil
}

func inferKinds(columns []string, rows [][]string) []Kind {
	kinds := make([]Kind, len(columns))
	for i := range columns {
		kinds[i] = KindString
		numeric := false
		ok := true
		for _, row := range rows {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				ok = false
				break
			}
			numeric = true
		}
		if ok && numeric {
			kinds[i] = KindNumber
		}
	}
	return kinds
}

// Name is the dataset name derived from the file name.
func (t *Table) Name() string { return t.name }

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// RowCount reports the number of data rows.
func (t *Table) RowCount() int { return len(t.rows) }

// Schema renders the columns with their kinds for the planner prompt.
func (t *Table) Schema() string {
	parts := make([]string, len(t.columns))
	for i, col := range t.columns {
		parts[i] = fmt.Sprintf("%s (%s)", col, t.kinds[i])
	}
	return strings.Join(parts, ", ")
}

// colIndex resolves a column name, case-insensitively as a fallback.
func (t *Table) colIndex(name string) (int, error) {
	for i, col := range t.columns {
		if col == name {
			return i, nil
		}
	}
	for i, col := range t.columns {
		if strings.EqualFold(col, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}
