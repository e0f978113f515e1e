package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnType is the inferred scalar kind of a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeEmpty   ColumnType = "empty"
)

// Column is a named, typed dataset column.
type Column struct {
	Name string
	Type ColumnType
}

// Dataset is a single immutable in-memory table. Every row holds exactly one
// cell per column; rows are normalized to the header width at construction.
type Dataset struct {
	Source string
	Sheet  string

	cols   []Column
	colIdx map[string]int
	rows   [][]string
}

// New builds a Dataset from a header and raw string rows. Column types are
// inferred from a bounded sample. Rows shorter than the header are padded
// with empty cells; longer rows are truncated.
func New(source, sheet string, header []string, rows [][]string) *Dataset {
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: strings.TrimSpace(name)}
	}

	normalized := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(header))
		copy(cells, row)
		normalized[i] = cells
	}

	ds := &Dataset{
		Source: source,
		Sheet:  sheet,
		cols:   cols,
		colIdx: make(map[string]int, len(cols)),
		rows:   normalized,
	}
	for i, c := range ds.cols {
		key := strings.ToLower(c.Name)
		if _, ok := ds.colIdx[key]; !ok {
			// Duplicate names resolve to the first occurrence.
			ds.colIdx[key] = i
		}
	}
	inferTypes(ds)
	return ds
}

func (d *Dataset) RowCount() int    { return len(d.rows) }
func (d *Dataset) ColumnCount() int { return len(d.cols) }

// Columns returns the ordered column list.
func (d *Dataset) Columns() []Column {
	out := make([]Column, len(d.cols))
	copy(out, d.cols)
	return out
}

// ColumnNames returns the ordered column names.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex resolves a column name case-insensitively.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.colIdx[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// ColumnType returns the inferred type for a named column.
func (d *Dataset) ColumnType(name string) (ColumnType, bool) {
	i, ok := d.ColumnIndex(name)
	if !ok {
		return "", false
	}
	return d.cols[i].Type, true
}

// Cell returns the raw cell value at (row, column index).
func (d *Dataset) Cell(row, col int) string {
	if row < 0 || row >= len(d.rows) || col < 0 || col >= len(d.cols) {
		return ""
	}
	return d.rows[row][col]
}

// Number parses the cell at (row, column index) as a float.
func (d *Dataset) Number(row, col int) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(d.Cell(row, col)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Row returns a copy of one row's cells in column order.
func (d *Dataset) Row(i int) []string {
	if i < 0 || i >= len(d.rows) {
		return nil
	}
	out := make([]string, len(d.rows[i]))
	copy(out, d.rows[i])
	return out
}

// summarySampleRows is how many leading rows the summary renders. Wide or
// deeply varied datasets are not fully described by this sample; callers
// must tolerate imprecise answers in that case.
const summarySampleRows = 3

// NoDataSummary is the sentinel summary when nothing is loaded.
const NoDataSummary = "No data loaded."

// Summary renders the fixed-format dataset description given to the
// translator as its only dataset context. It is a pure function of the
// dataset contents.
func (d *Dataset) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset summary:\n")
	fmt.Fprintf(&b, "- Total rows: %d\n", len(d.rows))
	fmt.Fprintf(&b, "- Total columns: %d\n", len(d.cols))

	parts := make([]string, len(d.cols))
	for i, c := range d.cols {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(parts, ", "))

	n := summarySampleRows
	if n > len(d.rows) {
		n = len(d.rows)
	}
	fmt.Fprintf(&b, "\nSample data (first %d rows):\n", n)
	b.WriteString(strings.Join(d.ColumnNames(), " | "))
	b.WriteString("\n")
	for i := 0; i < n; i++ {
		b.WriteString(strings.Join(d.rows[i], " | "))
		b.WriteString("\n")
	}
	return b.String()
}

// Store owns at most one loaded Dataset for a single session. Load replaces
// the dataset wholesale on success and leaves it untouched on failure.
type Store struct {
	current *Dataset
}

func NewStore() *Store {
	return &Store{}
}

// Load parses the source into a new Dataset and swaps it in. A failed load
// preserves any previously loaded dataset.
func (s *Store) Load(path, sheet string) error {
	ds, err := Load(path, sheet)
	if err != nil {
		return err
	}
	s.current = ds
	return nil
}

// Current returns the loaded dataset, or nil.
func (s *Store) Current() *Dataset {
	return s.current
}

// Loaded reports whether a dataset is present.
func (s *Store) Loaded() bool {
	return s.current != nil
}

// Summary returns the current dataset summary, or the no-data sentinel.
func (s *Store) Summary() string {
	if s.current == nil {
		return NoDataSummary
	}
	return s.current.Summary()
}
