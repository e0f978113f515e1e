// Package engine evaluates validated queries against a loaded dataset.
// Execution is read-only: filter, optionally group, aggregate or project,
// sort, limit. Every failure comes back as an *ExecutionError; nothing
// panics past Execute.
package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shpitdev/tabletalk/pkg/dataset"
	"github.com/shpitdev/tabletalk/pkg/query"
)

// DefaultMaxResultRows caps how many rows a table result may carry.
// Truncation is reported on the Result, never silent.
const DefaultMaxResultRows = 50

// ExecutionError wraps anything that went wrong evaluating an expression:
// unparseable output, a reference to an undefined name, or a type mismatch.
type ExecutionError struct {
	Expression string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ResultKind distinguishes scalar answers from tabular ones.
type ResultKind string

const (
	KindScalar ResultKind = "scalar"
	KindTable  ResultKind = "table"
)

// Result is a computed query answer: either a single value or a sub-table.
type Result struct {
	Kind ResultKind

	// Scalar answer.
	Value float64

	// Table answer.
	Columns []string
	Rows    [][]string

	// Truncated counts rows dropped by the result cap.
	Truncated int
}

// Option adjusts execution behavior.
type Option func(*config)

type config struct {
	maxResultRows int
}

// WithMaxResultRows overrides the table result cap. Zero or negative keeps
// the default.
func WithMaxResultRows(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxResultRows = n
		}
	}
}

// ExecuteText parses expression text into a query and evaluates it. This is
// the boundary the session calls: any parse, validation, or evaluation
// failure is an *ExecutionError carrying the offending expression.
func ExecuteText(expression string, ds *dataset.Dataset, opts ...Option) (*Result, error) {
	q, err := query.Parse(expression)
	if err != nil {
		return nil, &ExecutionError{Expression: expression, Err: err}
	}
	res, err := Execute(q, ds, opts...)
	if err != nil {
		if ee, ok := err.(*ExecutionError); ok {
			ee.Expression = expression
		}
		return nil, err
	}
	return res, nil
}

// Execute evaluates an already-parsed query against the dataset.
func Execute(q *query.Query, ds *dataset.Dataset, opts ...Option) (*Result, error) {
	if ds == nil {
		return nil, &ExecutionError{Err: fmt.Errorf("no dataset loaded")}
	}
	cfg := config{maxResultRows: DefaultMaxResultRows}
	for _, o := range opts {
		o(&cfg)
	}

	if err := query.Validate(q, ds); err != nil {
		return nil, &ExecutionError{Err: err}
	}

	rows, err := filterRows(q.Where, ds)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	switch q.Op {
	case query.OpCount:
		return &Result{Kind: KindScalar, Value: float64(len(rows))}, nil
	case query.OpAggregate:
		return executeAggregate(q, ds, rows, cfg)
	case query.OpSelect:
		return executeSelect(q, ds, rows, cfg)
	default:
		return nil, &ExecutionError{Err: fmt.Errorf("unknown operation %q", q.Op)}
	}
}

// filterRows returns the indices of rows matching every condition.
// Conditions are AND-combined; equality and contains are case-insensitive.
func filterRows(where []query.Condition, ds *dataset.Dataset) ([]int, error) {
	out := make([]int, 0, ds.RowCount())
	for i := 0; i < ds.RowCount(); i++ {
		pass := true
		for _, cond := range where {
			ok, err := matches(cond, ds, i)
			if err != nil {
				return nil, err
			}
			if !ok {
				pass = false
				break
			}
		}
		if pass {
			out = append(out, i)
		}
	}
	return out, nil
}

func matches(cond query.Condition, ds *dataset.Dataset, row int) (bool, error) {
	col, ok := ds.ColumnIndex(cond.Column)
	if !ok {
		return false, fmt.Errorf("undefined column %q", cond.Column)
	}
	cell := ds.Cell(row, col)

	switch cond.Op {
	case query.CmpEq:
		return strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(cond.Value)), nil
	case query.CmpNeq:
		return !strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(cond.Value)), nil
	case query.CmpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(strings.TrimSpace(cond.Value))), nil
	case query.CmpGt, query.CmpGte, query.CmpLt, query.CmpLte:
		have, ok := ds.Number(row, col)
		if !ok {
			// Blank or malformed cells never match an ordering filter.
			return false, nil
		}
		want, err := strconv.ParseFloat(cond.Value, 64)
		if err != nil {
			return false, fmt.Errorf("filter value %q is not numeric", cond.Value)
		}
		switch cond.Op {
		case query.CmpGt:
			return have > want, nil
		case query.CmpGte:
			return have >= want, nil
		case query.CmpLt:
			return have < want, nil
		default:
			return have <= want, nil
		}
	default:
		return false, fmt.Errorf("unknown filter operator %q", cond.Op)
	}
}

func executeSelect(q *query.Query, ds *dataset.Dataset, rows []int, cfg config) (*Result, error) {
	names := q.Columns
	if len(names) == 0 {
		names = ds.ColumnNames()
	}
	idx := make([]int, len(names))
	header := make([]string, len(names))
	for i, name := range names {
		c, ok := ds.ColumnIndex(name)
		if !ok {
			return nil, &ExecutionError{Err: fmt.Errorf("undefined column %q", name)}
		}
		idx[i] = c
		header[i] = ds.Columns()[c].Name
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	truncated := 0
	if len(rows) > cfg.maxResultRows {
		truncated = len(rows) - cfg.maxResultRows
		rows = rows[:cfg.maxResultRows]
	}

	out := make([][]string, len(rows))
	for i, r := range rows {
		cells := make([]string, len(idx))
		for j, c := range idx {
			cells[j] = ds.Cell(r, c)
		}
		out[i] = cells
	}
	return &Result{Kind: KindTable, Columns: header, Rows: out, Truncated: truncated}, nil
}

func executeAggregate(q *query.Query, ds *dataset.Dataset, rows []int, cfg config) (*Result, error) {
	if q.GroupBy == "" {
		v, err := aggregateValue(q.Aggregate, q.Measure, ds, rows)
		if err != nil {
			return nil, &ExecutionError{Err: err}
		}
		return &Result{Kind: KindScalar, Value: v}, nil
	}

	groupCol, ok := ds.ColumnIndex(q.GroupBy)
	if !ok {
		return nil, &ExecutionError{Err: fmt.Errorf("undefined column %q", q.GroupBy)}
	}

	// Group in first-seen order, then aggregate per group.
	grouped := make(map[string][]int)
	var order []string
	for _, r := range rows {
		key := ds.Cell(r, groupCol)
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}

	type groupValue struct {
		label string
		value float64
	}
	groups := make([]groupValue, 0, len(order))
	for _, key := range order {
		v, err := aggregateValue(q.Aggregate, q.Measure, ds, grouped[key])
		if err != nil {
			return nil, &ExecutionError{Err: err}
		}
		groups = append(groups, groupValue{label: key, value: v})
	}

	switch q.SortBy {
	case query.SortValueDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].value > groups[j].value })
	case query.SortValueAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].value < groups[j].value })
	case query.SortLabelAsc:
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].label) < strings.ToLower(groups[j].label) })
	case query.SortLabelDesc:
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].label) > strings.ToLower(groups[j].label) })
	}

	if q.Limit > 0 && len(groups) > q.Limit {
		groups = groups[:q.Limit]
	}
	truncated := 0
	if len(groups) > cfg.maxResultRows {
		truncated = len(groups) - cfg.maxResultRows
		groups = groups[:cfg.maxResultRows]
	}

	valueHeader := string(q.Aggregate)
	if q.Measure != "" {
		valueHeader = fmt.Sprintf("%s(%s)", q.Aggregate, q.Measure)
	}
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = []string{g.label, formatNumber(g.value)}
	}
	return &Result{
		Kind:      KindTable,
		Columns:   []string{q.GroupBy, valueHeader},
		Rows:      out,
		Truncated: truncated,
	}, nil
}

func aggregateValue(agg query.Aggregate, measure string, ds *dataset.Dataset, rows []int) (float64, error) {
	if agg == query.AggCount {
		return float64(len(rows)), nil
	}
	col, ok := ds.ColumnIndex(measure)
	if !ok {
		return 0, fmt.Errorf("undefined column %q", measure)
	}

	var sum float64
	var min, max float64
	n := 0
	for _, r := range rows {
		v, ok := ds.Number(r, col)
		if !ok {
			continue
		}
		if n == 0 {
			min, max = v, v
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		sum += v
		n++
	}

	switch agg {
	case query.AggSum:
		return sum, nil
	case query.AggAvg:
		if n == 0 {
			return 0, nil
		}
		return sum / float64(n), nil
	case query.AggMin:
		return min, nil
	case query.AggMax:
		return max, nil
	default:
		return 0, fmt.Errorf("unknown aggregation %q", agg)
	}
}
