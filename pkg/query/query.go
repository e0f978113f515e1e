// Package query defines the fixed grammar the translator targets: a small
// tagged-variant query (select / count / aggregate with filters and
// grouping) that is parsed and validated before anything touches the
// dataset. Nothing in the grammar can mutate data.
package query

// Op selects the query variant.
type Op string

const (
	OpSelect    Op = "select"
	OpCount     Op = "count"
	OpAggregate Op = "aggregate"
)

// Aggregate names a reduction over a numeric measure.
type Aggregate string

const (
	AggSum   Aggregate = "sum"
	AggAvg   Aggregate = "avg"
	AggMin   Aggregate = "min"
	AggMax   Aggregate = "max"
	AggCount Aggregate = "count"
)

// CompareOp is a filter comparison operator.
type CompareOp string

const (
	CmpEq       CompareOp = "eq"
	CmpNeq      CompareOp = "neq"
	CmpContains CompareOp = "contains"
	CmpGt       CompareOp = "gt"
	CmpGte      CompareOp = "gte"
	CmpLt       CompareOp = "lt"
	CmpLte      CompareOp = "lte"
)

// Condition filters rows on one column. Conditions in a Where list are
// AND-combined. Ordering operators apply to number columns only.
type Condition struct {
	Column string    `json:"column"`
	Op     CompareOp `json:"op"`
	Value  string    `json:"value"`
}

// Query is the contract between the translator and the executor.
//
//   - select:    project Columns (all when empty) from rows matching Where
//   - count:     number of rows matching Where
//   - aggregate: reduce Measure over rows matching Where, optionally per
//     GroupBy value
type Query struct {
	Op        Op          `json:"op"`
	Columns   []string    `json:"columns,omitempty"`
	Where     []Condition `json:"where,omitempty"`
	Aggregate Aggregate   `json:"aggregate,omitempty"`
	Measure   string      `json:"measure,omitempty"`
	GroupBy   string      `json:"groupBy,omitempty"`
	SortBy    string      `json:"sortBy,omitempty"`
	Limit     int         `json:"limit,omitempty"`
}

// SortBy values.
const (
	SortValueDesc = "value_desc"
	SortValueAsc  = "value_asc"
	SortLabelAsc  = "label_asc"
	SortLabelDesc = "label_desc"
)
