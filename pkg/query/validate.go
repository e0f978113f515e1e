package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shpitdev/tabletalk/pkg/dataset"
)

// Validate checks a query against a dataset before execution: every
// referenced column must exist, ordering comparisons and numeric
// aggregations require number-typed columns, and only grammar verbs are
// accepted. This is the allow-list between model output and the executor.
func Validate(q *Query, ds *dataset.Dataset) error {
	switch q.Op {
	case OpSelect, OpCount, OpAggregate:
	default:
		return fmt.Errorf("unknown operation %q", q.Op)
	}

	for _, name := range q.Columns {
		if _, ok := ds.ColumnIndex(name); !ok {
			return undefinedColumn(name, ds)
		}
	}

	for _, cond := range q.Where {
		if err := validateCondition(cond, ds); err != nil {
			return err
		}
	}

	if q.Op == OpAggregate {
		switch q.Aggregate {
		case AggSum, AggAvg, AggMin, AggMax, AggCount:
		default:
			return fmt.Errorf("unknown aggregation %q", q.Aggregate)
		}
		if q.Aggregate != AggCount {
			if q.Measure == "" {
				return fmt.Errorf("aggregation %q requires a measure column", q.Aggregate)
			}
			t, ok := ds.ColumnType(q.Measure)
			if !ok {
				return undefinedColumn(q.Measure, ds)
			}
			if t != dataset.TypeNumber {
				return fmt.Errorf("measure %q is %s, not number", q.Measure, t)
			}
		}
	}

	if q.GroupBy != "" {
		if _, ok := ds.ColumnIndex(q.GroupBy); !ok {
			return undefinedColumn(q.GroupBy, ds)
		}
	}

	switch q.SortBy {
	case "", SortValueDesc, SortValueAsc, SortLabelAsc, SortLabelDesc:
	default:
		return fmt.Errorf("unknown sort %q", q.SortBy)
	}

	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

func validateCondition(cond Condition, ds *dataset.Dataset) error {
	t, ok := ds.ColumnType(cond.Column)
	if !ok {
		return undefinedColumn(cond.Column, ds)
	}
	switch cond.Op {
	case CmpEq, CmpNeq, CmpContains:
		return nil
	case CmpGt, CmpGte, CmpLt, CmpLte:
		if t != dataset.TypeNumber {
			return fmt.Errorf("filter %q on column %q requires a number column, got %s", cond.Op, cond.Column, t)
		}
		if _, err := strconv.ParseFloat(cond.Value, 64); err != nil {
			return fmt.Errorf("filter %q on column %q: value %q is not numeric", cond.Op, cond.Column, cond.Value)
		}
		return nil
	default:
		return fmt.Errorf("unknown filter operator %q", cond.Op)
	}
}

func undefinedColumn(name string, ds *dataset.Dataset) error {
	return fmt.Errorf("undefined column %q (columns: %s)", name, strings.Join(ds.ColumnNames(), ", "))
}
