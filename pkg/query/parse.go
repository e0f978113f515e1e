package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractExpression locates a fenced code block in model output and returns
// its body, or the trimmed raw text when no complete fence pair is present.
// This replaces naive first/last-line slicing: a lone opening or closing
// fence falls back to the raw text.
func ExtractExpression(text string) string {
	text = strings.TrimSpace(text)
	lines := strings.Split(text, "\n")

	open := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			open = i
			break
		}
	}
	if open == -1 {
		return text
	}
	closing := -1
	for i := len(lines) - 1; i > open; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			closing = i
			break
		}
	}
	if closing == -1 {
		return text
	}
	return strings.TrimSpace(strings.Join(lines[open+1:closing], "\n"))
}

// Parse decodes translator output into a Query. It tolerates markdown
// fences around the JSON and fills variant defaults: a query with an
// aggregate but no op becomes an aggregate query, otherwise select.
func Parse(text string) (*Query, error) {
	expr := ExtractExpression(text)
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}

	var q Query
	dec := json.NewDecoder(strings.NewReader(expr))
	if err := dec.Decode(&q); err != nil {
		return nil, fmt.Errorf("parse expression: %w (expression: %.200s)", err, expr)
	}

	q.Op = Op(strings.ToLower(strings.TrimSpace(string(q.Op))))
	q.Aggregate = Aggregate(strings.ToLower(strings.TrimSpace(string(q.Aggregate))))
	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	for i := range q.Where {
		q.Where[i].Op = CompareOp(strings.ToLower(strings.TrimSpace(string(q.Where[i].Op))))
	}

	if q.Op == "" {
		if q.Aggregate != "" {
			q.Op = OpAggregate
		} else {
			q.Op = OpSelect
		}
	}
	if q.Op == OpAggregate && q.Aggregate == "" {
		q.Aggregate = AggSum
	}
	return &q, nil
}
