// Package pipeline answers a batch of questions against one loaded dataset
// and emits a stable CSV of question/expression/result rows.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shpitdev/tabletalk/internal/translate"
	"github.com/shpitdev/tabletalk/internal/util"
	"github.com/shpitdev/tabletalk/pkg/dataset"
	"github.com/shpitdev/tabletalk/pkg/engine"
	"github.com/shpitdev/tabletalk/pkg/worker"
)

// Row is the stable output schema for one answered question.
type Row struct {
	Question   string
	Expression string
	Result     string
	Status     string
	Error      string
}

// Header returns the stable CSV header for Row.
func Header() []string {
	return []string{"question", "expression", "result", "status", "error"}
}

type Options struct {
	Workers        int
	MaxRetries     int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	FailFast       bool
	MaxResultRows  int
}

// AnswerQuestions translates and executes every question concurrently
// against the same read-only dataset. Per-question failures are recorded in
// their row and do not fail the run unless FailFast is set.
func AnswerQuestions(
	ctx context.Context,
	questions []string,
	ds *dataset.Dataset,
	tr translate.Translator,
	opts Options,
) ([]Row, error) {
	summary := ds.Summary()

	var engineOpts []engine.Option
	if opts.MaxResultRows > 0 {
		engineOpts = append(engineOpts, engine.WithMaxResultRows(opts.MaxResultRows))
	}

	type answer struct {
		expression string
		result     *engine.Result
	}
	process := func(ctx context.Context, question string) (answer, error) {
		question = strings.TrimSpace(question)
		if question == "" {
			return answer{}, fmt.Errorf("empty question")
		}
		expr, err := tr.Translate(ctx, question, summary)
		if err != nil {
			return answer{}, err
		}
		res, err := engine.ExecuteText(expr, ds, engineOpts...)
		if err != nil {
			return answer{expression: expr}, err
		}
		return answer{expression: expr, result: res}, nil
	}

	out, err := worker.ProcessAll(ctx, questions, process, worker.Options{
		Workers:        opts.Workers,
		MaxRetries:     opts.MaxRetries,
		RequestTimeout: opts.RequestTimeout,
		RateLimitRPS:   opts.RateLimitRPS,
		FailFast:       opts.FailFast,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(out))
	for _, item := range out {
		row := Row{
			Question:   strings.TrimSpace(item.Input),
			Expression: item.Output.expression,
		}
		if item.Err != nil {
			row.Status = "error"
			row.Error = util.RedactSecrets(item.Err.Error())
		} else {
			row.Status = "ok"
			row.Result = strings.TrimSpace(item.Output.result.Render())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadQuestionsCSV reads the "question" column from a CSV.
func ReadQuestionsCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "question") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing required column %q", "question")
	}

	var questions []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if idx >= len(rec) {
			return nil, fmt.Errorf("row has %d columns, want at least %d", len(rec), idx+1)
		}
		questions = append(questions, rec[idx])
	}
	return questions, nil
}

// WriteCSV writes rows as a CSV with the stable Header() ordering.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Question, r.Expression, r.Result, r.Status, r.Error}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
