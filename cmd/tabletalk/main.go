package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/tabletalk/internal/app"
	"github.com/shpitdev/tabletalk/internal/config"
	"github.com/shpitdev/tabletalk/internal/pipeline"
	"github.com/shpitdev/tabletalk/internal/translate/gemini"
	"github.com/shpitdev/tabletalk/internal/util"
	"github.com/shpitdev/tabletalk/internal/version"
	"github.com/shpitdev/tabletalk/pkg/dataset"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		fmt.Println(version.Current)
		return
	case "files":
		os.Exit(runFiles(os.Args[2:]))
	case "sheets":
		os.Exit(runSheets(os.Args[2:]))
	case "summary":
		os.Exit(runSummary(os.Args[2:]))
	case "ask":
		os.Exit(runAsk(ctx, os.Args[2:]))
	case "chat":
		os.Exit(runChat(ctx, os.Args[2:]))
	case "batch":
		os.Exit(runBatch(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runFiles(args []string) int {
	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", ".", "Directory to scan for loadable files")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	files, err := dataset.FindFiles(*dir)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "files failed: %s\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Printf("no loadable files in %s\n", *dir)
		return 0
	}
	for _, f := range files {
		fmt.Printf("%s\t(modified %s)\n", f.Name, f.ModTime.Format("2006-01-02 15:04"))
	}
	return 0
}

func runSheets(args []string) int {
	fs := flag.NewFlagSet("sheets", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Source file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		_, _ = fmt.Fprintln(os.Stderr, "sheets requires --input")
		return 2
	}

	sheets, err := dataset.ListSheets(*input)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sheets failed: %s\n", err)
		return 1
	}
	for _, s := range sheets {
		fmt.Println(s)
	}
	return 0
}

func runSummary(args []string) int {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Source file path")
	sheet := fs.String("sheet", "", "Sheet name (workbooks only; empty = first)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		_, _ = fmt.Fprintln(os.Stderr, "summary requires --input")
		return 2
	}

	ds, err := dataset.Load(*input, *sheet)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load failed: %s\n", err)
		return 1
	}
	fmt.Print(ds.Summary())
	return 0
}

func runAsk(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Source file path")
	sheet := fs.String("sheet", "", "Sheet name (workbooks only; empty = first)")
	question := fs.String("question", "", "Natural language question")
	addTranslatorFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" || *question == "" {
		_, _ = fmt.Fprintln(os.Stderr, "ask requires --input and --question")
		return 2
	}

	session, code := newSession(ctx, cfg)
	if session == nil {
		return code
	}
	if err := session.Load(*input, *sheet); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load failed: %s\n", err)
		return 1
	}

	ans := session.Ask(ctx, *question)
	printAnswer(ans)
	if ans.Err != nil {
		return 1
	}
	return 0
}

func runChat(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Source file path")
	sheet := fs.String("sheet", "", "Sheet name (workbooks only; empty = first)")
	addTranslatorFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		_, _ = fmt.Fprintln(os.Stderr, "chat requires --input")
		return 2
	}

	session, code := newSession(ctx, cfg)
	if session == nil {
		return code
	}
	if err := session.Load(*input, *sheet); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load failed: %s\n", err)
		return 1
	}

	ds := session.Store.Current()
	fmt.Printf("Loaded %s: %d rows, %d columns. Ask about your data (\"exit\" to quit).\n",
		ds.Source, ds.RowCount(), ds.ColumnCount())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		printAnswer(session.Ask(ctx, line))
	}
	if err := scanner.Err(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "read input: %s\n", err)
		return 1
	}
	return 0
}

func runBatch(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	input := fs.String("input", "", "Source file path")
	sheet := fs.String("sheet", "", "Sheet name (workbooks only; empty = first)")
	questionsPath := fs.String("questions", "", "CSV file with a 'question' column")
	output := fs.String("output", "", "Output CSV file path")
	workers := fs.Int("workers", cfg.Run.Workers, "Concurrent question workers (env: WORKERS)")
	maxRetries := fs.Int("max-retries", cfg.Run.MaxRetries, "Max retries per question for transient failures (env: MAX_RETRIES)")
	failFast := fs.Bool("fail-fast", cfg.Run.FailFast, "Fail on the first question error (env: FAIL_FAST)")
	addTranslatorFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" || *questionsPath == "" || *output == "" {
		_, _ = fmt.Fprintln(os.Stderr, "batch requires --input, --questions and --output")
		return 2
	}

	if err := cfg.RequireAPIKey(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	tr, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	ds, err := dataset.Load(*input, *sheet)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load failed: %s\n", err)
		return 1
	}

	qf, err := os.Open(*questionsPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", err)
		return 1
	}
	questions, err := pipeline.ReadQuestionsCSV(qf)
	_ = qf.Close()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", err)
		return 1
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	logger.Printf("run=%s batch start: input=%s rows=%d questions=%d workers=%d",
		runID, *input, ds.RowCount(), len(questions), *workers)
	start := time.Now()

	rows, err := pipeline.AnswerQuestions(ctx, questions, ds, tr, pipeline.Options{
		Workers:        *workers,
		MaxRetries:     *maxRetries,
		RequestTimeout: cfg.Run.RequestTimeout,
		RateLimitRPS:   cfg.Run.RateLimitRPS,
		FailFast:       *failFast,
		MaxResultRows:  cfg.Run.MaxResultRows,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", util.RedactSecrets(err.Error()))
		return 1
	}

	outF, err := os.Create(*output)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", err)
		return 1
	}
	if err := pipeline.WriteCSV(outF, rows); err != nil {
		_ = outF.Close()
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", err)
		return 1
	}
	if err := outF.Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "batch failed: %s\n", err)
		return 1
	}

	ok := 0
	for _, r := range rows {
		if r.Status == "ok" {
			ok++
		}
	}
	logger.Printf("run=%s batch done: ok=%d errors=%d elapsed=%s output=%s",
		runID, ok, len(rows)-ok, time.Since(start).Round(time.Millisecond), *output)
	return 0
}

// addTranslatorFlags registers the flags shared by every command that
// reaches the model, writing straight into cfg.
func addTranslatorFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Gemini.Model, "gemini-model", cfg.Gemini.Model, "Gemini model name (env: GEMINI_MODEL)")
	fs.StringVar(&cfg.Gemini.BaseURL, "gemini-base-url", cfg.Gemini.BaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	fs.DurationVar(&cfg.Run.RequestTimeout, "request-timeout", cfg.Run.RequestTimeout, "Per-question request timeout, 0 disables (env: REQUEST_TIMEOUT)")
	fs.Float64Var(&cfg.Run.RateLimitRPS, "rate-limit-rps", cfg.Run.RateLimitRPS, "Global model request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	fs.IntVar(&cfg.Run.MaxResultRows, "max-result-rows", cfg.Run.MaxResultRows, "Cap on table result rows (env: MAX_RESULT_ROWS)")
}

func newSession(ctx context.Context, cfg config.Config) (*app.Session, int) {
	if err := cfg.RequireAPIKey(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return nil, 2
	}
	tr, err := gemini.New(ctx, gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		BaseURL:        cfg.Gemini.BaseURL,
		RequestTimeout: cfg.Run.RequestTimeout,
		RateLimitRPS:   cfg.Run.RateLimitRPS,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", util.RedactSecrets(err.Error()))
		return nil, 2
	}
	session := app.NewSession(tr)
	session.MaxResultRows = cfg.Run.MaxResultRows
	return session, 0
}

func printAnswer(ans app.Answer) {
	if ans.Expression != "" {
		fmt.Printf("Generated query:\n%s\n\n", ans.Expression)
	}
	if ans.Err != nil {
		fmt.Printf("Error: %s\n", util.RedactSecrets(ans.Err.Error()))
		return
	}
	fmt.Printf("Result:\n%s\n", ans.Result.Render())
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `tabletalk: ask natural language questions about a spreadsheet

Usage:
  tabletalk <command> [flags]

Commands:
  files    List loadable files in a directory
  sheets   List sheet names in a workbook
  summary  Print the dataset summary for a file
  ask      Answer a single question (Gemini required)
  chat     Interactive question loop (Gemini required)
  batch    Answer a CSV of questions concurrently (Gemini required)
  version  Print the version

Examples:
  tabletalk ask --input sales.xlsx --sheet Q3 --question "How many total rows are in this data?"
  tabletalk batch --input sales.xlsx --questions questions.csv --output answers.csv

Environment:
  GEMINI_API_KEY    Gemini API key (required for ask/chat/batch)
  GEMINI_MODEL      Gemini model name (default gemini-2.5-flash)
  GEMINI_BASE_URL   Optional base URL override (proxies/testing)
  TABLETALK_CONFIG  Optional YAML config file path (default tabletalk.yaml)

A .env file in the working directory is loaded automatically.
`)
}
