package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/tabletalk/internal/app"
	"github.com/shpitdev/tabletalk/internal/translate"
	"github.com/shpitdev/tabletalk/pkg/engine"
)

type translatorFunc func(ctx context.Context, question, summary string) (string, error)

func (f translatorFunc) Translate(ctx context.Context, question, summary string) (string, error) {
	return f(ctx, question, summary)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

const sampleCSV = "A,B,C\n1,x,10\n2,y,20\n3,z,30\n4,x,40\n5,y,50\n"

func TestAsk(t *testing.T) {
	t.Run("count over loaded dataset", func(t *testing.T) {
		s := app.NewSession(translatorFunc(func(ctx context.Context, question, summary string) (string, error) {
			if !strings.Contains(summary, "Total rows: 5") {
				t.Fatalf("summary missing row count: %q", summary)
			}
			return `{"op":"count"}`, nil
		}))
		if err := s.Load(writeCSV(t, sampleCSV), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ans := s.Ask(context.Background(), "How many rows are there?")
		if ans.Err != nil {
			t.Fatalf("unexpected error: %v", ans.Err)
		}
		if ans.Expression != `{"op":"count"}` {
			t.Fatalf("unexpected expression: %q", ans.Expression)
		}
		if ans.Result.Kind != engine.KindScalar || ans.Result.Value != 5 {
			t.Fatalf("unexpected result: %#v", ans.Result)
		}
	})

	t.Run("no dataset loaded", func(t *testing.T) {
		s := app.NewSession(translatorFunc(func(ctx context.Context, question, summary string) (string, error) {
			t.Fatal("translator should not be called")
			return "", nil
		}))
		ans := s.Ask(context.Background(), "anything")
		if !errors.Is(ans.Err, app.ErrNoDataset) {
			t.Fatalf("unexpected error: %v", ans.Err)
		}
	})

	t.Run("translation failure passes through", func(t *testing.T) {
		want := &translate.TranslationError{Err: errors.New("service unreachable")}
		s := app.NewSession(translatorFunc(func(ctx context.Context, question, summary string) (string, error) {
			return "", want
		}))
		if err := s.Load(writeCSV(t, sampleCSV), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ans := s.Ask(context.Background(), "anything")
		var terr *translate.TranslationError
		if !errors.As(ans.Err, &terr) {
			t.Fatalf("unexpected error: %v", ans.Err)
		}
	})

	t.Run("error prose as expression fails execution, not the session", func(t *testing.T) {
		s := app.NewSession(translatorFunc(func(ctx context.Context, question, summary string) (string, error) {
			return "Translation failed: the model is overloaded.", nil
		}))
		if err := s.Load(writeCSV(t, sampleCSV), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ans := s.Ask(context.Background(), "anything")
		var xerr *engine.ExecutionError
		if !errors.As(ans.Err, &xerr) {
			t.Fatalf("unexpected error: %v", ans.Err)
		}
		if xerr.Expression != "Translation failed: the model is overloaded." {
			t.Fatalf("unexpected expression: %q", xerr.Expression)
		}
	})

	t.Run("result cap applies", func(t *testing.T) {
		s := app.NewSession(translatorFunc(func(ctx context.Context, question, summary string) (string, error) {
			return `{"op":"select"}`, nil
		}))
		s.MaxResultRows = 2
		if err := s.Load(writeCSV(t, sampleCSV), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ans := s.Ask(context.Background(), "show everything")
		if ans.Err != nil {
			t.Fatalf("unexpected error: %v", ans.Err)
		}
		if len(ans.Result.Rows) != 2 || ans.Result.Truncated != 3 {
			t.Fatalf("unexpected result: %#v", ans.Result)
		}
	})
}

func TestLoadKeepsPreviousOnFailure(t *testing.T) {
	s := app.NewSession(translatorFunc(func(ctx context.Context, question, summary string) (string, error) {
		return `{"op":"count"}`, nil
	}))
	if err := s.Load(writeCSV(t, sampleCSV), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Load(filepath.Join(t.TempDir(), "missing.csv"), ""); err == nil {
		t.Fatalf("expected error")
	}

	ans := s.Ask(context.Background(), "How many rows?")
	if ans.Err != nil {
		t.Fatalf("unexpected error: %v", ans.Err)
	}
	if ans.Result.Value != 5 {
		t.Fatalf("unexpected result: %#v", ans.Result)
	}
}
