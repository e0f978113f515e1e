package gemini

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/shpitdev/tabletalk/internal/mockmodel"
	"github.com/shpitdev/tabletalk/internal/translate"
	"github.com/shpitdev/tabletalk/pkg/worker"
)

func TestClassifyErr(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "rate limited", err: genai.APIError{Code: 429, Message: "quota"}, transient: true},
		{name: "server error", err: genai.APIError{Code: 500, Message: "boom"}, transient: true},
		{name: "service unavailable", err: genai.APIError{Code: 503, Message: "busy"}, transient: true},
		{name: "bad auth", err: genai.APIError{Code: 401, Message: "key"}, transient: false},
		{name: "bad request", err: genai.APIError{Code: 400, Message: "schema"}, transient: false},
		{name: "plain error", err: errors.New("other"), transient: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyErr(tc.err)
			var te *worker.TransientError
			if errors.As(got, &te) != tc.transient {
				t.Fatalf("classifyErr(%v) = %v, transient = %v", tc.err, got, !tc.transient)
			}
		})
	}
}

func newTestTranslator(t *testing.T, baseURL string) *Translator {
	t.Helper()
	tr, err := New(context.Background(), Config{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
		BaseURL: baseURL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tr
}

func TestTranslate(t *testing.T) {
	mock := mockmodel.New()
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	tr := newTestTranslator(t, srv.URL)
	summary := "Dataset summary:\n- Total rows: 5\n- Total columns: 2\n"

	t.Run("returns completion text verbatim", func(t *testing.T) {
		mock.Reply("total sales", `{"op":"aggregate","aggregate":"sum","measure":"amount"}`)
		got, err := tr.Translate(context.Background(), "What are the total sales?", summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != `{"op":"aggregate","aggregate":"sum","measure":"amount"}` {
			t.Fatalf("unexpected completion: %q", got)
		}
	})

	t.Run("sends summary in the system instruction", func(t *testing.T) {
		calls := mock.Calls()
		if len(calls) == 0 {
			t.Fatalf("no calls recorded")
		}
		last := calls[len(calls)-1]
		if last.Model != "gemini-2.5-flash" {
			t.Fatalf("unexpected model: %q", last.Model)
		}
		if !strings.Contains(last.System, "Total rows: 5") {
			t.Fatalf("system instruction missing summary: %q", last.System)
		}
		if !strings.Contains(last.User, "total sales") {
			t.Fatalf("unexpected user turn: %q", last.User)
		}
	})

	t.Run("empty question fails without a call", func(t *testing.T) {
		before := len(mock.Calls())
		_, err := tr.Translate(context.Background(), "   ", summary)
		var terr *translate.TranslationError
		if !errors.As(err, &terr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(mock.Calls()); got != before {
			t.Fatalf("expected no call, got %d", got-before)
		}
	})

	t.Run("server failure yields translation error", func(t *testing.T) {
		mock.FailWith(500)
		defer mock.FailWith(0)
		_, err := tr.Translate(context.Background(), "anything", summary)
		var terr *translate.TranslationError
		if !errors.As(err, &terr) {
			t.Fatalf("unexpected error: %v", err)
		}
		var te *worker.TransientError
		if !errors.As(err, &te) {
			t.Fatalf("expected transient classification, got: %v", err)
		}
	})
}

func TestNewValidation(t *testing.T) {
	if _, err := New(context.Background(), Config{Model: "m"}); err == nil {
		t.Fatalf("expected error for missing API key")
	}
	if _, err := New(context.Background(), Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
