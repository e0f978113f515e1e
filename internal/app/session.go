// Package app wires one conversational session: a table store, a
// translator, and the executor. Each session owns its own store; nothing
// here is process-global.
package app

import (
	"context"
	"errors"

	"github.com/shpitdev/tabletalk/internal/translate"
	"github.com/shpitdev/tabletalk/pkg/dataset"
	"github.com/shpitdev/tabletalk/pkg/engine"
)

// ErrNoDataset is returned by Ask before any successful load. Distinct from
// translation and execution failures so callers can tell "nothing loaded"
// from "service failed" from "generated query was nonsense".
var ErrNoDataset = errors.New("no dataset loaded")

// Session holds the per-conversation state.
type Session struct {
	Store      *dataset.Store
	Translator translate.Translator

	// MaxResultRows caps table results; <=0 uses the engine default.
	MaxResultRows int
}

func NewSession(tr translate.Translator) *Session {
	return &Session{
		Store:      dataset.NewStore(),
		Translator: tr,
	}
}

// Load replaces the session's dataset. A failed load keeps the previous
// dataset, so a session can keep answering against the old data.
func (s *Session) Load(path, sheet string) error {
	return s.Store.Load(path, sheet)
}

// Answer is one completed user turn: the generated expression alongside its
// result or failure. Exactly one of Result and Err is set.
type Answer struct {
	Question   string
	Expression string
	Result     *engine.Result
	Err        error
}

// Ask runs one turn: summarize the current dataset, translate the question,
// execute the resulting expression. The error in the returned Answer is
// ErrNoDataset, a *translate.TranslationError, or an
// *engine.ExecutionError; Ask itself never panics.
func (s *Session) Ask(ctx context.Context, question string) Answer {
	ans := Answer{Question: question}
	if !s.Store.Loaded() {
		ans.Err = ErrNoDataset
		return ans
	}

	expr, err := s.Translator.Translate(ctx, question, s.Store.Summary())
	if err != nil {
		ans.Err = err
		return ans
	}
	ans.Expression = expr

	var opts []engine.Option
	if s.MaxResultRows > 0 {
		opts = append(opts, engine.WithMaxResultRows(s.MaxResultRows))
	}
	res, err := engine.ExecuteText(expr, s.Store.Current(), opts...)
	if err != nil {
		ans.Err = err
		return ans
	}
	ans.Result = res
	return ans
}
