// Package translate is the external-service boundary: it turns a natural
// language question plus a dataset summary into query expression text. It
// never sees raw rows beyond what the summary carries, and it never
// evaluates anything.
package translate

import (
	"context"
	"fmt"
)

// Translator converts a question into query expression text. The dataset
// summary is the only dataset context the service receives.
type Translator interface {
	Translate(ctx context.Context, question, datasetSummary string) (string, error)
}

// TranslationError reports a failed translation: service unreachable,
// rejected request, or an empty/malformed completion.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate question: %v", e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}
