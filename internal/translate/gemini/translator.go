// Package gemini implements the translator on the Gemini API with
// structured JSON output constrained to the query grammar.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shpitdev/tabletalk/internal/translate"
	"github.com/shpitdev/tabletalk/pkg/worker"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// RequestTimeout bounds one translation call. Zero means no timeout,
	// matching the interactive default.
	RequestTimeout time.Duration

	// RateLimitRPS throttles calls across a shared translator. <=0 disables.
	RateLimitRPS float64
}

type Translator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func New(ctx context.Context, cfg Config) (*Translator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	return &Translator{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		timeout: cfg.RequestTimeout,
		limiter: limiter,
	}, nil
}

// querySchema constrains the completion to the query grammar.
var querySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"op": {Type: genai.TypeString, Enum: []string{"select", "count", "aggregate"}},
		"columns": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"where": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"column": {Type: genai.TypeString},
					"op":     {Type: genai.TypeString, Enum: []string{"eq", "neq", "contains", "gt", "gte", "lt", "lte"}},
					"value":  {Type: genai.TypeString},
				},
				Required: []string{"column", "op", "value"},
			},
		},
		"aggregate": {Type: genai.TypeString, Enum: []string{"sum", "avg", "min", "max", "count"}},
		"measure":   {Type: genai.TypeString},
		"groupBy":   {Type: genai.TypeString},
		"sortBy":    {Type: genai.TypeString, Enum: []string{"value_desc", "value_asc", "label_asc", "label_desc"}},
		"limit":     {Type: genai.TypeInteger},
	},
	Required: []string{"op"},
}

// Translate sends the dataset summary as the system instruction and the
// question as the user turn, returning the completion text verbatim. The
// query parser downstream handles any stray markdown fences.
func (t *Translator) Translate(ctx context.Context, question, datasetSummary string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &translate.TranslationError{Err: errors.New("empty question")}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", &translate.TranslationError{Err: err}
		}
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.client.Models.GenerateContent(
		ctx,
		t.model,
		genai.Text(question),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: translate.BuildPrompt(datasetSummary)}},
			},
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   querySchema,
		},
	)
	if err != nil {
		return "", &translate.TranslationError{Err: classifyErr(err)}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &translate.TranslationError{Err: errors.New("model returned empty response")}
	}
	return text, nil
}

func classifyErr(err error) error {
	// Tag rate limiting and server-side failures as retryable for batch runs.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &worker.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &worker.TransientError{Err: err}
	}
	return err
}
