// Package extract turns free-text completions into structured documents.
//
// A single completion call is made per request. The raw text is repaired (code fences
// removed, missing outer braces restored) and decoded as a JSON object. When the call
// fails or the output cannot be decoded, a *Failure describes why and the caller's
// fallback constructor supplies the record; the extractor never invents domain values.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"carma_server/core/port/out"
)

type FailureKind string

const (
	KindCompletionFailed FailureKind = "completion_failed"
	KindEmptyCompletion  FailureKind = "empty_completion"
	KindMalformedOutput  FailureKind = "malformed_output"
)

// Failure is the per-item extraction error handed to fallback constructors.
type Failure struct {
	Kind FailureKind
	Err  error
	// Raw is the completion text as returned by the model ("" for completion failures).
	Raw string
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure reports whether err is (or wraps) a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Request describes one extraction call. Name labels observability events.
type Request struct {
	Name         string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

func (r Request) completion() out.CompletionRequest {
	return out.CompletionRequest{
		SystemPrompt: r.SystemPrompt,
		UserPrompt:   r.UserPrompt,
		Temperature:  r.Temperature,
		MaxTokens:    r.MaxTokens,
	}
}

// Result is a decoded record or the fallback that replaced it.
type Result struct {
	Record  Document
	Failure *Failure
}

// Fallback reports whether Record came from the fallback constructor.
func (r Result) Fallback() bool { return r.Failure != nil }

// FallbackFunc builds a substitute record from the failure.
type FallbackFunc func(f *Failure) Document

type Extractor struct {
	llm out.TextCompletionService
	obs out.Observer
}

func New(llm out.TextCompletionService, obs out.Observer) *Extractor {
	return &Extractor{llm: llm, obs: out.ObserverOrNop(obs)}
}

// Complete returns the raw completion text. A transport error is a KindCompletionFailed Failure.
func (e *Extractor) Complete(ctx context.Context, req Request) (string, error) {
	raw, err := e.llm.Complete(ctx, req.completion())
	if err != nil {
		f := &Failure{Kind: KindCompletionFailed, Err: err}
		e.report(ctx, req, f)
		return "", f
	}
	return raw, nil
}

// Extract performs one completion and decodes the repaired output as a JSON object.
// Every error returned is a *Failure.
func (e *Extractor) Extract(ctx context.Context, req Request) (Document, error) {
	raw, err := e.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, f := decode(raw)
	if f != nil {
		e.report(ctx, req, f)
		return nil, f
	}
	return doc, nil
}

// ExtractOr never fails: on any Failure the fallback is invoked with it.
// A nil fallback yields an empty Document.
func (e *Extractor) ExtractOr(ctx context.Context, req Request, fallback FallbackFunc) Result {
	doc, err := e.Extract(ctx, req)
	if err == nil {
		return Result{Record: doc}
	}

	f, ok := AsFailure(err)
	if !ok {
		f = &Failure{Kind: KindCompletionFailed, Err: err}
	}
	rec := Document{}
	if fallback != nil {
		if fb := fallback(f); fb != nil {
			rec = fb
		}
	}
	return Result{Record: rec, Failure: f}
}

// Decode runs ExtractOr and converts the outcome to T. convert handles decoded documents;
// fallback builds the typed substitute when extraction fails.
func Decode[T any](ctx context.Context, e *Extractor, req Request, convert func(Document) T, fallback func(*Failure) T) (T, *Failure) {
	res := e.ExtractOr(ctx, req, nil)
	if res.Fallback() {
		return fallback(res.Failure), res.Failure
	}
	return convert(res.Record), nil
}

// Confirm asks a yes/no question. Only answers starting with "yes" (any case) are true.
// An error is returned only when the completion call itself fails.
func (e *Extractor) Confirm(ctx context.Context, req Request) (bool, error) {
	raw, err := e.Complete(ctx, req)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "yes"), nil
}

// ExtractList asks for a JSON array of strings. When the output is not an array the
// list is nil and callers fall back to the returned raw text.
func (e *Extractor) ExtractList(ctx context.Context, req Request) ([]string, string, error) {
	raw, err := e.Complete(ctx, req)
	if err != nil {
		return nil, "", err
	}

	var items []any
	if err := json.Unmarshal([]byte(Unfence(raw)), &items); err != nil {
		return nil, raw, nil
	}
	list := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				list = append(list, v)
			}
		case nil:
		default:
			b, _ := json.Marshal(v)
			list = append(list, string(b))
		}
	}
	return list, raw, nil
}

func (e *Extractor) report(ctx context.Context, req Request, f *Failure) {
	sev := out.SeverityWarn
	if f.Kind == KindCompletionFailed {
		sev = out.SeverityError
	}
	e.obs.Emit(ctx, out.Event{
		Severity: sev,
		Name:     "extract." + string(f.Kind),
		Message:  "structured extraction fell back",
		Fields:   map[string]any{"request": req.Name, "raw_len": len(f.Raw)},
		Err:      f.Err,
	})
}

func decode(raw string) (Document, *Failure) {
	text := Repair(raw)
	if text == "" {
		return nil, &Failure{Kind: KindEmptyCompletion, Err: errors.New("completion returned no content"), Raw: raw}
	}
	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &Failure{Kind: KindMalformedOutput, Err: err, Raw: raw}
	}
	if doc == nil {
		return nil, &Failure{Kind: KindMalformedOutput, Err: errors.New("completion decoded to null"), Raw: raw}
	}
	return doc, nil
}

// Unfence trims raw and, if it contains a ``` code fence, returns the fenced content
// without an optional leading "json" tag.
func Unfence(raw string) string {
	text := strings.TrimSpace(raw)
	i := strings.Index(text, "```")
	if i < 0 {
		return text
	}
	rest := text[i+3:]
	if j := strings.Index(rest, "```"); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSpace(rest)
	if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
		rest = rest[4:]
	}
	return strings.TrimSpace(rest)
}

// Repair unfences raw and restores a missing leading '{' or trailing '}'.
// Empty input stays empty.
func Repair(raw string) string {
	text := Unfence(raw)
	if text == "" {
		return ""
	}
	if !strings.HasPrefix(text, "{") {
		text = "{" + text
	}
	if !strings.HasSuffix(text, "}") {
		text += "}"
	}
	return text
}
