package category

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/extract"
)

// scriptedCompletion answers "yes" when the prompt body contains match, "no" otherwise.
type scriptedCompletion struct {
	mu    sync.Mutex
	match string
	err   error
	calls int
	last  out.CompletionRequest
}

func (s *scriptedCompletion) Complete(_ context.Context, req out.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	if s.match != "" && strings.Contains(req.SystemPrompt, s.match) {
		return " Yes", nil
	}
	return "no", nil
}

func newFilter(llm out.TextCompletionService) *Filter {
	return NewFilter(extract.New(llm, nil), nil, 3)
}

var sample = []domain.Message{
	{ID: "1", Subject: "RFI #205 - footing depth", Body: "Please clarify the footing depth."},
	{ID: "2", Subject: "Steel shipment", Body: "The shipment is delayed two weeks."},
	{ID: "3", Subject: "Lunch", Body: "Pizza on Friday."},
}

func TestFilterByCategory_AllBypass(t *testing.T) {
	llm := &scriptedCompletion{}
	f := newFilter(llm)
	for _, c := range []string{"All", "all", "ALL", " All ", ""} {
		got, err := f.FilterByCategory(context.Background(), sample, c)
		if err != nil || !reflect.DeepEqual(got, sample) {
			t.Errorf("category %q: got %v, err %v", c, got, err)
		}
	}
	if llm.calls != 0 {
		t.Errorf("bypass made %d completion calls", llm.calls)
	}
}

func TestFilterByCategory_SemanticPath(t *testing.T) {
	llm := &scriptedCompletion{match: "footing"}
	got, err := newFilter(llm).FilterByCategory(context.Background(), sample, "RFI")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("got %v", got)
	}
	if llm.calls != 3 || llm.last.Temperature != 0.1 || llm.last.MaxTokens != 10 {
		t.Errorf("calls=%d last=%+v", llm.calls, llm.last)
	}
}

func TestMatches_UnexpectedAnswerIsNoWithoutFallback(t *testing.T) {
	// "no" for a message that would match keywords: the keyword table must not be consulted.
	f := newFilter(&scriptedCompletion{})
	if f.Matches(context.Background(), sample[1], "Material Delay") {
		t.Error("expected false when model answers no")
	}
}

func TestMatches_KeywordFallbackOnFailure(t *testing.T) {
	f := newFilter(&scriptedCompletion{err: errors.New("rate limited")})
	tests := []struct {
		msg      domain.Message
		category string
		want     bool
	}{
		{sample[0], "RFI", true},
		{sample[1], "Material Delay", true},
		{sample[2], "Material Delay", false},
		{sample[2], "General", false},
		{domain.Message{Subject: "Shop Drawing set"}, "submittal", true},
		{domain.Message{Body: "Conflicting duct routes"}, "Coordination", true},
		{domain.Message{Body: "milestone reached"}, "Schedule Update", true},
		{sample[0], "Unknown Category", false},
	}
	for _, tt := range tests {
		if got := f.Matches(context.Background(), tt.msg, tt.category); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.msg.Subject+tt.msg.Body, tt.category, got, tt.want)
		}
	}
}

func TestFilterByCategory_PreservesOrderUnderFallback(t *testing.T) {
	msgs := []domain.Message{
		{ID: "a", Body: "delivery slipped"},
		{ID: "b", Body: "nothing"},
		{ID: "c", Body: "fabrication late"},
		{ID: "d", Body: "supply issue"},
	}
	got, err := newFilter(&scriptedCompletion{err: errors.New("down")}).
		FilterByCategory(context.Background(), msgs, "Material Delay")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "c", "d"}) {
		t.Errorf("ids = %v", ids)
	}
}
