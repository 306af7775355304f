package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"carma_server/core/port/out"
	"carma_server/internal/testkit"
)

type mapCache struct {
	data   map[string][]byte
	getErr error
	ttls   []time.Duration
}

func (m *mapCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *mapCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.ttls = append(m.ttls, ttl)
	return nil
}

func TestCompletionCache(t *testing.T) {
	store := &mapCache{data: map[string][]byte{}}
	llm := &testkit.Completion{Text: `{"a":1}`}
	c := NewCompletionCache(llm, store, time.Hour)
	req := out.CompletionRequest{UserPrompt: "classify", Temperature: 0.2, MaxTokens: 600}

	for i := 0; i < 3; i++ {
		got, err := c.Complete(context.Background(), req)
		if err != nil || got != `{"a":1}` {
			t.Fatalf("got %q, %v", got, err)
		}
	}
	if n := len(llm.Calls()); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if len(store.ttls) != 1 || store.ttls[0] != time.Hour {
		t.Errorf("ttls = %v", store.ttls)
	}
}

func TestCompletionCache_Bypass(t *testing.T) {
	tests := []struct {
		name  string
		llm   *testkit.Completion
		req   out.CompletionRequest
		store *mapCache
	}{
		{"sampled request", &testkit.Completion{Text: "draft"}, out.CompletionRequest{UserPrompt: "x", Temperature: 0.7}, &mapCache{data: map[string][]byte{}}},
		{"upstream error", &testkit.Completion{Err: testkit.ErrUnavailable}, out.CompletionRequest{UserPrompt: "x"}, &mapCache{data: map[string][]byte{}}},
		{"empty text", &testkit.Completion{}, out.CompletionRequest{UserPrompt: "x"}, &mapCache{data: map[string][]byte{}}},
		{"cache down", &testkit.Completion{Err: testkit.ErrUnavailable}, out.CompletionRequest{UserPrompt: "x"}, &mapCache{data: map[string][]byte{}, getErr: errors.New("down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompletionCache(tt.llm, tt.store, time.Hour)
			c.Complete(context.Background(), tt.req)
			c.Complete(context.Background(), tt.req)
			if n := len(tt.llm.Calls()); n != 2 {
				t.Errorf("upstream calls = %d, want 2", n)
			}
			if len(tt.store.data) != 0 {
				t.Errorf("cached %d entries", len(tt.store.data))
			}
		})
	}
}

func TestKey(t *testing.T) {
	a := Key(out.CompletionRequest{SystemPrompt: "s", UserPrompt: "u", Temperature: 0.2, MaxTokens: 10})
	b := Key(out.CompletionRequest{SystemPrompt: "su", UserPrompt: "", Temperature: 0.2, MaxTokens: 10})
	c := Key(out.CompletionRequest{SystemPrompt: "s", UserPrompt: "u", Temperature: 0.2, MaxTokens: 11})
	if a == b || a == c || !strings.HasPrefix(a, KeyPrefix) {
		t.Errorf("keys not distinct: %s %s %s", a, b, c)
	}
}
