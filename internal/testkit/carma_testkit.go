// Package testkit holds in-memory implementations of the outbound ports for tests.
package testkit

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"carma_server/core/domain"
	"carma_server/core/port/out"
)

// =============================================================================
// Record store
// =============================================================================

// MemStore is a RecordStore and BlobStore that keeps JSON documents in memory.
type MemStore struct {
	mu    sync.Mutex
	docs  map[string][]byte
	logs  map[string][][]byte
	blobs map[string][]byte

	SaveErr error
}

func NewMemStore() *MemStore {
	return &MemStore{docs: map[string][]byte{}, logs: map[string][][]byte{}, blobs: map[string][]byte{}}
}

func (m *MemStore) Load(_ context.Context, name string, dest any) (bool, error) {
	m.mu.Lock()
	b, ok := m.docs[name]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return true, fmt.Errorf("%w: %s: %v", out.ErrCorrupt, name, err)
	}
	return true, nil
}

func (m *MemStore) Save(_ context.Context, name string, v any) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = b
	return nil
}

func (m *MemStore) Append(_ context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[name] = append(m.logs[name], b)
	return nil
}

func (m *MemStore) PutBlob(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	return path.Join("mem", name), nil
}

// Put stores v under name, panicking on encode errors.
func (m *MemStore) Put(name string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.PutRaw(name, b)
}

func (m *MemStore) PutRaw(name string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = b
}

// Get decodes the stored document into dest and reports whether it exists.
func (m *MemStore) Get(name string, dest any) bool {
	m.mu.Lock()
	b, ok := m.docs[name]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (m *MemStore) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[name]
	return ok
}

// Names lists stored document names, sorted.
func (m *MemStore) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.docs))
	for k := range m.docs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *MemStore) Log(name string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.logs[name]...)
}

func (m *MemStore) Blob(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[name]
	return b, ok
}

// =============================================================================
// Completion service
// =============================================================================

// Completion answers with Respond, or with Text/Err when Respond is nil.
type Completion struct {
	mu      sync.Mutex
	Text    string
	Err     error
	Respond func(req out.CompletionRequest) (string, error)
	calls   []out.CompletionRequest
}

func (c *Completion) Complete(_ context.Context, req out.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	respond := c.Respond
	c.mu.Unlock()
	if respond != nil {
		return respond(req)
	}
	return c.Text, c.Err
}

func (c *Completion) Calls() []out.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]out.CompletionRequest(nil), c.calls...)
}

// RespondByPrompt returns the answer of the first key contained in the user or system
// prompt, or def.
func RespondByPrompt(answers map[string]string, def string) func(out.CompletionRequest) (string, error) {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return func(req out.CompletionRequest) (string, error) {
		for _, k := range keys {
			if strings.Contains(req.UserPrompt, k) || strings.Contains(req.SystemPrompt, k) {
				return answers[k], nil
			}
		}
		return def, nil
	}
}

// =============================================================================
// Mail source
// =============================================================================

type MailSource struct {
	Messages    []domain.Message
	Err         error
	Attachments map[string][]domain.Attachment
	AttachErr   map[string]error
	LastMax     int
}

func (s *MailSource) FetchRecent(_ context.Context, maxCount int) ([]domain.Message, error) {
	s.LastMax = maxCount
	if s.Err != nil {
		return nil, s.Err
	}
	msgs := s.Messages
	if maxCount > 0 && len(msgs) > maxCount {
		msgs = msgs[:maxCount]
	}
	return append([]domain.Message(nil), msgs...), nil
}

func (s *MailSource) FetchAttachments(_ context.Context, id string) ([]domain.Attachment, error) {
	if err := s.AttachErr[id]; err != nil {
		return nil, err
	}
	return s.Attachments[id], nil
}

// =============================================================================
// Spreadsheets
// =============================================================================

type Spreadsheets struct {
	Sheets  []domain.Spreadsheet
	Skipped []error
	Err     error
	LastDir string
	LastMax int
}

func (s *Spreadsheets) ReadAll(_ context.Context, dir string, maxRows int) ([]domain.Spreadsheet, []error, error) {
	s.LastDir, s.LastMax = dir, maxRows
	return s.Sheets, s.Skipped, s.Err
}

// =============================================================================
// Observer
// =============================================================================

type Observer struct {
	mu     sync.Mutex
	events []out.Event
}

func (o *Observer) Emit(_ context.Context, ev out.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *Observer) Events() []out.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]out.Event(nil), o.events...)
}

// Count returns how many events named name were emitted.
func (o *Observer) Count(name string) int {
	n := 0
	for _, ev := range o.Events() {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// ErrUnavailable is a convenient collaborator failure for tests.
var ErrUnavailable = errors.New("collaborator unavailable")
