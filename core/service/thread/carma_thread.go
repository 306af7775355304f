// Package thread partitions messages into conversational threads by normalized subject.
package thread

import (
	"sort"

	"carma_server/core/domain"
	"carma_server/core/service/textnorm"
)

// Groups is an insertion-ordered mapping from thread key to messages.
type Groups struct {
	keys  []string
	byKey map[string][]domain.Message
}

// Group assigns every message to the thread keyed by its normalized subject, or by its
// raw subject when normalization yields "". Keys keep first-seen order. Each thread is
// sorted by the raw date string ascending; equal dates keep input order.
// Messages with an empty subject all share the "" thread.
func Group(msgs []domain.Message) *Groups {
	g := &Groups{byKey: make(map[string][]domain.Message)}
	for _, m := range msgs {
		key := textnorm.NormalizeSubject(m.Subject)
		if key == "" {
			key = m.Subject
		}
		if _, ok := g.byKey[key]; !ok {
			g.keys = append(g.keys, key)
		}
		g.byKey[key] = append(g.byKey[key], m)
	}
	for _, k := range g.keys {
		t := g.byKey[k]
		sort.SliceStable(t, func(i, j int) bool { return t[i].Date < t[j].Date })
	}
	return g
}

// Keys returns thread keys in first-seen order.
func (g *Groups) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

func (g *Groups) Get(key string) []domain.Message {
	return g.byKey[key]
}

func (g *Groups) Len() int {
	return len(g.keys)
}

// All returns the threads in key order.
func (g *Groups) All() [][]domain.Message {
	out := make([][]domain.Message, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.byKey[k])
	}
	return out
}

// Total is the number of messages across all threads.
func (g *Groups) Total() int {
	n := 0
	for _, t := range g.byKey {
		n += len(t)
	}
	return n
}
