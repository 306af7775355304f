// Package category decides whether a message belongs to a triage category.
package category

import (
	"context"
	"fmt"
	"strings"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/extract"
	"carma_server/core/service/textnorm"
)

// All is the bypass category: every message matches.
const All = "All"

const filterPrompt = `You are analyzing an email to determine if it matches a specific category.

Category to match: %[1]s

Email subject: %[2]s
Email body: %[3]s

Categories:
- RFI: Requests for Information, clarification questions, technical queries
- Material Delay: Delivery delays, shipment issues, supply chain problems
- Schedule Update: Progress updates, timeline changes, milestone reports
- Submittal: Product data sheets, shop drawings, material samples, documentation packages
- Coordination: Trade coordination, conflicts, meetings, collaborative discussions
- General: General communications, updates, announcements, administrative messages

Respond with ONLY "yes" or "no" - does this email semantically match the category "%[1]s"?`

// keywords is used only when the completion call fails. General has none.
var keywords = map[string][]string{
	"rfi":             {"rfi", "request for information", "clarification", "need to confirm", "please clarify"},
	"material delay":  {"delay", "delayed", "shipment", "delivery", "supply", "fabrication"},
	"schedule update": {"schedule", "timeline", "milestone", "progress", "completion"},
	"submittal":       {"submittal", "shop drawing", "product data", "samples", "documentation package"},
	"coordination":    {"coordination", "conflict", "meeting", "coordinate", "conflicting"},
	"general":         {},
}

// IsAll reports whether category is the "All" bypass (any case) or empty.
func IsAll(category string) bool {
	c := strings.TrimSpace(category)
	return c == "" || strings.EqualFold(c, All)
}

// KeywordMatch is the deterministic fallback: substring containment of any category
// keyword in subject+body. Unknown categories and General never match.
func KeywordMatch(msg domain.Message, category string) bool {
	words, ok := keywords[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return false
	}
	text := strings.ToLower(msg.Subject + " " + msg.Body)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

type Filter struct {
	ext   *extract.Extractor
	obs   out.Observer
	limit int
}

func NewFilter(ext *extract.Extractor, obs out.Observer, concurrency int) *Filter {
	return &Filter{ext: ext, obs: out.ObserverOrNop(obs), limit: concurrency}
}

// Matches asks the model whether msg belongs to category. The keyword table is used
// only when the call fails; an unexpected answer is simply "no".
func (f *Filter) Matches(ctx context.Context, msg domain.Message, category string) bool {
	ok, err := f.ext.Confirm(ctx, extract.Request{
		Name:         "category.filter",
		SystemPrompt: fmt.Sprintf(filterPrompt, category, msg.Subject, textnorm.Truncate(msg.Body, 500)),
		Temperature:  0.1,
		MaxTokens:    10,
	})
	if err != nil {
		matched := KeywordMatch(msg, category)
		f.obs.Emit(ctx, out.Event{
			Severity: out.SeverityWarn,
			Name:     "category.keyword_fallback",
			Message:  "semantic filter unavailable, used keyword match",
			Fields:   map[string]any{"id": msg.ID, "category": category, "matched": matched},
			Err:      err,
		})
		return matched
	}
	return ok
}

// FilterByCategory keeps the messages matching category in input order.
// The "All" bypass returns msgs unchanged without any completion calls.
func (f *Filter) FilterByCategory(ctx context.Context, msgs []domain.Message, category string) ([]domain.Message, error) {
	if IsAll(category) {
		return msgs, nil
	}

	keep := make([]bool, len(msgs))
	err := extract.ForEach(ctx, len(msgs), f.limit, func(ctx context.Context, i int) {
		keep[i] = f.Matches(ctx, msgs[i], category)
	})
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Message, 0, len(msgs))
	for i, m := range msgs {
		if keep[i] {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}
