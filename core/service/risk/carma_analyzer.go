// Package risk assesses email threads for non-responsiveness and schedule risk.
package risk

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/extract"
	"carma_server/core/service/thread"
)

type Analyzer struct {
	ext   *extract.Extractor
	obs   out.Observer
	limit int
}

func NewAnalyzer(ext *extract.Extractor, obs out.Observer, concurrency int) *Analyzer {
	return &Analyzer{ext: ext, obs: out.ObserverOrNop(obs), limit: concurrency}
}

// threadItem is the per-message payload sent to the model.
type threadItem struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet,omitempty"`
	Body    string `json:"body"`
}

// AnalyzeThread produces one assessment. It never fails: extraction problems yield an
// UNKNOWN assessment carrying the error text.
func (a *Analyzer) AnalyzeThread(ctx context.Context, th []domain.Message) domain.RiskAssessment {
	metrics := Measure(th)

	items := make([]threadItem, len(th))
	for i, m := range th {
		items[i] = threadItem{ID: m.ID, From: m.From, To: m.To, Subject: m.Subject, Date: m.Date, Snippet: m.Snippet, Body: m.Body}
	}
	payload, _ := json.MarshalIndent(items, "", "  ")
	metricsJSON, _ := json.MarshalIndent(metrics, "", "  ")

	req := extract.Request{
		Name:         "risk.thread",
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf(fewShotPrompt, metricsJSON, payload),
		Temperature:  0.2,
		MaxTokens:    1000,
	}

	ra, failure := extract.Decode(ctx, a.ext, req,
		func(d extract.Document) domain.RiskAssessment { return fromDocument(d, th, metrics) },
		func(f *extract.Failure) domain.RiskAssessment { return fallback(th, f) },
	)
	if failure != nil {
		return ra
	}
	return reconcile(ra, metrics)
}

// GroupAndAnalyze groups msgs into threads and analyzes each one. Results follow
// thread key order regardless of completion order.
func (a *Analyzer) GroupAndAnalyze(ctx context.Context, msgs []domain.Message) ([]domain.RiskAssessment, error) {
	groups := thread.Group(msgs)
	threads := groups.All()

	results := make([]domain.RiskAssessment, len(threads))
	err := extract.ForEach(ctx, len(threads), a.limit, func(ctx context.Context, i int) {
		results[i] = a.AnalyzeThread(ctx, threads[i])
	})
	if err != nil {
		return nil, err
	}

	a.obs.Emit(ctx, out.Event{
		Severity: out.SeverityInfo,
		Name:     "risk.analyzed",
		Message:  "threads analyzed",
		Fields:   map[string]any{"threads": len(threads), "emails": len(msgs)},
	})
	return results, nil
}

func fromDocument(d extract.Document, th []domain.Message, m Metrics) domain.RiskAssessment {
	subject := ""
	if len(th) > 0 {
		subject = th[0].Subject
	}

	p := d.Object("participants")
	participants := domain.Participants{
		FromDomain: p.String("from_domain", m.FromDomain),
		ToDomain:   p.String("to_domain", m.ToDomain),
		Senders:    p.Strings("senders"),
		Receivers:  p.Strings("receivers"),
	}
	if !p.Has("senders") {
		participants.Senders = m.Senders
	}
	if !p.Has("receivers") {
		participants.Receivers = m.Receivers
	}

	c := d.Object("counts")
	tl := d.Object("timeline")
	timeline := domain.Timeline{
		FirstEmailDate:          tl.String("first_email_date", m.FirstDate),
		LastEmailDate:           tl.String("last_email_date", m.LastDate),
		DaysBetweenFirstAndLast: tl.Int("days_between_first_and_last"),
	}
	if !tl.Has("days_between_first_and_last") {
		timeline.DaysBetweenFirstAndLast = m.DaysBetween
	}

	k := d.Object("kpis")
	kpis := domain.KPIs{AvgGapDays: k.Float("avg_gap_days"), LastGapDays: k.Float("last_gap_days")}
	if !k.Has("avg_gap_days") {
		kpis.AvgGapDays = m.AvgGapDays
	}
	if !k.Has("last_gap_days") {
		kpis.LastGapDays = m.LastGapDays
	}

	return domain.RiskAssessment{
		ThreadSubject: d.String("thread_subject", subject),
		ProjectGuess:  d.String("project_guess", "Unknown"),
		Participants:  participants,
		Counts: domain.ThreadCounts{
			TotalEmails:      len(th),
			FollowUpCount:    c.Int("follow_up_count"),
			UnansweredEmails: c.Int("unanswered_emails"),
		},
		Timeline:          timeline,
		ResponseDetected:  d.Bool("response_detected"),
		IssueDetected:     d.String("issue_detected", ""),
		ImpactArea:        d.String("impact_area", ""),
		RiskLevel:         domain.ParseRiskLevel(d.String("risk_level", "")),
		Reason:            d.String("reason", ""),
		RecommendedAction: d.String("recommended_action", ""),
		KPIs:              kpis,
	}
}

// reconcile enforces the escalation pattern over whatever the model concluded.
func reconcile(ra domain.RiskAssessment, m Metrics) domain.RiskAssessment {
	if !m.Escalated {
		return ra
	}
	ra.ResponseDetected = false
	ra.RiskLevel = domain.RiskHigh
	ra.Counts.FollowUpCount = m.Total - 1
	ra.Counts.UnansweredEmails = m.Total
	if ra.IssueDetected == "" {
		ra.IssueDetected = "Non-responsive subcontractor"
	}
	if ra.Reason == "" {
		ra.Reason = fmt.Sprintf("%d messages from %s with no reply from another participant.", m.Total, m.Opener)
	}
	if ra.RecommendedAction == "" {
		ra.RecommendedAction = "Escalate to vendor leadership and PM."
	}
	return ra
}

func fallback(th []domain.Message, f *extract.Failure) domain.RiskAssessment {
	subject := ""
	if len(th) > 0 {
		subject = th[0].Subject
	}

	ra := domain.RiskAssessment{
		ThreadSubject:    subject,
		ProjectGuess:     "Unknown",
		Participants:     domain.Participants{Senders: []string{}, Receivers: []string{}},
		Counts:           domain.ThreadCounts{TotalEmails: len(th)},
		ResponseDetected: false,
		ImpactArea:       "Unknown",
		RiskLevel:        domain.RiskUnknown,
		Fallback:         true,
	}
	if f.Kind == extract.KindCompletionFailed {
		ra.IssueDetected = "AI call failed"
		ra.Reason = f.Error()
		ra.RecommendedAction = "Retry or manual review"
	} else {
		ra.IssueDetected = "AI parsing error"
		ra.Reason = "Failed to parse AI response: " + f.Error()
		ra.RecommendedAction = "Manual review required"
	}
	return ra
}
