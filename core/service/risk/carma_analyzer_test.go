package risk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/extract"
)

type fakeCompletion struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (f *fakeCompletion) Complete(_ context.Context, req out.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.UserPrompt)
	return f.text, f.err
}

func newAnalyzer(llm out.TextCompletionService) *Analyzer {
	return NewAnalyzer(extract.New(llm, nil), nil, 2)
}

var shipDate = []domain.Message{
	{ID: "1", From: "a@x.com", Subject: "Ship Date", Date: "2025-10-18"},
	{ID: "2", From: "a@x.com", Subject: "Follow-Up - Ship Date", Date: "2025-10-21"},
	{ID: "3", From: "a@x.com", Subject: "URGENT Ship Date", Date: "2025-10-24"},
}

func TestAnalyzeThread_EscalationIsHighEvenWhenModelDisagrees(t *testing.T) {
	llm := &fakeCompletion{text: "```json\n" + `{
		"thread_subject": "Ship Date",
		"project_guess": "Penthouse A",
		"counts": {"total_emails": 9, "follow_up_count": 0, "unanswered_emails": 0},
		"response_detected": true,
		"risk_level": "LOW",
		"reason": "Looks fine."
	}` + "\n```"}

	ra := newAnalyzer(llm).AnalyzeThread(context.Background(), shipDate)

	if ra.ResponseDetected {
		t.Error("response_detected = true, want false")
	}
	if ra.RiskLevel != domain.RiskHigh {
		t.Errorf("risk_level = %s, want HIGH", ra.RiskLevel)
	}
	if ra.Counts != (domain.ThreadCounts{TotalEmails: 3, FollowUpCount: 2, UnansweredEmails: 3}) {
		t.Errorf("counts = %+v", ra.Counts)
	}
	if ra.ProjectGuess != "Penthouse A" {
		t.Errorf("project_guess = %q", ra.ProjectGuess)
	}
	if ra.Timeline.FirstEmailDate != "2025-10-18" || ra.Timeline.LastEmailDate != "2025-10-24" || ra.Timeline.DaysBetweenFirstAndLast != 6 {
		t.Errorf("timeline = %+v", ra.Timeline)
	}
	if ra.KPIs.AvgGapDays != 3 || ra.KPIs.LastGapDays != 3 {
		t.Errorf("kpis = %+v", ra.KPIs)
	}
	if ra.Participants.FromDomain != "x.com" || len(ra.Participants.Senders) != 1 {
		t.Errorf("participants = %+v", ra.Participants)
	}
	if !strings.Contains(llm.prompts[0], `"escalated": true`) {
		t.Error("metrics not included in prompt")
	}
}

func TestAnalyzeThread_AnsweredThreadKeepsModelJudgment(t *testing.T) {
	th := []domain.Message{
		{ID: "1", From: "PM <pm@builder.com>", To: "architect@consultant.com", Subject: "RFI #205", Date: "2025-09-10 10:00"},
		{ID: "2", From: "architect@consultant.com", Subject: "Re: RFI #205", Date: "2025-09-11 12:00"},
	}
	llm := &fakeCompletion{text: `{"response_detected": true, "risk_level": "low", "counts": {"follow_up_count": "1", "unanswered_emails": 0},
		"participants": {"from_domain": "builder.com", "to_domain": "consultant.com", "senders": ["pm@builder.com"], "receivers": ["architect@consultant.com"]}}`}

	ra := newAnalyzer(llm).AnalyzeThread(context.Background(), th)

	if !ra.ResponseDetected || ra.RiskLevel != domain.RiskLow {
		t.Errorf("got response=%v risk=%s", ra.ResponseDetected, ra.RiskLevel)
	}
	if ra.Counts.TotalEmails != 2 || ra.Counts.FollowUpCount != 1 {
		t.Errorf("counts = %+v", ra.Counts)
	}
	if ra.ThreadSubject != "RFI #205" || ra.ProjectGuess != "Unknown" {
		t.Errorf("subject=%q project=%q", ra.ThreadSubject, ra.ProjectGuess)
	}
	if ra.Timeline.DaysBetweenFirstAndLast != 1 {
		t.Errorf("timeline = %+v", ra.Timeline)
	}
}

func TestAnalyzeThread_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		llm        *fakeCompletion
		wantIssue  string
		wantAction string
	}{
		{"malformed", &fakeCompletion{text: "The thread looks risky."}, "AI parsing error", "Manual review required"},
		{"empty", &fakeCompletion{text: ""}, "AI parsing error", "Manual review required"},
		{"call failed", &fakeCompletion{err: errors.New("deadline exceeded")}, "AI call failed", "Retry or manual review"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra := newAnalyzer(tt.llm).AnalyzeThread(context.Background(), shipDate)
			if ra.RiskLevel != domain.RiskUnknown || ra.ResponseDetected || !ra.Fallback {
				t.Errorf("risk=%s response=%v fallback=%v", ra.RiskLevel, ra.ResponseDetected, ra.Fallback)
			}
			if ra.Counts != (domain.ThreadCounts{TotalEmails: 3}) {
				t.Errorf("counts = %+v", ra.Counts)
			}
			if ra.IssueDetected != tt.wantIssue || ra.RecommendedAction != tt.wantAction {
				t.Errorf("issue=%q action=%q", ra.IssueDetected, ra.RecommendedAction)
			}
			if ra.Reason == "" || ra.ThreadSubject != "Ship Date" || ra.ProjectGuess != "Unknown" {
				t.Errorf("reason=%q subject=%q", ra.Reason, ra.ThreadSubject)
			}
		})
	}
}

func TestGroupAndAnalyze_OneAssessmentPerThreadInKeyOrder(t *testing.T) {
	msgs := []domain.Message{
		{ID: "1", From: "a@x.com", Subject: "Concrete", Date: "2025-01-01"},
		{ID: "2", From: "b@y.com", Subject: "Steel", Date: "2025-01-02"},
		{ID: "3", From: "c@z.com", Subject: "Re: Concrete", Date: "2025-01-03"},
	}
	llm := &fakeCompletion{text: `{"risk_level": "MEDIUM"}`}

	got, err := newAnalyzer(llm).GroupAndAnalyze(context.Background(), msgs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d assessments, want 2", len(got))
	}
	if got[0].ThreadSubject != "Concrete" || got[0].Counts.TotalEmails != 2 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].ThreadSubject != "Steel" || got[1].Counts.TotalEmails != 1 || got[1].RiskLevel != domain.RiskMedium {
		t.Errorf("second = %+v", got[1])
	}
}

func TestMeasure(t *testing.T) {
	th := []domain.Message{
		{From: "Sarah <sarah@carma.com>", To: "sales@vendor.com, Ops <ops@vendor.com>", Date: "Mon, 20 Oct 2025 09:00:00 -0700"},
		{From: "sales@vendor.com", Date: "Tue, 21 Oct 2025 10:00:00 -0700"},
		{From: "sarah@carma.com", Date: "Fri, 24 Oct 2025 08:00:00 -0700"},
		{From: "sarah@carma.com", Date: "not a date"},
	}
	m := Measure(th)

	if m.Escalated || !m.ReplyDetected {
		t.Errorf("escalated=%v reply=%v", m.Escalated, m.ReplyDetected)
	}
	if m.TrailingUnanswered != 2 {
		t.Errorf("trailing = %d, want 2", m.TrailingUnanswered)
	}
	if m.FromDomain != "carma.com" || m.ToDomain != "vendor.com" {
		t.Errorf("domains = %s / %s", m.FromDomain, m.ToDomain)
	}
	if len(m.Senders) != 2 || len(m.Receivers) != 2 {
		t.Errorf("senders=%v receivers=%v", m.Senders, m.Receivers)
	}
	if m.FirstDate != "2025-10-20" || m.LastDate != "2025-10-24" || m.DaysBetween != 4 {
		t.Errorf("timeline %s..%s (%d)", m.FirstDate, m.LastDate, m.DaysBetween)
	}
	if m.AvgGapDays != 2 || m.LastGapDays != 3 {
		t.Errorf("gaps avg=%v last=%v", m.AvgGapDays, m.LastGapDays)
	}
}

func TestMeasure_EdgeCases(t *testing.T) {
	if m := Measure(nil); m.Total != 0 || m.Escalated {
		t.Errorf("empty thread: %+v", m)
	}
	if m := Measure(shipDate[:1]); m.Escalated {
		t.Error("single message must not count as escalation")
	}
	if m := Measure([]domain.Message{{From: ""}, {From: ""}}); m.Escalated {
		t.Error("missing senders must not count as escalation")
	}
}
