package report

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"testing"
	"time"

	"carma_server/core/domain"
	"carma_server/core/service/extract"
	"carma_server/internal/testkit"
	"carma_server/pkg/apperr"
)

func newService(store *testkit.MemStore, llm *testkit.Completion) *Service {
	svc := NewService(store, extract.New(llm, nil), nil)
	svc.now = func() time.Time { return time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC) }
	return svc
}

var week = WeeklyRequest{ProjectName: "Tower A", StartDate: "2025-10-20", EndDate: "2025-10-26"}

const reportJSON = `{
  "project_name": "Tower A",
  "week_range": "Oct 20 - Oct 26, 2025",
  "progress_highlights": ["h1","h2","h3","h4","h5","h6"],
  "active_issues": ["Steel delay"],
  "subcontractor_performance": {"responsive": ["ABC"], "attention_needed": ["Elite"], "average_response_time_hours": "12"},
  "schedule_status": {"overall": "Behind", "critical_path_float_days": -2, "substantial_completion_date": "2026-03-01"},
  "upcoming_milestones": ["Oct 30: Inspection"],
  "budget_and_changes": {"change_orders_this_week": 2, "contingency_remaining_percent": 4.5},
  "ai_summary_metadata": {"confidence_score": 0.876, "key_tags": ["delay"], "generated_at": "2025-10-26T17:00:00Z"}
}`

func TestWeekly(t *testing.T) {
	store := testkit.NewMemStore()
	store.Put(EmailsFile, []domain.Message{
		{ID: "1", Subject: "Tower A steel", Body: "delayed"},
		{ID: "2", Subject: "Other job", Body: "nothing about tower a"},
		{ID: "3", Subject: "Clinic", Body: "unrelated"},
	})
	llm := &testkit.Completion{Text: "```json\n" + reportJSON + "\n```"}

	res, err := newService(store, llm).Weekly(context.Background(), week)
	if err != nil {
		t.Fatal(err)
	}

	prompt := llm.Calls()[0].UserPrompt
	if !strings.Contains(prompt, "Tower A steel") || !strings.Contains(prompt, "nothing about tower a") || strings.Contains(prompt, "unrelated") {
		t.Errorf("project email selection wrong:\n%s", prompt)
	}

	if res.ReportFile != "output/weekly_reports/Tower_A_2025-10-20_2025-10-26.json" {
		t.Errorf("ReportFile = %s", res.ReportFile)
	}
	if res.AIConfidence != 0.876 || res.FullReport.SubcontractorPerformance.AverageResponseTimeHours != 12 {
		t.Errorf("coercion: %+v", res.FullReport)
	}
	if res.FullReport.BudgetAndChanges.ChangeOrdersThisWeek != 2 || res.FullReport.ScheduleStatus.CriticalPathFloatDays != -2 {
		t.Errorf("report = %+v", res.FullReport)
	}

	sum := res.ReportSummary
	if !strings.HasPrefix(sum, "**Tower A - WEEKLY STATUS REPORT**") || strings.Contains(sum, "h6") || !strings.Contains(sum, "• h5") {
		t.Errorf("summary:\n%s", sum)
	}
	if !strings.Contains(sum, "**Schedule Status:** Behind") || !strings.HasSuffix(sum, "**AI Confidence:** 0.88") {
		t.Errorf("summary:\n%s", sum)
	}

	var saved domain.WeeklyReport
	if !store.Get(res.ReportFile, &saved) || saved.WeekRange != "Oct 20 - Oct 26, 2025" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestWeekly_FallsBackToFirstTenEmails(t *testing.T) {
	store := testkit.NewMemStore()
	var emails []domain.Message
	for i := 0; i < 12; i++ {
		emails = append(emails, domain.Message{ID: fmt.Sprintf("id-%02d", i), Subject: "misc"})
	}
	store.Put(EmailsFile, emails)
	llm := &testkit.Completion{Text: reportJSON}

	if _, err := newService(store, llm).Weekly(context.Background(), week); err != nil {
		t.Fatal(err)
	}
	prompt := llm.Calls()[0].UserPrompt
	if !strings.Contains(prompt, "id-09") || strings.Contains(prompt, "id-10") {
		t.Error("expected exactly the first ten emails")
	}
}

func TestWeekly_MalformedOutputFallback(t *testing.T) {
	store := testkit.NewMemStore()
	store.Put(EmailsFile, []domain.Message{})

	res, err := newService(store, &testkit.Completion{Text: "I could not produce a report."}).Weekly(context.Background(), week)
	if err != nil {
		t.Fatal(err)
	}
	r := res.FullReport
	if r.AISummaryMetadata.ConfidenceScore != 0 || len(r.ActiveIssues) != 1 || !strings.HasPrefix(r.ActiveIssues[0], "AI parsing failed") {
		t.Errorf("fallback = %+v", r)
	}
	if r.WeekRange != "2025-10-20 - 2025-10-26" || r.ScheduleStatus.Overall != "Unknown" {
		t.Errorf("fallback = %+v", r)
	}
	if !store.Has(res.ReportFile) {
		t.Error("fallback report not saved")
	}
}

func TestWeekly_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(testkit.NewMemStore(), &testkit.Completion{}).Weekly(ctx, week)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("missing emails file: %v", err)
	}

	_, err = newService(testkit.NewMemStore(), &testkit.Completion{}).Weekly(ctx, WeeklyRequest{})
	if !apperr.IsCode(err, apperr.CodeMissingField) {
		t.Errorf("missing project: %v", err)
	}

	store := testkit.NewMemStore()
	store.Put(EmailsFile, []domain.Message{{ID: "1"}})
	_, err = newService(store, &testkit.Completion{Err: errors.New("timeout")}).Weekly(ctx, week)
	if !apperr.IsCode(err, apperr.CodeExternalError) {
		t.Errorf("completion failure: %v", err)
	}
}

func TestReportFile_SanitizesName(t *testing.T) {
	got := ReportFile(WeeklyRequest{ProjectName: "Tower A/B (Phase 2)", StartDate: "s", EndDate: "e"})
	if got != "output/weekly_reports/Tower_A_B__Phase_2__s_e.json" {
		t.Errorf("ReportFile = %s", got)
	}
}

func TestReportFile_StaysInReportsDir(t *testing.T) {
	tests := []WeeklyRequest{
		{ProjectName: "Tower", StartDate: "x/../..", EndDate: "x/../../tower"},
		{ProjectName: "..", StartDate: "../../data", EndDate: "emails_cleaned"},
		{ProjectName: "Tower", StartDate: "2025-10-20", EndDate: `..\..\x`},
	}
	for _, req := range tests {
		got := ReportFile(req)
		if path.Dir(got) != ReportsDir || strings.Contains(got, "..") || path.Clean(got) != got {
			t.Errorf("ReportFile(%+v) = %s", req, got)
		}
	}
	if got := ReportFile(WeeklyRequest{ProjectName: "Tower", StartDate: "2025-10-20", EndDate: "2025-10-26"}); got != "output/weekly_reports/Tower_2025-10-20_2025-10-26.json" {
		t.Errorf("dates changed: %s", got)
	}
}
