// Package report generates weekly project status reports from fetched email.
package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/extract"
	"carma_server/core/service/textnorm"
	"carma_server/pkg/apperr"
)

const (
	EmailsFile = "data/emails_cleaned.json"
	ReportsDir = "output/weekly_reports"

	maxEmailChars  = 5000
	fallbackEmails = 10
	summaryItems   = 5
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// WeeklyRequest names the project and the reporting window (free-form date strings).
type WeeklyRequest struct {
	ProjectName string `json:"project_name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// WeeklyResult is the response of Weekly.
type WeeklyResult struct {
	ProjectName   string              `json:"project_name"`
	ReportFile    string              `json:"report_file"`
	ReportSummary string              `json:"report_summary"`
	AIConfidence  float64             `json:"ai_confidence"`
	FullReport    domain.WeeklyReport `json:"full_report"`
}

type Service struct {
	store out.RecordStore
	ext   *extract.Extractor
	obs   out.Observer
	now   func() time.Time
}

func NewService(store out.RecordStore, ext *extract.Extractor, obs out.Observer) *Service {
	return &Service{store: store, ext: ext, obs: out.ObserverOrNop(obs), now: time.Now}
}

// ReportFile is where the report for req is saved. Every component is reduced to
// [a-zA-Z0-9_-] so the name stays inside ReportsDir.
func ReportFile(req WeeklyRequest) string {
	safe := func(s string) string { return unsafeName.ReplaceAllString(s, "_") }
	return fmt.Sprintf("%s/%s_%s_%s.json", ReportsDir, safe(req.ProjectName), safe(req.StartDate), safe(req.EndDate))
}

// Weekly builds the report for req from the last fetched emails.
func (s *Service) Weekly(ctx context.Context, req WeeklyRequest) (*WeeklyResult, error) {
	if strings.TrimSpace(req.ProjectName) == "" {
		return nil, apperr.MissingField("project_name")
	}

	// 1. Load fetched emails
	var emails []domain.Message
	found, err := s.store.Load(ctx, EmailsFile, &emails)
	corrupt := errors.Is(err, out.ErrCorrupt)
	if err != nil && !corrupt {
		return nil, apperr.StorageError("load emails", err)
	}
	if !found {
		return nil, apperr.NotFound("Emails file not found. Please fetch emails first using /api/emails/fetch")
	}
	if corrupt {
		s.obs.Emit(ctx, out.Event{
			Severity: out.SeverityWarn,
			Name:     "store.corrupt",
			Message:  "fetched emails unreadable, treating as empty",
			Fields:   map[string]any{"name": EmailsFile},
			Err:      err,
		})
		emails = nil
	}

	// 2. Select project emails
	selected := selectEmails(emails, req.ProjectName)

	// 3. Generate
	payload, _ := json.MarshalIndent(selected, "", "  ")
	data := string(payload)
	if cut := textnorm.Truncate(data, maxEmailChars); cut != data {
		data = cut + "..."
	}
	ereq := extract.Request{
		Name:         "report.weekly",
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf(userPrompt, req.ProjectName, req.StartDate, req.EndDate, data, fewShotExample, reportSchema),
		Temperature:  0.2,
		MaxTokens:    1500,
	}
	doc, err := s.ext.Extract(ctx, ereq)
	var report domain.WeeklyReport
	if err != nil {
		f, _ := extract.AsFailure(err)
		if f != nil && f.Kind == extract.KindCompletionFailed {
			return nil, apperr.ExternalError("completion", f.Err)
		}
		report = s.fallbackReport(req, err)
	} else {
		report = s.fromDocument(doc, req)
	}

	// 4. Save
	file := ReportFile(req)
	if err := s.store.Save(ctx, file, report); err != nil {
		return nil, apperr.StorageError("save weekly report", err)
	}

	return &WeeklyResult{
		ProjectName:   req.ProjectName,
		ReportFile:    file,
		ReportSummary: Markdown(report),
		AIConfidence:  report.AISummaryMetadata.ConfidenceScore,
		FullReport:    report,
	}, nil
}

// selectEmails keeps emails mentioning project in subject or body, or the first ten
// when none do.
func selectEmails(emails []domain.Message, project string) []domain.Message {
	needle := strings.ToLower(project)
	var matched []domain.Message
	for _, e := range emails {
		if strings.Contains(strings.ToLower(e.Subject), needle) || strings.Contains(strings.ToLower(e.Body), needle) {
			matched = append(matched, e)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	if len(emails) > fallbackEmails {
		return emails[:fallbackEmails]
	}
	return emails
}

func (s *Service) fromDocument(d extract.Document, req WeeklyRequest) domain.WeeklyReport {
	sp := d.Object("subcontractor_performance")
	ss := d.Object("schedule_status")
	bc := d.Object("budget_and_changes")
	md := d.Object("ai_summary_metadata")

	return domain.WeeklyReport{
		ProjectName:        d.String("project_name", req.ProjectName),
		WeekRange:          d.String("week_range", req.StartDate+" - "+req.EndDate),
		ProgressHighlights: d.Strings("progress_highlights"),
		ActiveIssues:       d.Strings("active_issues"),
		SubcontractorPerformance: domain.SubcontractorPerformance{
			Responsive:               sp.Strings("responsive"),
			AttentionNeeded:          sp.Strings("attention_needed"),
			AverageResponseTimeHours: sp.Float("average_response_time_hours"),
		},
		ScheduleStatus: domain.ScheduleStatus{
			Overall:                   ss.String("overall", "Unknown"),
			CriticalPathFloatDays:     ss.Float("critical_path_float_days"),
			SubstantialCompletionDate: ss.String("substantial_completion_date", ""),
		},
		UpcomingMilestones: d.Strings("upcoming_milestones"),
		BudgetAndChanges: domain.BudgetAndChanges{
			ChangeOrdersThisWeek:        bc.Int("change_orders_this_week"),
			ContingencyRemainingPercent: bc.Float("contingency_remaining_percent"),
		},
		AISummaryMetadata: domain.SummaryMetadata{
			ConfidenceScore: extract.Clamp01(md.Float("confidence_score")),
			KeyTags:         md.Strings("key_tags"),
			GeneratedAt:     md.String("generated_at", s.now().UTC().Format(time.RFC3339)),
		},
	}
}

func (s *Service) fallbackReport(req WeeklyRequest, err error) domain.WeeklyReport {
	return domain.WeeklyReport{
		ProjectName:        req.ProjectName,
		WeekRange:          req.StartDate + " - " + req.EndDate,
		ProgressHighlights: []string{},
		ActiveIssues:       []string{"AI parsing failed; report requires manual review (" + err.Error() + ")"},
		SubcontractorPerformance: domain.SubcontractorPerformance{
			Responsive:      []string{},
			AttentionNeeded: []string{},
		},
		ScheduleStatus:     domain.ScheduleStatus{Overall: "Unknown"},
		UpcomingMilestones: []string{},
		AISummaryMetadata: domain.SummaryMetadata{
			KeyTags:     []string{},
			GeneratedAt: s.now().UTC().Format(time.RFC3339),
		},
	}
}

// Markdown renders the short status summary shown in the dashboard.
func Markdown(r domain.WeeklyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s - WEEKLY STATUS REPORT**\n", r.ProjectName)
	fmt.Fprintf(&b, "\n**Week:** %s\n", r.WeekRange)
	b.WriteString("\n**Progress Highlights:**\n")
	for _, h := range firstN(r.ProgressHighlights, summaryItems) {
		fmt.Fprintf(&b, "• %s\n", h)
	}
	if len(r.ActiveIssues) > 0 {
		b.WriteString("\n**Active Issues:**\n")
		for _, i := range firstN(r.ActiveIssues, summaryItems) {
			fmt.Fprintf(&b, "• %s\n", i)
		}
	}
	fmt.Fprintf(&b, "\n**Schedule Status:** %s\n", r.ScheduleStatus.Overall)
	fmt.Fprintf(&b, "**AI Confidence:** %.2f", r.AISummaryMetadata.ConfidenceScore)
	return b.String()
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
