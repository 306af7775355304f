package domain

// WeeklyReport is the AI-generated weekly status report for a project.
type WeeklyReport struct {
	ProjectName              string                   `json:"project_name"`
	WeekRange                string                   `json:"week_range"`
	ProgressHighlights       []string                 `json:"progress_highlights"`
	ActiveIssues             []string                 `json:"active_issues"`
	SubcontractorPerformance SubcontractorPerformance `json:"subcontractor_performance"`
	ScheduleStatus           ScheduleStatus           `json:"schedule_status"`
	UpcomingMilestones       []string                 `json:"upcoming_milestones"`
	BudgetAndChanges         BudgetAndChanges         `json:"budget_and_changes"`
	AISummaryMetadata        SummaryMetadata          `json:"ai_summary_metadata"`
}

type SubcontractorPerformance struct {
	Responsive               []string `json:"responsive"`
	AttentionNeeded          []string `json:"attention_needed"`
	AverageResponseTimeHours float64  `json:"average_response_time_hours"`
}

type ScheduleStatus struct {
	Overall                   string  `json:"overall"`
	CriticalPathFloatDays     float64 `json:"critical_path_float_days"`
	SubstantialCompletionDate string  `json:"substantial_completion_date"`
}

type BudgetAndChanges struct {
	ChangeOrdersThisWeek        int     `json:"change_orders_this_week"`
	ContingencyRemainingPercent float64 `json:"contingency_remaining_percent"`
}

type SummaryMetadata struct {
	ConfidenceScore float64  `json:"confidence_score"`
	KeyTags         []string `json:"key_tags"`
	GeneratedAt     string   `json:"generated_at"`
}
