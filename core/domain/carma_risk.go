package domain

import "strings"

type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// ParseRiskLevel maps free text onto the fixed levels; anything unrecognised is UNKNOWN.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow
	case RiskMedium:
		return RiskMedium
	case RiskHigh:
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// RiskAssessment is the structured judgment about one thread.
type RiskAssessment struct {
	ThreadSubject     string       `json:"thread_subject"`
	ProjectGuess      string       `json:"project_guess"`
	Participants      Participants `json:"participants"`
	Counts            ThreadCounts `json:"counts"`
	Timeline          Timeline     `json:"timeline"`
	ResponseDetected  bool         `json:"response_detected"`
	IssueDetected     string       `json:"issue_detected"`
	ImpactArea        string       `json:"impact_area"`
	RiskLevel         RiskLevel    `json:"risk_level"`
	Reason            string       `json:"reason"`
	RecommendedAction string       `json:"recommended_action"`
	KPIs              KPIs         `json:"kpis"`

	// Fallback marks a placeholder built after a failed extraction. Not serialized.
	Fallback bool `json:"-"`
}

type Participants struct {
	FromDomain string   `json:"from_domain"`
	ToDomain   string   `json:"to_domain"`
	Senders    []string `json:"senders"`
	Receivers  []string `json:"receivers"`
}

type ThreadCounts struct {
	TotalEmails      int `json:"total_emails"`
	FollowUpCount    int `json:"follow_up_count"`
	UnansweredEmails int `json:"unanswered_emails"`
}

type Timeline struct {
	FirstEmailDate          string `json:"first_email_date"`
	LastEmailDate           string `json:"last_email_date"`
	DaysBetweenFirstAndLast int    `json:"days_between_first_and_last"`
}

type KPIs struct {
	AvgGapDays  float64 `json:"avg_gap_days"`
	LastGapDays float64 `json:"last_gap_days"`
}
