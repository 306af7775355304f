package risk

import (
	"math"
	"net/mail"
	"strings"
	"time"

	"carma_server/core/domain"
	"carma_server/core/service/textnorm"
)

// Metrics are the header-derived facts about a thread.
type Metrics struct {
	Total      int      `json:"total_emails"`
	Opener     string   `json:"opener"`
	Senders    []string `json:"senders"`
	Receivers  []string `json:"receivers"`
	FromDomain string   `json:"from_domain"`
	ToDomain   string   `json:"to_domain"`

	// ReplyDetected is true when someone other than the opener wrote in the thread.
	ReplyDetected bool `json:"reply_detected"`

	// Escalated is true for two or more messages all sent by the opener.
	Escalated bool `json:"escalated"`

	// TrailingUnanswered counts opener messages after the last reply.
	TrailingUnanswered int `json:"trailing_unanswered"`

	DatesParsed bool    `json:"dates_parsed"`
	FirstDate   string  `json:"first_email_date,omitempty"`
	LastDate    string  `json:"last_email_date,omitempty"`
	DaysBetween int     `json:"days_between_first_and_last"`
	AvgGapDays  float64 `json:"avg_gap_days"`
	LastGapDays float64 `json:"last_gap_days"`
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate accepts RFC 5322 mail dates and the ISO-like forms used in datasets.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Measure computes Metrics for a thread as ordered by the grouper.
func Measure(thread []domain.Message) Metrics {
	m := Metrics{Total: len(thread), Senders: []string{}, Receivers: []string{}}
	if len(thread) == 0 {
		return m
	}

	m.Opener = strings.ToLower(textnorm.ExtractAddress(thread[0].From))
	m.FromDomain = textnorm.Domain(m.Opener)

	seenSender := map[string]bool{}
	seenReceiver := map[string]bool{}
	addReceiver := func(addr string) {
		if addr == "" || addr == m.Opener || seenReceiver[addr] {
			return
		}
		seenReceiver[addr] = true
		m.Receivers = append(m.Receivers, addr)
	}

	allOpener := m.Opener != ""
	for _, msg := range thread {
		from := strings.ToLower(textnorm.ExtractAddress(msg.From))
		if from != "" && !seenSender[from] {
			seenSender[from] = true
			m.Senders = append(m.Senders, from)
		}
		if from == m.Opener {
			m.TrailingUnanswered++
		} else {
			allOpener = false
			m.ReplyDetected = true
			m.TrailingUnanswered = 0
			addReceiver(from)
		}
		for _, to := range splitAddresses(msg.To) {
			addReceiver(to)
		}
	}
	m.Escalated = allOpener && len(thread) >= 2
	if len(m.Receivers) > 0 {
		m.ToDomain = textnorm.Domain(m.Receivers[0])
	}

	measureTimeline(&m, thread)
	return m
}

func splitAddresses(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(field); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(field, ",") {
		if a := strings.ToLower(textnorm.ExtractAddress(part)); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func measureTimeline(m *Metrics, thread []domain.Message) {
	var days []time.Time
	for _, msg := range thread {
		if t, ok := ParseDate(msg.Date); ok {
			y, mo, d := t.Date()
			days = append(days, time.Date(y, mo, d, 0, 0, 0, 0, time.UTC))
		}
	}
	if len(days) == 0 {
		return
	}

	m.DatesParsed = true
	first, last := days[0], days[len(days)-1]
	m.FirstDate = first.Format("2006-01-02")
	m.LastDate = last.Format("2006-01-02")
	m.DaysBetween = int(math.Abs(last.Sub(first).Hours()) / 24)

	if len(days) < 2 {
		return
	}
	var sum float64
	for i := 1; i < len(days); i++ {
		gap := math.Abs(days[i].Sub(days[i-1]).Hours()) / 24
		sum += gap
		m.LastGapDays = gap
	}
	m.AvgGapDays = round1(sum / float64(len(days)-1))
	m.LastGapDays = round1(m.LastGapDays)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
