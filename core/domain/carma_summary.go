package domain

// Summary is the AI classification of one message. The echoed fields come from the
// message, the rest from the model (or the fallback when the model output is unusable).
type Summary struct {
	ID             string `json:"id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	Category       string `json:"category"`
	Summary        string `json:"summary"`
	ActionRequired string `json:"action_required"`
	Priority       string `json:"priority"`
	DueDate        string `json:"due_date"`
}

// MergeKey is id, or from+subject when id is empty.
func (s Summary) MergeKey() string {
	return FallbackKey(s.ID, s.From, s.Subject)
}
