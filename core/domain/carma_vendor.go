package domain

// VendorReply is a drafted follow-up email to a subcontractor.
type VendorReply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SentEmail is one entry of the append-only sent-mail audit log.
type SentEmail struct {
	ID        string `json:"id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
