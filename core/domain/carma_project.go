package domain

// ProjectDataset is the shape of data/demo_emails.json.
type ProjectDataset struct {
	Projects []Project `json:"projects"`
}

// Project groups a project's emails in the demo dataset.
type Project struct {
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Emails      []Message `json:"emails"`
}

// ProjectEmail is a dataset email enriched with its project identity.
type ProjectEmail struct {
	Message
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
}

// DefaultCategories is served when no categories file exists.
var DefaultCategories = []string{"All", "RFI", "Material Delay", "Schedule Update", "General", "Submittal", "Coordination"}
