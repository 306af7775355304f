package domain

// ProcurementRecord is one procurement event extracted from an email. It is appended
// to the store once per message id and never re-extracted.
type ProcurementRecord struct {
	ID                string             `json:"id"`
	From              string             `json:"from"`
	Subject           string             `json:"subject"`
	Date              string             `json:"date"`
	ProjectName       string             `json:"project_name"`
	MaterialEquipment string             `json:"material_equipment"`
	LeadTimeDays      int                `json:"lead_time_days"`
	Quantity          int                `json:"quantity"`
	Unit              string             `json:"unit"`
	VendorName        string             `json:"vendor_name"`
	DeliveryDate      string             `json:"delivery_date"`
	Status            string             `json:"status"`
	Remarks           string             `json:"remarks"`
	AIAnalysis        ProcurementInsight `json:"ai_analysis"`
}

type ProcurementInsight struct {
	Impact          string  `json:"impact"`
	Recommendation  string  `json:"recommendation"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Spreadsheet is one parsed procurement log workbook.
type Spreadsheet struct {
	Filename string              `json:"filename"`
	RowCount int                 `json:"row_count"`
	Columns  []string            `json:"columns"`
	Records  []map[string]string `json:"records"`
}

type Completeness string

const (
	CompletenessComplete   Completeness = "Complete"
	CompletenessPartial    Completeness = "Partial"
	CompletenessIncomplete Completeness = "Incomplete"
)

// VendorCompleteness classifies how completely a vendor's log rows are filled in.
type VendorCompleteness struct {
	VendorName    string       `json:"vendor_name"`
	Completeness  Completeness `json:"completeness"`
	MissingFields []string     `json:"missing_fields"`
	Remarks       string       `json:"remarks"`
}

type ProcurementAnalysis struct {
	Vendors    []VendorCompleteness `json:"vendors"`
	AIMetadata AnalysisMetadata     `json:"ai_metadata"`
}

type AnalysisMetadata struct {
	TotalVendors    int     `json:"total_vendors"`
	Complete        int     `json:"complete"`
	Partial         int     `json:"partial"`
	Incomplete      int     `json:"incomplete"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ProcurementAnalysisFile is what gets persisted for a spreadsheet analysis run.
type ProcurementAnalysisFile struct {
	InputFiles []string            `json:"input_files"`
	AnalyzedAt string              `json:"analyzed_at"`
	Analysis   ProcurementAnalysis `json:"analysis"`
}
