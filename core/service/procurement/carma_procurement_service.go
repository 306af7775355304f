// Package procurement extracts procurement events from email and audits vendor
// procurement logs.
package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/extract"
	"carma_server/core/service/merge"
	"carma_server/core/service/textnorm"
	"carma_server/pkg/apperr"
)

const (
	StoreFile      = "data/procurement_from_emails.json"
	AnalysisFile   = "output/procurement_analysis.json"
	AttachmentsDir = "data/attachments"

	maxRowsPerSheet = 50
	maxPayloadChars = 15000
	maxBodyChars    = 4000

	fallbackRemarks = "AI parsing failed; requires manual review."
)

// EmailFetcher yields normalized recent emails.
type EmailFetcher interface {
	Fetch(ctx context.Context) ([]domain.Message, error)
}

type Service struct {
	store   out.RecordStore
	records *merge.Store[domain.ProcurementRecord]
	mail    EmailFetcher
	sheets  out.SpreadsheetSource
	ext     *extract.Extractor
	obs     out.Observer
	limit   int
	now     func() time.Time
}

func NewService(
	store out.RecordStore,
	mail EmailFetcher,
	sheets out.SpreadsheetSource,
	ext *extract.Extractor,
	obs out.Observer,
	concurrency int,
) *Service {
	obs = out.ObserverOrNop(obs)
	return &Service{
		store:   store,
		records: merge.NewStore(store, obs, func(r domain.ProcurementRecord) string { return r.ID }),
		mail:    mail,
		sheets:  sheets,
		ext:     ext,
		obs:     obs,
		limit:   concurrency,
		now:     time.Now,
	}
}

// AnalyzeResult is the response of AnalyzeLogs.
type AnalyzeResult struct {
	FileSaved     string                     `json:"file_saved"`
	FilesAnalyzed int                        `json:"files_analyzed"`
	Result        domain.ProcurementAnalysis `json:"result"`
}

// ExtractFromEmails extracts a record for every fetched email whose id is not yet in the
// store, saves the full store and returns the records whose project_name is in projects
// (all records when projects is empty). Emails already processed are never re-extracted.
// A fallback caused by a failed completion call is returned but not stored, so that
// email is retried on the next run.
func (s *Service) ExtractFromEmails(ctx context.Context, projects []string) ([]domain.ProcurementRecord, error) {
	// 1. Existing records
	records, err := s.records.Load(ctx, StoreFile)
	if err != nil {
		return nil, apperr.StorageError("load procurement store", err)
	}
	processed := merge.Keys(records, func(r domain.ProcurementRecord) string { return r.ID })

	// 2. Fetch mail
	emails, err := s.mail.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	// 3. Extract unprocessed
	var pending []domain.Message
	for _, e := range emails {
		if e.ID == "" {
			continue
		}
		if _, ok := processed[e.ID]; ok {
			continue
		}
		processed[e.ID] = struct{}{}
		pending = append(pending, e)
	}

	extracted := make([]domain.ProcurementRecord, len(pending))
	retry := make([]bool, len(pending))
	err = extract.ForEach(ctx, len(pending), s.limit, func(ctx context.Context, i int) {
		extracted[i], retry[i] = s.extractRecord(ctx, pending[i])
	})
	if err != nil {
		return nil, err
	}

	// 4. Persist full store, leaving out records to retry
	if records == nil {
		records = []domain.ProcurementRecord{}
	}
	response := append([]domain.ProcurementRecord(nil), records...)
	deferred := 0
	for i, rec := range extracted {
		response = append(response, rec)
		if retry[i] {
			deferred++
			continue
		}
		records = append(records, rec)
	}
	if err := s.store.Save(ctx, StoreFile, records); err != nil {
		return nil, apperr.StorageError("save procurement store", err)
	}

	s.obs.Emit(ctx, out.Event{
		Severity: out.SeverityInfo,
		Name:     "procurement.extracted",
		Message:  "procurement extraction complete",
		Fields: map[string]any{
			"fetched":  len(emails),
			"new":      len(extracted) - deferred,
			"deferred": deferred,
			"total":    len(records),
		},
	})
	return filterByProject(response, projects), nil
}

func filterByProject(records []domain.ProcurementRecord, projects []string) []domain.ProcurementRecord {
	wanted := map[string]bool{}
	for _, p := range projects {
		if p != "" {
			wanted[p] = true
		}
	}
	if len(wanted) == 0 {
		return records
	}
	filtered := []domain.ProcurementRecord{}
	for _, r := range records {
		if wanted[strings.TrimSpace(r.ProjectName)] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// extractRecord reports retry when the completion call itself failed.
func (s *Service) extractRecord(ctx context.Context, e domain.Message) (domain.ProcurementRecord, bool) {
	req := extract.Request{
		Name:         "procurement.extract",
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   fmt.Sprintf(extractUserPrompt, schemaExample, e.Subject, textnorm.Truncate(e.Body, maxBodyChars)),
		Temperature:  0.2,
		MaxTokens:    600,
	}

	rec, failure := extract.Decode(ctx, s.ext, req, recordFromDocument, func(*extract.Failure) domain.ProcurementRecord {
		return domain.ProcurementRecord{
			DeliveryDate: "Pending",
			Status:       "Pending",
			Remarks:      fallbackRemarks,
		}
	})
	rec.ID = e.ID
	rec.From = e.From
	rec.Subject = e.Subject
	rec.Date = e.Date
	return rec, failure != nil && failure.Kind == extract.KindCompletionFailed
}

func recordFromDocument(d extract.Document) domain.ProcurementRecord {
	ai := d.Object("ai_analysis")
	return domain.ProcurementRecord{
		ProjectName:       strings.TrimSpace(d.String("project_name", "")),
		MaterialEquipment: d.String("material_equipment", ""),
		LeadTimeDays:      d.Int("lead_time_days"),
		Quantity:          d.Int("quantity"),
		Unit:              d.String("unit", ""),
		VendorName:        d.String("vendor_name", ""),
		DeliveryDate:      d.String("delivery_date", "Pending"),
		Status:            d.String("status", "Pending"),
		Remarks:           d.String("remarks", ""),
		AIAnalysis: domain.ProcurementInsight{
			Impact:          ai.String("impact", ""),
			Recommendation:  ai.String("recommendation", ""),
			ConfidenceScore: extract.Clamp01(ai.Float("confidence_score")),
		},
	}
}

// AnalyzeLogs classifies vendor completeness across every procurement workbook in the
// attachments directory and saves the analysis.
func (s *Service) AnalyzeLogs(ctx context.Context) (*AnalyzeResult, error) {
	// 1. Parse workbooks
	sheets, skipped, err := s.sheets.ReadAll(ctx, AttachmentsDir, maxRowsPerSheet)
	if err != nil {
		return nil, apperr.SourceUnavailable("procurement logs", err)
	}
	for _, e := range skipped {
		s.obs.Emit(ctx, out.Event{Severity: out.SeverityWarn, Name: "procurement.sheet_skipped", Message: "unreadable workbook skipped", Err: e})
	}
	if len(sheets) == 0 {
		if len(skipped) == 0 {
			return nil, apperr.NotFound("No Excel files (.xlsx) found in /data/attachments/")
		}
		return nil, apperr.SourceUnavailable("procurement logs", fmt.Errorf("failed to parse any Excel files (%d skipped)", len(skipped)))
	}

	// 2. Classify
	payload, _ := json.MarshalIndent(sheets, "", "  ")
	req := extract.Request{
		Name:         "procurement.analyze",
		SystemPrompt: analyzeSystemPrompt,
		UserPrompt:   fmt.Sprintf(analyzeUserPrompt, truncatePayload(string(payload))),
		Temperature:  0.2,
		MaxTokens:    2000,
	}
	doc, err := s.ext.Extract(ctx, req)
	var analysis domain.ProcurementAnalysis
	if err != nil {
		f, _ := extract.AsFailure(err)
		if f != nil && f.Kind == extract.KindCompletionFailed {
			return nil, apperr.ExternalError("completion", f.Err)
		}
		analysis = analysisFromDocument(extract.Document{})
	} else {
		analysis = analysisFromDocument(doc)
	}

	// 3. Save
	files := make([]string, 0, len(sheets))
	for _, sh := range sheets {
		files = append(files, sh.Filename)
	}
	saved := domain.ProcurementAnalysisFile{
		InputFiles: files,
		AnalyzedAt: s.now().Format(time.RFC3339),
		Analysis:   analysis,
	}
	if err := s.store.Save(ctx, AnalysisFile, saved); err != nil {
		return nil, apperr.StorageError("save procurement analysis", err)
	}

	return &AnalyzeResult{FileSaved: AnalysisFile, FilesAnalyzed: len(sheets), Result: analysis}, nil
}

func truncatePayload(s string) string {
	if len(s) <= maxPayloadChars {
		return s
	}
	return textnorm.Truncate(s, maxPayloadChars) + "..."
}

// analysisFromDocument coerces the vendor list and recomputes the counts from it.
func analysisFromDocument(d extract.Document) domain.ProcurementAnalysis {
	a := domain.ProcurementAnalysis{Vendors: []domain.VendorCompleteness{}}
	for _, v := range d.Objects("vendors") {
		vc := domain.VendorCompleteness{
			VendorName:    v.String("vendor_name", ""),
			Completeness:  parseCompleteness(v.String("completeness", "")),
			MissingFields: v.Strings("missing_fields"),
			Remarks:       v.String("remarks", ""),
		}
		switch vc.Completeness {
		case domain.CompletenessComplete:
			a.AIMetadata.Complete++
		case domain.CompletenessPartial:
			a.AIMetadata.Partial++
		default:
			a.AIMetadata.Incomplete++
		}
		a.Vendors = append(a.Vendors, vc)
	}
	a.AIMetadata.TotalVendors = len(a.Vendors)
	a.AIMetadata.ConfidenceScore = extract.Clamp01(d.Object("ai_metadata").Float("confidence_score"))
	return a
}

func parseCompleteness(s string) domain.Completeness {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete":
		return domain.CompletenessComplete
	case "partial":
		return domain.CompletenessPartial
	default:
		return domain.CompletenessIncomplete
	}
}
