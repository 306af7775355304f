// Package inbox pulls recent mail, normalizes it and runs the thread risk pipeline.
package inbox

import (
	"context"
	"math"
	"path"
	"strings"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/risk"
	"carma_server/core/service/textnorm"
	"carma_server/pkg/apperr"
)

const (
	CleanedFile         = "data/emails_cleaned.json"
	WithAttachmentsFile = "data/emails_with_attachments.json"
	AnalysisFile        = "output/ai_inbox_analysis.json"
	AttachmentsDir      = "data/attachments"

	DefaultFetchMax = 10
)

// NonResponsiveRecorder stores threads that are still waiting on a reply.
type NonResponsiveRecorder interface {
	RecordNonResponsive(ctx context.Context, assessments []domain.RiskAssessment) (int, error)
}

// AnalyzeResult is the outcome of one inbox analysis run.
type AnalyzeResult struct {
	ThreadCount   int                     `json:"thread_count"`
	TotalEmails   int                     `json:"total_emails"`
	NonResponsive int                     `json:"non_responsive"`
	Analyses      []domain.RiskAssessment `json:"analyses"`
	FilePath      string                  `json:"file_path"`
}

type Service struct {
	mail     out.MailSource
	store    out.RecordStore
	blobs    out.BlobStore
	analyzer *risk.Analyzer
	pending  NonResponsiveRecorder
	obs      out.Observer
	max      int
}

func NewService(
	mail out.MailSource,
	store out.RecordStore,
	blobs out.BlobStore,
	analyzer *risk.Analyzer,
	pending NonResponsiveRecorder,
	obs out.Observer,
	fetchMax int,
) *Service {
	if fetchMax <= 0 {
		fetchMax = DefaultFetchMax
	}
	return &Service{
		mail:     mail,
		store:    store,
		blobs:    blobs,
		analyzer: analyzer,
		pending:  pending,
		obs:      out.ObserverOrNop(obs),
		max:      fetchMax,
	}
}

// Fetch returns the most recent messages, normalized, and saves them as the cleaned inbox.
func (s *Service) Fetch(ctx context.Context) ([]domain.Message, error) {
	msgs, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, CleanedFile, msgs); err != nil {
		return nil, apperr.StorageError("save cleaned emails", err)
	}

	s.obs.Emit(ctx, out.Event{
		Severity: out.SeverityInfo,
		Name:     "inbox.fetched",
		Message:  "emails fetched",
		Fields:   map[string]any{"count": len(msgs)},
	})
	return msgs, nil
}

// FetchWithAttachments is Fetch plus attachment download. A failing attachment is
// reported and skipped.
func (s *Service) FetchWithAttachments(ctx context.Context) ([]domain.Message, error) {
	msgs, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	saved := 0
	for i := range msgs {
		infos := s.saveAttachments(ctx, msgs[i].ID)
		msgs[i].Attachments = infos
		msgs[i].HasAttachments = len(infos) > 0
		saved += len(infos)
	}

	if err := s.store.Save(ctx, WithAttachmentsFile, msgs); err != nil {
		return nil, apperr.StorageError("save emails with attachments", err)
	}

	s.obs.Emit(ctx, out.Event{
		Severity: out.SeverityInfo,
		Name:     "inbox.fetched",
		Message:  "emails fetched with attachments",
		Fields:   map[string]any{"count": len(msgs), "attachments": saved},
	})
	return msgs, nil
}

// Analyze fetches the inbox, scores every thread and records the non-responsive ones.
func (s *Service) Analyze(ctx context.Context) (AnalyzeResult, error) {
	// 1. Fetch
	msgs, err := s.Fetch(ctx)
	if err != nil {
		return AnalyzeResult{}, err
	}

	// 2. Analyze threads
	analyses, err := s.analyzer.GroupAndAnalyze(ctx, msgs)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if analyses == nil {
		analyses = []domain.RiskAssessment{}
	}

	// 3. Persist
	if err := s.store.Save(ctx, AnalysisFile, analyses); err != nil {
		return AnalyzeResult{}, apperr.StorageError("save inbox analysis", err)
	}
	pending := 0
	if s.pending != nil {
		if pending, err = s.pending.RecordNonResponsive(ctx, analyses); err != nil {
			return AnalyzeResult{}, err
		}
	}

	return AnalyzeResult{
		ThreadCount:   len(analyses),
		TotalEmails:   len(msgs),
		NonResponsive: pending,
		Analyses:      analyses,
		FilePath:      AnalysisFile,
	}, nil
}

func (s *Service) fetch(ctx context.Context) ([]domain.Message, error) {
	raw, err := s.mail.FetchRecent(ctx, s.max)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.SourceUnavailable("mail", err)
	}

	msgs := make([]domain.Message, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, Normalize(m))
	}
	return msgs, nil
}

// Normalize cleans the body, reduces the sender to an address and unescapes the snippet.
func Normalize(m domain.Message) domain.Message {
	m.From = textnorm.ExtractAddress(m.From)
	m.Body = textnorm.CleanBody(m.Body, textnorm.DefaultMaxBody)
	m.Snippet = textnorm.Snippet(m.Snippet)
	m.CleanStatus = "ok"
	return m
}

func (s *Service) saveAttachments(ctx context.Context, id string) []domain.AttachmentInfo {
	if s.blobs == nil || id == "" {
		return nil
	}

	atts, err := s.mail.FetchAttachments(ctx, id)
	if err != nil {
		s.obs.Emit(ctx, out.Event{
			Severity: out.SeverityWarn,
			Name:     "inbox.attachment_failed",
			Message:  "attachment fetch failed",
			Fields:   map[string]any{"message_id": id},
			Err:      err,
		})
		return nil
	}

	var infos []domain.AttachmentInfo
	for _, a := range atts {
		name := path.Base(strings.ReplaceAll(a.Filename, "\\", "/"))
		if name == "" || name == "." || name == "/" {
			continue
		}
		p, err := s.blobs.PutBlob(ctx, AttachmentsDir+"/"+name, a.Data)
		if err != nil {
			s.obs.Emit(ctx, out.Event{
				Severity: out.SeverityWarn,
				Name:     "inbox.attachment_failed",
				Message:  "attachment save failed",
				Fields:   map[string]any{"message_id": id, "filename": name},
				Err:      err,
			})
			continue
		}
		infos = append(infos, domain.AttachmentInfo{
			Filename: name,
			Path:     p,
			MimeType: a.MimeType,
			SizeKB:   math.Round(float64(len(a.Data))/1024*100) / 100,
		})
	}
	return infos
}
