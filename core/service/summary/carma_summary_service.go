// Package summary classifies and summarizes project emails and persists the results.
package summary

import (
	"context"
	"fmt"
	"strings"

	"carma_server/core/domain"
	"carma_server/core/port/out"
	"carma_server/core/service/category"
	"carma_server/core/service/extract"
	"carma_server/core/service/merge"
	"carma_server/core/service/project"
	"carma_server/core/service/textnorm"
	"carma_server/pkg/apperr"
)

// Query selects the emails to summarize. Empty Priority and Role do not filter;
// Category "All" (or empty) does not filter.
type Query struct {
	Project  string `json:"project"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Role     string `json:"role"`
}

type Result struct {
	Message   string           `json:"message"`
	Project   string           `json:"project"`
	Summaries []domain.Summary `json:"summaries"`
}

type Service struct {
	projects  *project.Service
	store     out.RecordStore
	ext       *extract.Extractor
	filter    *category.Filter
	summaries *merge.Store[domain.Summary]
	obs       out.Observer
	limit     int
}

func NewService(
	store out.RecordStore,
	projects *project.Service,
	ext *extract.Extractor,
	filter *category.Filter,
	obs out.Observer,
	concurrency int,
) *Service {
	obs = out.ObserverOrNop(obs)
	return &Service{
		projects:  projects,
		store:     store,
		ext:       ext,
		filter:    filter,
		summaries: merge.NewStore(store, obs, domain.Summary.MergeKey),
		obs:       obs,
		limit:     concurrency,
	}
}

// Slug is the file-name form of a project name.
func Slug(projectName string) string {
	return strings.ReplaceAll(strings.ToLower(projectName), " ", "_")
}

// OutputFile is where a project's summaries are persisted.
func OutputFile(projectName string) string {
	return "output/" + Slug(projectName) + "_summarized.json"
}

// Summarize classifies the emails of q.Project that pass the filters, merges the
// results into the project's summary store and returns the new summaries.
// A project without any data is a not-found error.
func (s *Service) Summarize(ctx context.Context, q Query) (*Result, error) {
	if strings.TrimSpace(q.Project) == "" {
		return nil, apperr.MissingField("project")
	}

	// 1. Load project emails
	emails, err := s.projectEmails(ctx, q.Project)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, apperr.NotFound("Project data not found: " + q.Project)
	}

	// 2. Deterministic filters
	emails = filterEmails(emails, q.Priority, q.Role)

	// 3. Semantic category filter
	emails, err = s.filter.FilterByCategory(ctx, emails, q.Category)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return &Result{Message: "No emails match the selected filters", Project: q.Project, Summaries: []domain.Summary{}}, nil
	}

	// 4. Per-email classification
	summaries := make([]domain.Summary, len(emails))
	err = extract.ForEach(ctx, len(emails), s.limit, func(ctx context.Context, i int) {
		summaries[i] = s.classify(ctx, emails[i])
	})
	if err != nil {
		return nil, err
	}

	// 5. Persist
	if _, err := s.summaries.MergeInto(ctx, OutputFile(q.Project), summaries); err != nil {
		return nil, apperr.StorageError("save summaries", err)
	}

	s.obs.Emit(ctx, out.Event{
		Severity: out.SeverityInfo,
		Name:     "summary.completed",
		Message:  "summarization complete",
		Fields:   map[string]any{"project": q.Project, "count": len(summaries)},
	})
	return &Result{Message: "Summarization complete", Project: q.Project, Summaries: summaries}, nil
}

// Stored returns persisted summaries filtered by category (case-insensitive).
func (s *Service) Stored(ctx context.Context, projectName, cat string) ([]domain.Summary, error) {
	list, err := s.summaries.Load(ctx, OutputFile(projectName))
	if err != nil {
		return nil, apperr.StorageError("load summaries", err)
	}
	if category.IsAll(cat) {
		return list, nil
	}
	filtered := []domain.Summary{}
	for _, sm := range list {
		if strings.EqualFold(sm.Category, cat) {
			filtered = append(filtered, sm)
		}
	}
	return filtered, nil
}

func (s *Service) projectEmails(ctx context.Context, name string) ([]domain.Message, error) {
	p, ok, err := s.projects.Find(ctx, name)
	if err != nil {
		return nil, apperr.StorageError("load project dataset", err)
	}
	if ok && len(p.Emails) > 0 {
		return p.Emails, nil
	}

	emails, err := merge.LoadList[domain.Message](ctx, s.store, s.obs, "data/"+Slug(name)+".json")
	if err != nil {
		return nil, apperr.StorageError("load project file", err)
	}
	return emails, nil
}

func filterEmails(emails []domain.Message, priority, role string) []domain.Message {
	priority = strings.TrimSpace(priority)
	if priority == "" && role == "" {
		return emails
	}
	kept := make([]domain.Message, 0, len(emails))
	for _, e := range emails {
		if priority != "" && !strings.EqualFold(strings.TrimSpace(e.Priority), priority) {
			continue
		}
		if role != "" && !e.VisibleTo(role) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func (s *Service) classify(ctx context.Context, e domain.Message) domain.Summary {
	req := extract.Request{
		Name:         "summary.classify",
		SystemPrompt: classifyPrompt,
		UserPrompt:   fmt.Sprintf("Subject: %s\n\nBody: %s", e.Subject, e.Body),
		Temperature:  0.3,
		MaxTokens:    300,
	}

	base := domain.Summary{ID: e.ID, From: e.From, To: e.To, Subject: e.Subject, Body: e.Body}
	priority := e.Priority
	if priority == "" {
		priority = "Medium"
	}

	sm, _ := extract.Decode(ctx, s.ext, req,
		func(d extract.Document) domain.Summary {
			rec := base
			rec.Category = d.String("category", "General")
			rec.Summary = d.String("summary", "")
			rec.ActionRequired = d.String("action_required", "")
			rec.Priority = d.String("priority", priority)
			rec.DueDate = d.String("due_date", "")
			return rec
		},
		func(f *extract.Failure) domain.Summary {
			rec := base
			rec.Category = "General"
			rec.Priority = priority
			rec.DueDate = e.DueDate
			if f.Kind == extract.KindCompletionFailed {
				rec.Summary = "Error processing: " + textnorm.Truncate(errText(f), 100)
				rec.ActionRequired = "Manual review needed"
				return rec
			}
			rec.Summary = "Unable to generate summary"
			if strings.TrimSpace(f.Raw) != "" {
				rec.Summary = textnorm.Truncate(f.Raw, 200)
			}
			rec.ActionRequired = "Review required"
			return rec
		},
	)
	return sm
}

func errText(f *extract.Failure) string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Error()
}
