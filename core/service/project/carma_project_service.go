// Package project serves the demo project catalog stored in data/demo_emails.json.
package project

import (
	"context"
	"errors"
	"strings"

	"carma_server/core/domain"
	"carma_server/core/port/out"
)

const (
	DatasetFile    = "data/demo_emails.json"
	CategoriesFile = "data/categories.json"
	RolesFile      = "data/roles.json"
)

type Service struct {
	store out.RecordStore
	obs   out.Observer
}

func NewService(store out.RecordStore, obs out.Observer) *Service {
	return &Service{store: store, obs: out.ObserverOrNop(obs)}
}

// EmailFilter narrows Emails. Empty fields do not filter; Category "All" does not filter.
type EmailFilter struct {
	Project  string
	Category string
	Priority string
	Role     string
}

// Dataset loads the demo dataset. Absent or corrupt files yield an empty dataset.
func (s *Service) Dataset(ctx context.Context) (domain.ProjectDataset, error) {
	var ds domain.ProjectDataset
	if err := s.load(ctx, DatasetFile, &ds); err != nil {
		return domain.ProjectDataset{}, err
	}
	if ds.Projects == nil {
		ds.Projects = []domain.Project{}
	}
	return ds, nil
}

func (s *Service) Projects(ctx context.Context) ([]domain.Project, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Projects, nil
}

// Names lists project names in dataset order.
func (s *Service) Names(ctx context.Context) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ds.Projects))
	for _, p := range ds.Projects {
		names = append(names, p.ProjectName)
	}
	return names, nil
}

// Find returns the project whose name matches exactly.
func (s *Service) Find(ctx context.Context, name string) (domain.Project, bool, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return domain.Project{}, false, err
	}
	for _, p := range ds.Projects {
		if p.ProjectName == name {
			return p, true, nil
		}
	}
	return domain.Project{}, false, nil
}

// Categories returns the configured category list or the default one.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	found, err := s.loadFound(ctx, CategoriesFile, &cats)
	if err != nil {
		return nil, err
	}
	if !found || cats == nil {
		return append([]string(nil), domain.DefaultCategories...), nil
	}
	return cats, nil
}

// Roles returns data/roles.json as stored, or an empty list.
func (s *Service) Roles(ctx context.Context) ([]any, error) {
	var roles []any
	if err := s.load(ctx, RolesFile, &roles); err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []any{}
	}
	return roles, nil
}

// Emails flattens the dataset into project-tagged emails matching f.
// Project matches either the project id or the project name.
func (s *Service) Emails(ctx context.Context, f EmailFilter) ([]domain.ProjectEmail, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	emails := []domain.ProjectEmail{}
	for _, p := range ds.Projects {
		if f.Project != "" && f.Project != p.ProjectID && f.Project != p.ProjectName {
			continue
		}
		for _, e := range p.Emails {
			if !matchesFold(f.Category, e.Category, true) || !matchesFold(f.Priority, e.Priority, false) {
				continue
			}
			if f.Role != "" && !e.VisibleTo(f.Role) {
				continue
			}
			emails = append(emails, domain.ProjectEmail{Message: e, ProjectID: p.ProjectID, ProjectName: p.ProjectName})
		}
	}
	return emails, nil
}

func matchesFold(want, have string, allBypass bool) bool {
	w := strings.TrimSpace(want)
	if w == "" || (allBypass && strings.EqualFold(w, "all")) {
		return true
	}
	return strings.EqualFold(w, strings.TrimSpace(have))
}

func (s *Service) load(ctx context.Context, name string, dest any) error {
	_, err := s.loadFound(ctx, name, dest)
	return err
}

func (s *Service) loadFound(ctx context.Context, name string, dest any) (bool, error) {
	found, err := s.store.Load(ctx, name, dest)
	if errors.Is(err, out.ErrCorrupt) {
		s.obs.Emit(ctx, out.Event{
			Severity: out.SeverityWarn,
			Name:     "store.corrupt",
			Message:  "catalog file unreadable, treating as empty",
			Fields:   map[string]any{"name": name},
			Err:      err,
		})
		return false, nil
	}
	return found, err
}
