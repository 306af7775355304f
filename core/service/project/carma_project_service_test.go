package project

import (
	"context"
	"reflect"
	"testing"

	"carma_server/core/domain"
	"carma_server/internal/testkit"
)

func seeded() *testkit.MemStore {
	store := testkit.NewMemStore()
	store.Put(DatasetFile, domain.ProjectDataset{Projects: []domain.Project{
		{ProjectID: "p1", ProjectName: "Tower A", Emails: []domain.Message{
			{ID: "1", Subject: "RFI 1", Category: "RFI", Priority: "High", RoleVisibility: []string{"pm"}},
			{ID: "2", Subject: "Steel", Category: "Material Delay", Priority: "medium", RoleVisibility: []string{"super"}},
		}},
		{ProjectID: "p2", ProjectName: "Clinic", Emails: []domain.Message{
			{ID: "3", Subject: "Schedule", Category: "Schedule Update", Priority: "Low", RoleVisibility: []string{"pm", "super"}},
		}},
	}})
	return store
}

func TestNames(t *testing.T) {
	names, err := NewService(seeded(), nil).Names(context.Background())
	if err != nil || !reflect.DeepEqual(names, []string{"Tower A", "Clinic"}) {
		t.Errorf("Names = %v, %v", names, err)
	}
}

func TestEmptyCatalog(t *testing.T) {
	svc := NewService(testkit.NewMemStore(), nil)
	ctx := context.Background()

	names, err := svc.Names(ctx)
	if err != nil || names == nil || len(names) != 0 {
		t.Errorf("Names = %v, %v", names, err)
	}
	roles, err := svc.Roles(ctx)
	if err != nil || roles == nil || len(roles) != 0 {
		t.Errorf("Roles = %v, %v", roles, err)
	}
	cats, err := svc.Categories(ctx)
	if err != nil || !reflect.DeepEqual(cats, domain.DefaultCategories) {
		t.Errorf("Categories = %v, %v", cats, err)
	}
}

func TestCategoriesFromFile(t *testing.T) {
	store := testkit.NewMemStore()
	store.Put(CategoriesFile, []string{"All", "RFI"})
	cats, err := NewService(store, nil).Categories(context.Background())
	if err != nil || !reflect.DeepEqual(cats, []string{"All", "RFI"}) {
		t.Errorf("Categories = %v, %v", cats, err)
	}
}

func TestCorruptDatasetIsEmpty(t *testing.T) {
	store := testkit.NewMemStore()
	store.PutRaw(DatasetFile, []byte("{broken"))
	obs := &testkit.Observer{}

	projects, err := NewService(store, obs).Projects(context.Background())
	if err != nil || len(projects) != 0 {
		t.Errorf("Projects = %v, %v", projects, err)
	}
	if obs.Count("store.corrupt") != 1 {
		t.Errorf("events = %+v", obs.Events())
	}
}

func TestFind(t *testing.T) {
	svc := NewService(seeded(), nil)
	p, ok, err := svc.Find(context.Background(), "Clinic")
	if err != nil || !ok || p.ProjectID != "p2" {
		t.Errorf("Find = %+v, %v, %v", p, ok, err)
	}
	if _, ok, _ := svc.Find(context.Background(), "clinic"); ok {
		t.Error("Find must match names exactly")
	}
}

func TestEmails(t *testing.T) {
	svc := NewService(seeded(), nil)
	tests := []struct {
		name string
		f    EmailFilter
		want []string
	}{
		{"all", EmailFilter{}, []string{"1", "2", "3"}},
		{"by project id", EmailFilter{Project: "p2"}, []string{"3"}},
		{"by project name", EmailFilter{Project: "Tower A"}, []string{"1", "2"}},
		{"category All", EmailFilter{Category: "all"}, []string{"1", "2", "3"}},
		{"category fold", EmailFilter{Category: "material delay"}, []string{"2"}},
		{"priority fold", EmailFilter{Priority: "MEDIUM"}, []string{"2"}},
		{"role", EmailFilter{Role: "pm"}, []string{"1", "3"}},
		{"combined", EmailFilter{Project: "Clinic", Role: "pm", Priority: "low"}, []string{"3"}},
		{"none", EmailFilter{Role: "owner"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Emails(context.Background(), tt.f)
			if err != nil {
				t.Fatal(err)
			}
			ids := []string{}
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}

	got, _ := svc.Emails(context.Background(), EmailFilter{Project: "p2"})
	if got[0].ProjectName != "Clinic" || got[0].ProjectID != "p2" {
		t.Errorf("email not enriched: %+v", got[0])
	}
}
