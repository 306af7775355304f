package inbox

import (
	"context"
	"errors"
	"testing"

	"carma_server/core/domain"
	"carma_server/core/service/extract"
	"carma_server/core/service/risk"
	"carma_server/core/service/vendor"
	"carma_server/internal/testkit"
	"carma_server/pkg/apperr"
)

func rawMessages() []domain.Message {
	return []domain.Message{
		{ID: "1", From: "Jane <jane@abc.com>", To: "pm@carma.com", Subject: "Ship Date", Body: "<p>When&nbsp;is <b>delivery</b>?</p>", Snippet: "When&#39;s delivery", Date: "2025-10-01"},
		{ID: "2", From: "pm@carma.com", To: "jane@abc.com", Subject: "RE: Ship Date", Body: "Friday", Date: "2025-10-02"},
		{ID: "3", From: "bob@steel.com", To: "pm@carma.com", Subject: "Rebar", Body: "Checking in", Date: "2025-10-03"},
	}
}

type fixture struct {
	store *testkit.MemStore
	mail  *testkit.MailSource
	llm   *testkit.Completion
	obs   *testkit.Observer
	svc   *Service
}

func newFixture(msgs []domain.Message) *fixture {
	f := &fixture{
		store: testkit.NewMemStore(),
		mail:  &testkit.MailSource{Messages: msgs},
		llm:   &testkit.Completion{},
		obs:   &testkit.Observer{},
	}
	ext := extract.New(f.llm, f.obs)
	f.svc = NewService(f.mail, f.store, f.store, risk.NewAnalyzer(ext, f.obs, 2),
		vendor.NewService(f.store, ext, f.obs), f.obs, 0)
	return f
}

func TestFetch(t *testing.T) {
	f := newFixture(rawMessages())

	msgs, err := f.svc.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.mail.LastMax != DefaultFetchMax {
		t.Errorf("max = %d, want %d", f.mail.LastMax, DefaultFetchMax)
	}

	first := msgs[0]
	if first.From != "jane@abc.com" {
		t.Errorf("From = %q", first.From)
	}
	if first.Body != "When is delivery ?" && first.Body != "When is delivery?" {
		t.Errorf("Body = %q", first.Body)
	}
	if first.Snippet != "When's delivery" || first.CleanStatus != "ok" {
		t.Errorf("message = %+v", first)
	}

	var saved []domain.Message
	if !f.store.Get(CleanedFile, &saved) || len(saved) != 3 {
		t.Errorf("saved = %+v", saved)
	}
}

func TestFetch_MailFailure(t *testing.T) {
	f := newFixture(nil)
	f.mail.Err = errors.New("token expired")

	_, err := f.svc.Fetch(context.Background())
	if !apperr.IsCode(err, apperr.CodeSourceUnavailable) {
		t.Fatalf("err = %v, want source unavailable", err)
	}
	if f.store.Has(CleanedFile) {
		t.Error("nothing should be saved")
	}
}

func TestFetchWithAttachments(t *testing.T) {
	f := newFixture(rawMessages())
	f.mail.Attachments = map[string][]domain.Attachment{
		"1": {
			{Filename: "../log.xlsx", MimeType: "application/vnd.ms-excel", Data: make([]byte, 2048)},
			{Filename: "", Data: []byte("x")},
		},
	}
	f.mail.AttachErr = map[string]error{"3": errors.New("gone")}

	msgs, err := f.svc.FetchWithAttachments(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !msgs[0].HasAttachments || len(msgs[0].Attachments) != 1 {
		t.Fatalf("attachments = %+v", msgs[0].Attachments)
	}
	info := msgs[0].Attachments[0]
	if info.Filename != "log.xlsx" || info.SizeKB != 2 || info.Path != "mem/data/attachments/log.xlsx" {
		t.Errorf("info = %+v", info)
	}
	if _, ok := f.store.Blob("data/attachments/log.xlsx"); !ok {
		t.Error("blob not stored")
	}
	if msgs[1].HasAttachments || msgs[2].HasAttachments {
		t.Error("unexpected attachments")
	}
	if f.obs.Count("inbox.attachment_failed") != 1 {
		t.Errorf("events = %+v", f.obs.Events())
	}
	if !f.store.Has(WithAttachmentsFile) {
		t.Error("emails with attachments not saved")
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(rawMessages())
	f.llm.Respond = testkit.RespondByPrompt(map[string]string{
		"jane@abc.com":  `{"thread_subject":"Ship Date","project_guess":"Tower A","response_detected":true,"risk_level":"LOW"}`,
		"bob@steel.com": `{"thread_subject":"Rebar","project_guess":"Clinic","response_detected":false,"risk_level":"MEDIUM"}`,
	}, "{}")

	res, err := f.svc.Analyze(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ThreadCount != 2 || res.TotalEmails != 3 || res.NonResponsive != 1 || res.FilePath != AnalysisFile {
		t.Errorf("result = %+v", res)
	}

	var saved []domain.RiskAssessment
	if !f.store.Get(AnalysisFile, &saved) || len(saved) != 2 {
		t.Errorf("analysis = %+v", saved)
	}
	var pending []domain.RiskAssessment
	if !f.store.Get(vendor.NonResponsiveFile, &pending) || len(pending) != 1 || pending[0].ThreadSubject != "Rebar" {
		t.Errorf("non-responsive = %+v", pending)
	}
}

func TestAnalyze_OutageKeepsNonResponsiveList(t *testing.T) {
	f := newFixture(rawMessages())
	f.store.Put(vendor.NonResponsiveFile, []domain.RiskAssessment{
		{ThreadSubject: "Rebar", ProjectGuess: "Clinic", RiskLevel: domain.RiskHigh},
	})
	f.llm.Err = errors.New("circuit breaker is open")

	res, err := f.svc.Analyze(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ThreadCount != 2 || res.NonResponsive != 0 {
		t.Errorf("result = %+v", res)
	}
	for _, a := range res.Analyses {
		if a.RiskLevel != domain.RiskUnknown || a.IssueDetected != "AI call failed" {
			t.Errorf("analysis = %+v", a)
		}
	}

	var pending []domain.RiskAssessment
	if !f.store.Get(vendor.NonResponsiveFile, &pending) || len(pending) != 1 || pending[0].RiskLevel != domain.RiskHigh {
		t.Errorf("non-responsive = %+v", pending)
	}
}
