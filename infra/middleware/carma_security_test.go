package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"carma_server/pkg/metrics"
)

func TestPreventPathTraversal(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(), JSONEncoder: json.Marshal})
	app.Use(SecurityHeaders(), PreventPathTraversal())
	app.Get("/api/data", func(c *fiber.Ctx) error { return c.SendString("ok") })

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"plain project", "/api/data?project=Tower%20A", 200},
		{"dotted query", "/api/data?project=../../etc", 400},
		{"encoded dots", "/api/data?project_name=%252e%252e%252fsecret", 400},
		{"backslash", "/api/data?project=a%5Cb", 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing security headers")
			}
		})
	}
}

func TestRateLimiterAllow(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if ok, _, _ := rl.Allow("1.2.3.4"); ok != want {
			t.Fatalf("call %d allowed = %v, want %v", i, ok, want)
		}
	}
	if ok, _, _ := rl.Allow("5.6.7.8"); !ok {
		t.Error("other key should have its own window")
	}

	now = now.Add(61 * time.Second)
	if ok, remaining, _ := rl.Allow("1.2.3.4"); !ok || remaining != 1 {
		t.Errorf("after window allowed = %v remaining = %d", ok, remaining)
	}
}

func TestRateLimiterHandler(t *testing.T) {
	limited := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(), JSONEncoder: json.Marshal})
	limited.Use(NewRateLimiter(1, time.Minute).Handler())
	limited.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })

	first, err := limited.Test(httptest.NewRequest("GET", "/x", nil))
	if err != nil {
		t.Fatal(err)
	}
	if first.StatusCode != 200 {
		t.Fatalf("first status = %d", first.StatusCode)
	}
	second, err := limited.Test(httptest.NewRequest("GET", "/x", nil))
	if err != nil {
		t.Fatal(err)
	}
	if second.StatusCode != fiber.StatusTooManyRequests || second.Header.Get("Retry-After") == "" {
		t.Errorf("second status = %d retry = %q", second.StatusCode, second.Header.Get("Retry-After"))
	}
}

func TestLatency(t *testing.T) {
	reg := metrics.NewLatencyRegistry(10)
	app := fiber.New()
	app.Use(Latency(reg))
	app.Get("/api/projects", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 2; i++ {
		if _, err := app.Test(httptest.NewRequest("GET", "/api/projects", nil)); err != nil {
			t.Fatal(err)
		}
	}
	if got := reg.Stats("GET /api/projects").Count; got != 2 {
		t.Errorf("count = %d, all = %v", got, reg.AllStats())
	}
}
