package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
)

type stubHealth struct {
	status mono.HealthStatus
}

func (s stubHealth) Health(context.Context) mono.HealthStatus {
	return s.status
}

func TestAPIModule_StartRequiresDependencies(t *testing.T) {
	m := NewModule(DefaultConfig())
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() without dependencies should fail")
	}

	m.authPort = &mockAuthPort{}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() without the task dependency should fail")
	}
}

func TestAPIModule_Dependencies(t *testing.T) {
	m := NewModule(DefaultConfig())
	deps := m.Dependencies()
	if len(deps) != 2 || deps[0] != "auth" || deps[1] != "task" {
		t.Errorf("Dependencies() = %v, want [auth task]", deps)
	}
}

func TestAPIModule_HealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantState  string
	}{
		{
			name: "all healthy",
			checks: map[string]HealthChecker{
				"database": stubHealth{mono.HealthStatus{Healthy: true, Message: "operational"}},
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "one unhealthy",
			checks: map[string]HealthChecker{
				"database": stubHealth{mono.HealthStatus{Healthy: true}},
				"cache":    stubHealth{mono.HealthStatus{Healthy: false, Message: "redis ping failed"}},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModule(DefaultConfig())
			for name, check := range tt.checks {
				m.AddHealthCheck(name, check)
			}
			// The module reports itself healthy once its app exists.
			m.app = fiber.New()
			m.app.Get("/health", m.healthHandler)

			resp, err := m.app.Test(httptest.NewRequest("GET", "/health", nil), -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			raw, _ := io.ReadAll(resp.Body)
			var body HealthResponse
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("invalid JSON %s: %v", raw, err)
			}
			if body.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantState)
			}
			if len(body.Modules) != len(tt.checks)+1 {
				t.Errorf("modules = %v, want %d entries", body.Modules, len(tt.checks)+1)
			}
			if !body.Modules["api"].Healthy {
				t.Error("api module should report healthy")
			}
		})
	}
}
