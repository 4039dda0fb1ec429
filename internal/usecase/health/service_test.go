package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name       string
		engine     error
		redis      Pinger
		wantStatus Status
		wantChecks map[string]CheckResult
	}{
		{
			name:       "all healthy",
			redis:      &mockPinger{},
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"engine": CheckOK, "redis": CheckOK},
		},
		{
			name:       "redis down",
			redis:      &mockPinger{err: down},
			wantStatus: Degraded,
			wantChecks: map[string]CheckResult{"engine": CheckOK, "redis": CheckError},
		},
		{
			name:       "engine down",
			engine:     down,
			redis:      &mockPinger{},
			wantStatus: Unhealthy,
			wantChecks: map[string]CheckResult{"engine": CheckError, "redis": CheckOK},
		},
		{
			name:       "both down",
			engine:     down,
			redis:      &mockPinger{err: down},
			wantStatus: Unhealthy,
			wantChecks: map[string]CheckResult{"engine": CheckError, "redis": CheckError},
		},
		{
			name:       "no redis configured",
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"engine": CheckOK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockPinger{err: tt.engine}, tt.redis).Check(context.Background())
			if r.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", r.Status, tt.wantStatus)
			}
			if len(r.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", r.Checks, tt.wantChecks)
			}
			for k, v := range tt.wantChecks {
				if r.Checks[k] != v {
					t.Errorf("checks[%s] = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}
