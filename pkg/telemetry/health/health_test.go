package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default timeout", timeout: 0, expectedTimeout: DefaultCheckTimeout},
		{name: "negative timeout", timeout: -time.Second, expectedTimeout: DefaultCheckTimeout},
		{name: "custom timeout", timeout: 10 * time.Second, expectedTimeout: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("checkTimeout = %v, want %v", checker.checkTimeout, tt.expectedTimeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Errorf("ListChecks() = %v, want empty", checker.ListChecks())
			}
		})
	}
}

func TestChecker_RegisterCheck(t *testing.T) {
	checker := New(time.Second)

	checker.RegisterCheck("compiler", func(ctx context.Context) error { return errors.New("first") })
	checker.RegisterCheck("compiler", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("include_paths", func(ctx context.Context) error { return nil })

	got := checker.ListChecks()
	want := []string{"compiler", "include_paths"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ListChecks() = %v, want %v", got, want)
	}

	status := checker.CheckReadiness(context.Background())
	if status.Status != StatusReady {
		t.Errorf("Status = %q, want %q (replaced check should pass)", status.Status, StatusReady)
	}

	checker.UnregisterCheck("compiler")
	if got := checker.ListChecks(); len(got) != 1 || got[0] != "include_paths" {
		t.Errorf("ListChecks() after unregister = %v, want [include_paths]", got)
	}
}

func TestChecker_CheckLiveness(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("broken", func(ctx context.Context) error { return errors.New("down") })

	status := checker.CheckLiveness(context.Background())
	if status.Status != StatusOK {
		t.Errorf("Status = %q, want %q", status.Status, StatusOK)
	}
	if status.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
	if len(status.Checks) != 0 {
		t.Errorf("Checks = %v, want none for liveness", status.Checks)
	}
}

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) error { return nil },
				"b": func(ctx context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) error { return nil },
				"b": func(ctx context.Context) error { return errors.New("component unhealthy") },
			},
			wantStatus: StatusDegraded,
			wantFailed: map[string]string{"b": "component unhealthy"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					time.Sleep(200 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: map[string]string{"slow": ErrCheckTimeout.Error()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(status.Checks), len(tt.checks))
			}
			for name, result := range status.Checks {
				msg, failed := tt.wantFailed[name]
				switch {
				case failed && result.Status != StatusUnhealthy:
					t.Errorf("check %q status = %q, want unhealthy", name, result.Status)
				case failed && result.Message != msg:
					t.Errorf("check %q message = %q, want %q", name, result.Message, msg)
				case !failed && result.Status != StatusOK:
					t.Errorf("check %q status = %q, want ok", name, result.Status)
				}
			}
		})
	}
}

func TestChecker_CheckReadiness_Canceled(t *testing.T) {
	checker := New(5 * time.Second)
	checker.RegisterCheck("wait", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := checker.CheckReadiness(ctx)
	if got := status.Checks["wait"].Status; got != StatusUnhealthy {
		t.Errorf("check status = %q, want unhealthy", got)
	}
}

func TestIncludePathsCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "vars.yaml")
	if err := os.WriteFile(file, []byte("- var: {name: a, value: 1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		paths   []string
		wantErr string
	}{
		{name: "none", paths: nil},
		{name: "directory", paths: []string{dir}},
		{name: "missing", paths: []string{filepath.Join(dir, "nope")}, wantErr: "nope"},
		{name: "file", paths: []string{file}, wantErr: "is not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IncludePathsCheck(tt.paths)(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("check() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("check() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompileCheck(t *testing.T) {
	boom := errors.New("boom")

	if err := CompileCheck(func(ctx context.Context) error { return nil })(context.Background()); err != nil {
		t.Errorf("check() error = %v, want nil", err)
	}
	err := CompileCheck(func(ctx context.Context) error { return boom })(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("check() error = %v, want wrapping %v", err, boom)
	}
}

func TestLivenessHandler(t *testing.T) {
	handler := New(time.Second).LivenessHandler()

	tests := []struct {
		name     string
		method   string
		wantCode int
		wantBody bool
	}{
		{name: "GET", method: http.MethodGet, wantCode: http.StatusOK, wantBody: true},
		{name: "HEAD", method: http.MethodHead, wantCode: http.StatusOK},
		{name: "POST", method: http.MethodPost, wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(tt.method, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !tt.wantBody {
				return
			}
			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if status.Status != StatusOK {
				t.Errorf("Status = %q, want %q", status.Status, StatusOK)
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		check      CheckFunc
		wantCode   int
		wantStatus string
	}{
		{
			name:       "healthy",
			check:      func(ctx context.Context) error { return nil },
			wantCode:   http.StatusOK,
			wantStatus: StatusReady,
		},
		{
			name:       "unhealthy",
			check:      func(ctx context.Context) error { return errors.New("failed") },
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			checker.RegisterCheck("compiler", tt.check)

			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, New(time.Second), NewVersionInfo("1.2.0", "abc123", "2026-10-19T00:00:00Z"))

	for _, path := range []string{"/health", "/ready", "/version"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s code = %d, want 200", path, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" {
		t.Errorf("VersionInfo = %+v, want version 1.2.0 commit abc123", info)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}
