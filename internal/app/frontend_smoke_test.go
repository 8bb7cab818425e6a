package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yomitore/internal/dataset"
	"yomitore/internal/trainer"
)

func newSmokeRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	provider := dataset.NewProvider(dataset.NewSource("data/questions.csv", 0), dataset.DefaultColumns())
	svc := trainer.NewService(provider, trainer.Options{})
	return NewRouter(cfg, Deps{Trainer: svc, Dataset: provider})
}

func TestFrontendSmokePublicRoutes(t *testing.T) {
	restore := chdirToRepoRoot(t)
	defer restore()

	router := newSmokeRouter(t, Config{
		CSRFEnforced:       false,
		APIRateLimitPerMin: 60,
	})

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "home", method: http.MethodGet, target: "/", wantStatus: http.StatusOK},
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK},
		{name: "static_css", method: http.MethodGet, target: "/static/css/app.css?v=test", wantStatus: http.StatusOK},
		{name: "static_js", method: http.MethodGet, target: "/static/js/app.js?v=test", wantStatus: http.StatusOK},
		{name: "start_session", method: http.MethodPost, target: "/api/v1/sessions", wantStatus: http.StatusCreated},
		{name: "unknown_session", method: http.MethodGet, target: "/api/v1/sessions/missing", wantStatus: http.StatusNotFound},
		{name: "answer_invalid_body", method: http.MethodPost, target: "/api/v1/sessions/missing/answer", wantStatus: http.StatusBadRequest},
		{name: "admin_disabled", method: http.MethodGet, target: "/api/v1/admin/dataset", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s %s: got status %d, want %d", tc.method, tc.target, w.Code, tc.wantStatus)
			}
		})
	}
}

func TestFrontendSmokeCSRFEnforced(t *testing.T) {
	restore := chdirToRepoRoot(t)
	defer restore()

	router := newSmokeRouter(t, Config{CSRFEnforced: true, APIRateLimitPerMin: 60})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	req.Header.Set(csrfHeaderName, "tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 with csrf token, got %d: %s", w.Code, w.Body.String())
	}
}

func chdirToRepoRoot(t *testing.T) func() {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		if fileExists(filepath.Join(dir, "go.mod")) && fileExists(filepath.Join(dir, "web", "templates", "layout", "base.html")) {
			if err := os.Chdir(dir); err != nil {
				t.Fatalf("chdir to repo root %s: %v", dir, err)
			}
			return func() {
				_ = os.Chdir(start)
			}
		}

		next := filepath.Dir(dir)
		if next == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = next
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func TestFrontendScriptSerialisesPolling(t *testing.T) {
	restore := chdirToRepoRoot(t)
	defer restore()

	router := newSmokeRouter(t, Config{APIRateLimitPerMin: 60})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/js/app.js", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		"if (!sessionId || busy) return;",
		"if (seq !== actionSeq || busy) return;",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("reveal poll must yield to in-flight actions; missing %q", want)
		}
	}
}
