package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yomitore/internal/dataset"
	"yomitore/internal/history"
	"yomitore/internal/quiz"

	"github.com/go-chi/chi/v5"
)

type mockTrainerService struct {
	startFn        func(ctx context.Context, in StartInput) (*View, error)
	stateFn        func(ctx context.Context, id string) (*View, error)
	submitFn       func(ctx context.Context, id, answer string) (*View, error)
	stopFn         func(ctx context.Context, id string) (*View, error)
	nextFn         func(ctx context.Context, id string) (*View, error)
	disputeFn      func(ctx context.Context, id string) (*View, error)
	hintFn         func(ctx context.Context, id string) (*View, error)
	updateRevealFn func(ctx context.Context, id string, in RevealInput) (*View, error)
	endFn          func(ctx context.Context, id string) error
	historyFn      func(ctx context.Context, id string, limit int) ([]history.Entry, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockTrainerService) Start(ctx context.Context, in StartInput) (*View, error) {
	if m.startFn == nil {
		return nil, errNotImplemented
	}
	return m.startFn(ctx, in)
}

func (m *mockTrainerService) State(ctx context.Context, id string) (*View, error) {
	if m.stateFn == nil {
		return nil, errNotImplemented
	}
	return m.stateFn(ctx, id)
}

func (m *mockTrainerService) Submit(ctx context.Context, id, answer string) (*View, error) {
	if m.submitFn == nil {
		return nil, errNotImplemented
	}
	return m.submitFn(ctx, id, answer)
}

func (m *mockTrainerService) Stop(ctx context.Context, id string) (*View, error) {
	if m.stopFn == nil {
		return nil, errNotImplemented
	}
	return m.stopFn(ctx, id)
}

func (m *mockTrainerService) Next(ctx context.Context, id string) (*View, error) {
	if m.nextFn == nil {
		return nil, errNotImplemented
	}
	return m.nextFn(ctx, id)
}

func (m *mockTrainerService) Dispute(ctx context.Context, id string) (*View, error) {
	if m.disputeFn == nil {
		return nil, errNotImplemented
	}
	return m.disputeFn(ctx, id)
}

func (m *mockTrainerService) Hint(ctx context.Context, id string) (*View, error) {
	if m.hintFn == nil {
		return nil, errNotImplemented
	}
	return m.hintFn(ctx, id)
}

func (m *mockTrainerService) UpdateReveal(ctx context.Context, id string, in RevealInput) (*View, error) {
	if m.updateRevealFn == nil {
		return nil, errNotImplemented
	}
	return m.updateRevealFn(ctx, id, in)
}

func (m *mockTrainerService) End(ctx context.Context, id string) error {
	if m.endFn == nil {
		return errNotImplemented
	}
	return m.endFn(ctx, id)
}

func (m *mockTrainerService) History(ctx context.Context, id string, limit int) ([]history.Entry, error) {
	if m.historyFn == nil {
		return nil, errNotImplemented
	}
	return m.historyFn(ctx, id, limit)
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestStartPassesOptions(t *testing.T) {
	var got StartInput
	h := NewHandler(&mockTrainerService{
		startFn: func(ctx context.Context, in StartInput) (*View, error) {
			got = in
			return &View{SessionID: "abc", Phase: quiz.PhaseRevealing}, nil
		},
	})

	body := []byte(`{"reveal_enabled":true,"reveal_interval_ms":150,"replace":" old "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Start(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if got.RevealEnabled == nil || !*got.RevealEnabled || got.RevealInterval != 150*time.Millisecond || got.Replace != "old" {
		t.Fatalf("unexpected start input %+v", got)
	}
	res := decodeBody(t, w)
	data, _ := res["data"].(map[string]interface{})
	if data["session_id"] != "abc" {
		t.Fatalf("expected session id in response, got %v", res)
	}
}

func TestStartAcceptsEmptyBody(t *testing.T) {
	h := NewHandler(&mockTrainerService{
		startFn: func(ctx context.Context, in StartInput) (*View, error) {
			if in.RevealEnabled != nil {
				t.Fatalf("expected default reveal setting")
			}
			return &View{SessionID: "abc"}, nil
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	h.Start(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestStartLoadErrorIsUserVisible(t *testing.T) {
	h := NewHandler(&mockTrainerService{
		startFn: func(ctx context.Context, in StartInput) (*View, error) {
			return nil, &dataset.LoadError{Reason: dataset.ReasonEmptyFile, Source: "q.csv", Err: errors.New("no rows")}
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.Start(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	res := decodeBody(t, w)
	errPayload, _ := res["error"].(map[string]interface{})
	if errPayload["code"] != "data_load_error" || errPayload["reason"] != "empty_file" {
		t.Fatalf("unexpected error payload %v", errPayload)
	}
}

func TestAnswerForwardsText(t *testing.T) {
	h := NewHandler(&mockTrainerService{
		submitFn: func(ctx context.Context, id, answer string) (*View, error) {
			if id != "s1" || answer != " とうきょう " {
				t.Fatalf("unexpected submit id=%s answer=%q", id, answer)
			}
			ok := true
			return &View{SessionID: id, Phase: quiz.PhaseJudged, IsCorrect: &ok}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/answer", bytes.NewReader([]byte(`{"answer":" とうきょう "}`)))
	req = withChiParam(req, "id", "s1")
	w := httptest.NewRecorder()
	h.Answer(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStateErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: ErrSessionNotFound, want: http.StatusNotFound},
		{name: "wrong phase", err: quiz.ErrNotJudged, want: http.StatusConflict},
		{name: "dispute twice", err: quiz.ErrDisputeUnavailable, want: http.StatusConflict},
		{name: "hint used", err: quiz.ErrHintUsed, want: http.StatusConflict},
		{name: "bad interval", err: quiz.ErrInvalidInterval, want: http.StatusBadRequest},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&mockTrainerService{
				nextFn: func(ctx context.Context, id string) (*View, error) { return nil, tc.err },
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/next", nil)
			req = withChiParam(req, "id", "s1")
			w := httptest.NewRecorder()
			h.Next(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestRevealValidation(t *testing.T) {
	called := false
	h := NewHandler(&mockTrainerService{
		updateRevealFn: func(ctx context.Context, id string, in RevealInput) (*View, error) {
			called = true
			if in.Interval != 50*time.Millisecond || in.Enabled != nil {
				t.Fatalf("unexpected reveal input %+v", in)
			}
			return &View{SessionID: id}, nil
		},
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty", body: `{}`, want: http.StatusBadRequest},
		{name: "negative", body: `{"interval_ms":-5}`, want: http.StatusBadRequest},
		{name: "malformed", body: `{"interval_ms":`, want: http.StatusBadRequest},
		{name: "speed only", body: `{"interval_ms":50}`, want: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/s1/reveal", bytes.NewReader([]byte(tc.body)))
			req = withChiParam(req, "id", "s1")
			w := httptest.NewRecorder()
			h.Reveal(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
	if !called {
		t.Fatalf("update reveal should be called for valid body")
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewHandler(&mockTrainerService{
		historyFn: func(ctx context.Context, id string, limit int) ([]history.Entry, error) {
			if limit != 5 {
				t.Fatalf("expected limit 5, got %d", limit)
			}
			return []history.Entry{{SessionID: id, QuestionNo: 1, Verdict: quiz.VerdictCorrect}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/history?limit=5", nil)
	req = withChiParam(req, "id", "s1")
	w := httptest.NewRecorder()
	h.History(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1/history?limit=x", nil)
	bad = withChiParam(bad, "id", "s1")
	w = httptest.NewRecorder()
	h.History(w, bad)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRoutesAgainstRealService(t *testing.T) {
	svc := newTestService(t, newManualClock(), nil)
	r := chi.NewRouter()
	r.Route("/api/v1", NewHandler(svc).Routes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-1/answer", bytes.NewReader([]byte(`{"answer":"とうきょう"}`))))
	if w.Code != http.StatusOK {
		t.Fatalf("answer: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-1", nil))
	res := decodeBody(t, w)
	data, _ := res["data"].(map[string]interface{})
	if data["phase"] != string(quiz.PhaseJudged) || data["accuracy_label"] != "100%" {
		t.Fatalf("unexpected state %v", data)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session-1/dispute", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("dispute after correct answer: expected 409, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/session-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("end: expected 200, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/session-1", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("after end: expected 404, got %d", w.Code)
	}
}
