package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yomitore/internal/app/apiresp"
	"yomitore/internal/dataset"
	"yomitore/internal/history"
	"yomitore/internal/quiz"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc trainerService
}

type trainerService interface {
	Start(ctx context.Context, in StartInput) (*View, error)
	State(ctx context.Context, id string) (*View, error)
	Submit(ctx context.Context, id, answer string) (*View, error)
	Stop(ctx context.Context, id string) (*View, error)
	Next(ctx context.Context, id string) (*View, error)
	Dispute(ctx context.Context, id string) (*View, error)
	Hint(ctx context.Context, id string) (*View, error)
	UpdateReveal(ctx context.Context, id string, in RevealInput) (*View, error)
	End(ctx context.Context, id string) error
	History(ctx context.Context, id string, limit int) ([]history.Entry, error)
}

type startRequest struct {
	RevealEnabled    *bool  `json:"reveal_enabled"`
	RevealIntervalMS int64  `json:"reveal_interval_ms"`
	Replace          string `json:"replace"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type revealRequest struct {
	Enabled    *bool `json:"enabled"`
	IntervalMS int64 `json:"interval_ms"`
}

func NewHandler(svc trainerService) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the session API under the caller's prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.Start)
	r.Route("/sessions/{id}", func(sr chi.Router) {
		sr.Get("/", h.State)
		sr.Delete("/", h.End)
		sr.Post("/answer", h.Answer)
		sr.Post("/stop", h.Stop)
		sr.Post("/next", h.Next)
		sr.Post("/dispute", h.Dispute)
		sr.Post("/hint", h.Hint)
		sr.Put("/reveal", h.Reveal)
		sr.Get("/history", h.History)
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RevealIntervalMS < 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "reveal_interval_ms must be positive")
		return
	}

	view, err := h.svc.Start(r.Context(), StartInput{
		RevealEnabled:  req.RevealEnabled,
		RevealInterval: time.Duration(req.RevealIntervalMS) * time.Millisecond,
		Replace:        strings.TrimSpace(req.Replace),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, view)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.State)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, r, func(ctx context.Context, id string) (*View, error) {
		return h.svc.Submit(ctx, id, req.Answer)
	})
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Stop)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Next)
}

func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Dispute)
}

func (h *Handler) Hint(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.Hint)
}

func (h *Handler) Reveal(w http.ResponseWriter, r *http.Request) {
	var req revealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IntervalMS < 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "interval_ms must be positive")
		return
	}
	if req.Enabled == nil && req.IntervalMS == 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "enabled or interval_ms is required")
		return
	}
	h.respond(w, r, func(ctx context.Context, id string) (*View, error) {
		return h.svc.UpdateReveal(ctx, id, RevealInput{
			Enabled:  req.Enabled,
			Interval: time.Duration(req.IntervalMS) * time.Millisecond,
		})
	})
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]bool{"ended": true})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := h.svc.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, entries)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*View, error)) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "session id is required")
		return
	}
	view, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, view)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if le, ok := dataset.IsLoadError(err); ok {
		apiresp.WriteErrorPayload(w, r, http.StatusUnprocessableEntity, apiresp.ErrorPayload{
			Code:    "data_load_error",
			Message: le.Error(),
			Reason:  string(le.Reason),
		})
		return
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, quiz.ErrInvalidInterval):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, quiz.ErrNotAnswerable),
		errors.Is(err, quiz.ErrNotJudged),
		errors.Is(err, quiz.ErrDisputeUnavailable),
		errors.Is(err, quiz.ErrHintUsed),
		errors.Is(err, quiz.ErrHintUnavailable),
		errors.Is(err, quiz.ErrFinished),
		errors.Is(err, quiz.ErrAlreadyStarted),
		errors.Is(err, quiz.ErrNoItems):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// decodeOptionalJSON accepts an empty body as the zero request.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
