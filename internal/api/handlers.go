// Package api exposes the journal over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"example.com/babylog/internal/auth"
	"example.com/babylog/internal/daily"
	"example.com/babylog/internal/domain"
	"example.com/babylog/internal/journal"
	"example.com/babylog/internal/logger"
)

// Journal is the part of journal.Service the handlers use.
type Journal interface {
	CreateActivity(ctx context.Context, subject domain.Subject, e journal.Entry) (*domain.Activity, error)
	UpdateActivity(ctx context.Context, subject domain.Subject, activityID string, e journal.Entry) (*domain.Activity, error)
	DeleteActivity(ctx context.Context, subject domain.Subject, activityID string) error
	GetActivity(ctx context.Context, subject domain.Subject, activityID string) (*domain.Activity, error)
	DayView(ctx context.Context, subject domain.Subject, date daily.Date) (*journal.DayView, error)
	Today() daily.Date
	Location() *time.Location
}

// Handler coordinates HTTP requests with the journal.
type Handler struct {
	journal Journal
}

// NewHandler builds a Handler.
func NewHandler(j Journal) *Handler {
	return &Handler{journal: j}
}

// RegisterRoutes mounts the API on r. authn guards everything except /healthz.
func (h *Handler) RegisterRoutes(r chi.Router, authn auth.Middleware) {
	r.Get("/healthz", healthz)

	r.Group(func(r chi.Router) {
		r.Use(authn.Wrap)
		r.Route("/v1/subjects/{subjectID}", func(r chi.Router) {
			r.With(auth.RequireScope(auth.ScopeJournalWrite)).Post("/activities", h.createActivity)
			r.With(auth.RequireScope(auth.ScopeJournalRead)).Get("/activities/{activityID}", h.getActivity)
			r.With(auth.RequireScope(auth.ScopeJournalWrite)).Put("/activities/{activityID}", h.updateActivity)
			r.With(auth.RequireScope(auth.ScopeJournalWrite)).Delete("/activities/{activityID}", h.deleteActivity)
			r.With(auth.RequireScope(auth.ScopeJournalRead)).Get("/days/{date}", h.dayView)
		})
	})
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// subjectFrom resolves the subject of the request; the tenant always comes from the token.
func subjectFrom(r *http.Request) (domain.Subject, context.Context, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return domain.Subject{}, nil, false
	}
	id := strings.TrimSpace(chi.URLParam(r, "subjectID"))
	if id == "" {
		return domain.Subject{}, nil, false
	}
	ctx := logger.WithRequest(r.Context(), chimw.GetReqID(r.Context()), claims.TenantID)
	ctx = logger.WithSubject(ctx, id)
	return domain.Subject{TenantID: claims.TenantID, ID: id}, ctx, true
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	subject, ctx, ok := subjectFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing subject")
		return
	}

	var req ActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	entry, err := req.entry()
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	created, err := h.journal.CreateActivity(ctx, subject, entry)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+created.ID)
	writeJSON(w, http.StatusCreated, toActivityView(*created, h.journal.Location()))
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	subject, ctx, ok := subjectFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing subject")
		return
	}

	activity, err := h.journal.GetActivity(ctx, subject, chi.URLParam(r, "activityID"))
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity, h.journal.Location()))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	subject, ctx, ok := subjectFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing subject")
		return
	}

	var req ActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	entry, err := req.entry()
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	updated, err := h.journal.UpdateActivity(ctx, subject, chi.URLParam(r, "activityID"), entry)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*updated, h.journal.Location()))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	subject, ctx, ok := subjectFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing subject")
		return
	}

	if err := h.journal.DeleteActivity(ctx, subject, chi.URLParam(r, "activityID")); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dayView(w http.ResponseWriter, r *http.Request) {
	subject, ctx, ok := subjectFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing subject")
		return
	}

	var date daily.Date
	if raw := chi.URLParam(r, "date"); raw == "today" {
		date = h.journal.Today()
	} else {
		parsed, err := daily.ParseDate(raw)
		if err != nil {
			writeDomainError(ctx, w, err)
			return
		}
		date = parsed
	}

	view, err := h.journal.DayView(ctx, subject, date)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayViewResponse(view, h.journal.Location()))
}

func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidActivity), errors.Is(err, domain.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.C(ctx).Error().Err(err).Msg("activity store unavailable")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "activity store unavailable, retry later")
	default:
		logger.C(ctx).Error().Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Named("api").Error().Err(err).Msg("encode response")
	}
}
