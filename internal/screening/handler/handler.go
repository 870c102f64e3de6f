package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"benefind/internal/eligibility"
	"benefind/internal/eligibility/facts"
	emodels "benefind/internal/eligibility/models"
	"benefind/internal/screening/models"
	"benefind/internal/screening/service"
	id "benefind/pkg/domain"
	dErrors "benefind/pkg/domain-errors"
	"benefind/pkg/platform/httputil"
	"benefind/pkg/requestcontext"
)

// Service defines the screening operations the handler exposes.
type Service interface {
	Screen(ctx context.Context, owner models.Owner, raw facts.RawIntake, locale string) (*service.Result, error)
	Latest(ctx context.Context, owner models.Owner) (*models.Screening, error)
	List(ctx context.Context, owner models.Owner, limit int) ([]*models.Screening, error)
	Report(ctx context.Context, owner models.Owner, sid id.ScreeningID, locale string) (*eligibility.Report, error)
	ProgramDetails(ctx context.Context, pid emodels.ProgramID, locale string) (*eligibility.ProgramView, error)
}

// Handler serves the screening and program endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the routes on r. Owner resolution and request metadata are
// expected from router-level middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/screenings", h.handleScreen)
	r.Get("/screenings", h.handleList)
	r.Get("/screenings/latest", h.handleLatest)
	r.Get("/screenings/{id}/report", h.handleReport)
	r.Get("/programs/{id}", h.handleProgram)
}

// ScreenRequest is the POST /screenings body.
type ScreenRequest struct {
	Intake facts.RawIntake `json:"intake"`
	Locale string          `json:"locale"`
}

// maxLocaleLen is the longest BCP 47 tag accepted before normalization.
const maxLocaleLen = 35

func (r *ScreenRequest) Validate() error {
	r.Locale = strings.TrimSpace(r.Locale)
	if len(r.Locale) > maxLocaleLen {
		return dErrors.Validation("invalid request", dErrors.Field{Name: "locale", Reason: "is too long"})
	}
	return nil
}

// ScreeningResponse is a freshly completed screening.
type ScreeningResponse struct {
	ID             string                       `json:"id"`
	CompletedAt    time.Time                    `json:"completed_at"`
	CatalogVersion string                       `json:"catalog_version"`
	Locale         string                       `json:"locale"`
	Results        []emodels.EnrichedResult     `json:"results"`
	Interactions   []emodels.BenefitInteraction `json:"interactions"`
}

// ScreeningSummary is a stored screening without rendered content.
type ScreeningSummary struct {
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"created_at"`
	CatalogVersion string               `json:"catalog_version"`
	Locale         string               `json:"locale"`
	Intake         facts.RawIntake      `json:"intake"`
	Programs       []models.ProgramTier `json:"programs"`
}

type listResponse struct {
	Screenings []ScreeningSummary `json:"screenings"`
}

func summarize(s *models.Screening) ScreeningSummary {
	return ScreeningSummary{
		ID:             s.ID.String(),
		CreatedAt:      s.CreatedAt,
		CatalogVersion: s.Results.CatalogVersion,
		Locale:         s.Locale,
		Intake:         s.Intake,
		Programs:       s.Tiers(),
	}
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScreenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}

	res, err := h.service.Screen(ctx, owner, req.Intake, locale)
	if err != nil {
		h.writeServiceError(ctx, w, "screening failed", err)
		return
	}

	out := res.Outcome
	httputil.WriteJSON(w, http.StatusCreated, ScreeningResponse{
		ID:             res.Screening.ID.String(),
		CompletedAt:    out.Results.CompletedAt,
		CatalogVersion: out.Results.CatalogVersion,
		Locale:         out.Locale,
		Results:        out.Enriched,
		Interactions:   nonNil(out.Interactions),
	})
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	screening, err := h.service.Latest(r.Context(), owner)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load latest screening", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summarize(screening))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.Validation("invalid query", dErrors.Field{Name: "limit", Reason: "must be a positive integer"}))
			return
		}
		limit = n
	}

	list, err := h.service.List(r.Context(), owner, limit)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list screenings", err)
		return
	}
	resp := listResponse{Screenings: make([]ScreeningSummary, 0, len(list))}
	for _, s := range list {
		resp.Screenings = append(resp.Screenings, summarize(s))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	sid, err := id.ParseScreeningID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Report(r.Context(), owner, sid, r.URL.Query().Get("locale"))
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to render report", err)
		return
	}
	report.Interactions = nonNil(report.Interactions)
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleProgram(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	view, err := h.service.ProgramDetails(r.Context(), emodels.ProgramID(chi.URLParam(r, "id")), locale)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load program", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// requireOwner resolves the authenticated user, falling back to the anonymous
// intake session. Writes 401 when neither is present.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (models.Owner, bool) {
	ctx := r.Context()
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		return models.UserOwner(userID), true
	}
	if sessionID := requestcontext.SessionID(ctx); !sessionID.IsNil() {
		return models.SessionOwner(sessionID), true
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "bearer token or intake session required"))
	return models.Owner{}, false
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	default:
		h.logger.InfoContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}

func nonNil(in []emodels.BenefitInteraction) []emodels.BenefitInteraction {
	if in == nil {
		return []emodels.BenefitInteraction{}
	}
	return in
}
