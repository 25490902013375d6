package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dimmer-site/internal/domain"
	"dimmer-site/internal/middleware"
	"dimmer-site/internal/repository"
	"dimmer-site/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateLeadRequest represents the public lead form payload. Status is
// deliberately absent: captured leads always start as "new".
type CreateLeadRequest struct {
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Message         string `json:"message"`
	Source          string `json:"source"`
	ProductInterest string `json:"productInterest"`
}

// UpdateLeadRequest represents a partial lead update
type UpdateLeadRequest struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email"`
	Message         *string `json:"message"`
	Source          *string `json:"source"`
	ProductInterest *string `json:"productInterest"`
	Status          *string `json:"status"`
}

// LeadHandler handles HTTP requests for lead operations
type LeadHandler struct {
	leads  service.LeadService
	logger *zap.Logger
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(leads service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leads:  leads,
		logger: logger,
	}
}

// RegisterRoutes registers all lead routes. publicLimiter wraps the public
// form endpoint only; admin routes are not rate limited.
func (h *LeadHandler) RegisterRoutes(r chi.Router, publicLimiter func(http.Handler) http.Handler) {
	r.Route("/api/leads", func(r chi.Router) {
		if publicLimiter != nil {
			r.With(publicLimiter).Post("/", h.Create)
		} else {
			r.Post("/", h.Create)
		}
		r.Get("/", h.List)
		// Registered before /{id} so "stats" is never parsed as an id.
		r.Get("/stats", h.Stats)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	r.Get("/api/leads-statuses", h.Statuses)
}

func (h *LeadHandler) handleLeadError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, repository.ErrLeadNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "lead not found")
	default:
		h.logger.Error("Lead operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Create handles POST /api/leads (the public form)
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Lead capture validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead, err := h.leads.Capture(r.Context(), service.CaptureLeadInput{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Message:         req.Message,
		Source:          req.Source,
		ProductInterest: req.ProductInterest,
	})
	if err != nil {
		h.handleLeadError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "lead captured",
		"data":    lead,
	})
}

// List handles GET /api/leads with filtering, search, sorting and pagination
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.LeadListParams{
		Status:    q.Get("status"),
		Source:    q.Get("source"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.Limit, _ = strconv.Atoi(q.Get("limit"))

	var ok bool
	if params.DateFrom, ok = parseDate(w, q.Get("dateFrom"), "dateFrom"); !ok {
		return
	}
	if params.DateTo, ok = parseDate(w, q.Get("dateTo"), "dateTo"); !ok {
		return
	}

	page, err := h.leads.List(r.Context(), params)
	if err != nil {
		h.handleLeadError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(page.Leads),
		"total":   page.Total,
		"page":    page.Page,
		"pages":   page.Pages,
		"limit":   page.Limit,
		"data":    page.Leads,
	})
}

// Stats handles GET /api/leads/stats
func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leads.Stats(r.Context())
	if err != nil {
		h.handleLeadError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
	})
}

// Get handles GET /api/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	lead, err := h.leads.Get(r.Context(), id)
	if err != nil {
		h.handleLeadError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    lead,
	})
}

// Update handles PATCH /api/leads/{id}
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateLeadRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead, err := h.leads.Update(r.Context(), id, service.UpdateLeadInput{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Message:         req.Message,
		Source:          req.Source,
		ProductInterest: req.ProductInterest,
		Status:          req.Status,
	})
	if err != nil {
		h.handleLeadError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "lead updated",
		"data":    lead,
	})
}

// Delete handles DELETE /api/leads/{id}
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.leads.Delete(r.Context(), id); err != nil {
		h.handleLeadError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "lead deleted",
	})
}

// Statuses handles GET /api/leads-statuses
func (h *LeadHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    domain.LeadStatuses(),
	})
}

// parseDate accepts RFC 3339 timestamps or plain dates (2006-01-02). The
// empty string means the bound is absent.
func parseDate(w http.ResponseWriter, raw, field string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true
	}

	middleware.RespondWithError(w, http.StatusBadRequest, field+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	return nil, false
}
