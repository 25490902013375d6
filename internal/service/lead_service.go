package service

import (
	"context"
	"math"
	"strings"
	"time"

	"dimmer-site/internal/domain"
	"dimmer-site/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultLeadPage  = 1
	defaultLeadLimit = 10
)

// CaptureLeadInput holds the public form fields. Status is not accepted:
// every captured lead starts out as "new".
type CaptureLeadInput struct {
	Name            string
	Phone           string
	Email           string
	Message         string
	Source          string
	ProductInterest string
}

// UpdateLeadInput holds the optional fields of a partial lead update.
type UpdateLeadInput struct {
	Name            *string
	Phone           *string
	Email           *string
	Message         *string
	Source          *string
	ProductInterest *string
	Status          *string
}

// LeadListParams are the raw list inputs before defaulting and clamping.
type LeadListParams struct {
	Status    string
	Source    string
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// LeadPage is one page of leads plus the pagination metadata the admin UI
// needs. Total is the pre-pagination match count.
type LeadPage struct {
	Leads []*domain.Lead
	Total int
	Page  int
	Pages int
	Limit int
}

// LeadService defines the interface for lead business logic
type LeadService interface {
	Capture(ctx context.Context, input CaptureLeadInput) (*domain.Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateLeadInput) (*domain.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params LeadListParams) (*LeadPage, error)
	Stats(ctx context.Context) (*domain.LeadStats, error)
}

type leadService struct {
	leadRepo repository.LeadRepository
	logger   *zap.Logger
}

// NewLeadService creates a new instance of LeadService
func NewLeadService(leadRepo repository.LeadRepository, logger *zap.Logger) LeadService {
	return &leadService{
		leadRepo: leadRepo,
		logger:   logger,
	}
}

// Capture validates and stores a public form submission. Name, phone and
// email are required and trimmed; email must match the lead email pattern.
func (s *leadService) Capture(ctx context.Context, input CaptureLeadInput) (*domain.Lead, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if name == "" || phone == "" || email == "" {
		return nil, validationErrorf("name, phone and email are required")
	}
	if !domain.ValidEmail(email) {
		return nil, validationErrorf("invalid email address")
	}

	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = "website"
	}

	now := time.Now()
	lead := &domain.Lead{
		ID:              uuid.New(),
		Name:            name,
		Phone:           phone,
		Email:           email,
		Message:         input.Message,
		Source:          source,
		ProductInterest: input.ProductInterest,
		Status:          domain.LeadStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.logger.Info("Lead captured",
		zap.String("lead_id", lead.ID.String()),
		zap.String("source", lead.Source),
	)

	return lead, nil
}

// Get retrieves a lead by ID
func (s *leadService) Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	return s.leadRepo.FindByID(ctx, id)
}

// Update applies a partial update, re-validating status against the enum and
// email against the pattern when present. Any status may move to any other.
func (s *leadService) Update(ctx context.Context, id uuid.UUID, input UpdateLeadInput) (*domain.Lead, error) {
	if input.Status != nil && !domain.ValidLeadStatus(*input.Status) {
		return nil, validationErrorf("invalid status. options: %s", strings.Join(domain.LeadStatuses(), ", "))
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if !domain.ValidEmail(email) {
			return nil, validationErrorf("invalid email address")
		}
		input.Email = &email
	}

	lead, err := s.leadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		lead.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil && strings.TrimSpace(*input.Phone) != "" {
		lead.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Email != nil {
		lead.Email = *input.Email
	}
	if input.Message != nil {
		lead.Message = *input.Message
	}
	if input.Source != nil {
		lead.Source = *input.Source
	}
	if input.ProductInterest != nil {
		lead.ProductInterest = *input.ProductInterest
	}
	if input.Status != nil {
		lead.Status = *input.Status
	}
	lead.UpdatedAt = time.Now()

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, err
	}

	s.logger.Info("Lead updated",
		zap.String("lead_id", lead.ID.String()),
		zap.String("status", lead.Status),
	)

	return lead, nil
}

// Delete removes a lead. There are no cascading effects.
func (s *leadService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.leadRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Lead deleted", zap.String("lead_id", id.String()))
	return nil
}

// List validates and defaults the query parameters, then fetches one page.
// A page past the end yields an empty slice with the correct total.
func (s *leadService) List(ctx context.Context, params LeadListParams) (*LeadPage, error) {
	if params.Status != "" && !domain.ValidLeadStatus(params.Status) {
		return nil, validationErrorf("invalid status. options: %s", strings.Join(domain.LeadStatuses(), ", "))
	}

	page := params.Page
	if page < 1 {
		page = defaultLeadPage
	}
	// A non-positive limit is clamped rather than rejected; zero means the
	// caller sent nothing and gets the default page size.
	limit := params.Limit
	if limit == 0 {
		limit = defaultLeadLimit
	}
	if limit < 1 {
		limit = 1
	}

	sortOrder := repository.SortOrderDesc
	if strings.EqualFold(params.SortOrder, "asc") {
		sortOrder = repository.SortOrderAsc
	}

	filter := repository.LeadFilter{
		Status:    params.Status,
		Source:    params.Source,
		Search:    strings.TrimSpace(params.Search),
		DateFrom:  params.DateFrom,
		DateTo:    params.DateTo,
		SortBy:    params.SortBy,
		SortOrder: sortOrder,
		Page:      page,
		Limit:     limit,
	}

	leads, total, err := s.leadRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	pages := int(math.Ceil(float64(total) / float64(limit)))

	return &LeadPage{
		Leads: leads,
		Total: total,
		Page:  page,
		Pages: pages,
		Limit: limit,
	}, nil
}

// Stats assembles the dashboard aggregate. The conversion rate is the
// "converted" share of all leads, rounded to one decimal, and zero when
// there are no leads at all.
func (s *leadService) Stats(ctx context.Context) (*domain.LeadStats, error) {
	counts, err := s.leadRepo.Counts(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	conversionRate := 0.0
	if counts.Total > 0 {
		converted := counts.ByStatus[domain.LeadStatusConverted]
		conversionRate = round1(float64(converted) / float64(counts.Total) * 100)
	}

	return &domain.LeadStats{
		Total:          counts.Total,
		NewToday:       counts.NewToday,
		NewThisWeek:    counts.NewThisWeek,
		NewThisMonth:   counts.NewThisMonth,
		ConversionRate: conversionRate,
		ByStatus:       counts.ByStatus,
		BySource:       counts.BySource,
		RecentLeads:    counts.RecentLeads,
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
