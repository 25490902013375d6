package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dimmer-site/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
)

// leadSortColumns is the allowlist mapping API sort keys to columns. Anything
// outside it falls back to created_at.
var leadSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"status":    "status",
	"source":    "source",
}

// LeadFilter describes one lead list query. The same filter is used to build
// both the count and the page query, so the total always matches the slice.
type LeadFilter struct {
	Status    string
	Source    string
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
	SortBy    string
	SortOrder SortOrder
	Page      int
	Limit     int
}

// LeadCounts holds the raw aggregates behind the dashboard; the service layer
// derives the conversion rate from them.
type LeadCounts struct {
	Total        int
	ByStatus     map[string]int
	BySource     map[string]int
	NewToday     int
	NewThisWeek  int
	NewThisMonth int
	RecentLeads  []domain.RecentLead
}

// LeadRepository defines the interface for lead data access
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]*domain.Lead, int, error)
	Counts(ctx context.Context, now time.Time) (*LeadCounts, error)
}

type leadRepository struct {
	db *sql.DB
}

// NewLeadRepository creates a new instance of LeadRepository
func NewLeadRepository(db *sql.DB) LeadRepository {
	return &leadRepository{db: db}
}

const leadColumns = `id, name, phone, email, message, source, product_interest, status, created_at, updated_at`

// Create inserts a new lead into the database using parameterized queries
func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		lead.ID,
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.Message,
		lead.Source,
		lead.ProductInterest,
		lead.Status,
		lead.CreatedAt,
		lead.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// Update updates an existing lead in the database using parameterized queries
func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	query := `
		UPDATE leads
		SET name = $2, phone = $3, email = $4, message = $5, source = $6,
		    product_interest = $7, status = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		lead.ID,
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.Message,
		lead.Source,
		lead.ProductInterest,
		lead.Status,
		lead.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrLeadNotFound
	}

	return nil
}

// Delete removes a lead from the database using parameterized queries
func (r *leadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM leads WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrLeadNotFound
	}

	return nil
}

// FindByID retrieves a lead by ID using parameterized queries
func (r *leadRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead := &domain.Lead{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Message,
		&lead.Source,
		&lead.ProductInterest,
		&lead.Status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to find lead by ID: %w", err)
	}

	return lead, nil
}

// List retrieves leads with filtering, search, sorting and pagination, and the
// total matching count computed against the identical WHERE clause.
func (r *leadRepository) List(ctx context.Context, filter LeadFilter) ([]*domain.Lead, int, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	addCondition := func(condition string, values ...interface{}) {
		if whereClause == "" {
			whereClause = "WHERE "
		} else {
			whereClause += " AND "
		}
		whereClause += condition
		args = append(args, values...)
		argIndex += len(values)
	}

	if filter.Status != "" {
		addCondition(fmt.Sprintf("status = $%d", argIndex), filter.Status)
	}
	if filter.Source != "" {
		addCondition(fmt.Sprintf("source = $%d", argIndex), filter.Source)
	}
	if filter.Search != "" {
		// Case-insensitive OR match across name, phone and email.
		pattern := "%" + filter.Search + "%"
		addCondition(
			fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)", argIndex, argIndex, argIndex),
			pattern,
		)
	}
	if filter.DateFrom != nil {
		addCondition(fmt.Sprintf("created_at >= $%d", argIndex), *filter.DateFrom)
	}
	if filter.DateTo != nil {
		addCondition(fmt.Sprintf("created_at <= $%d", argIndex), *filter.DateTo)
	}

	// Count total leads matching the same predicate as the page query.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	sortBy, ok := leadSortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`
		SELECT `+leadColumns+`
		FROM leads
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []*domain.Lead{}
	for rows.Next() {
		lead := &domain.Lead{}
		err := rows.Scan(
			&lead.ID,
			&lead.Name,
			&lead.Phone,
			&lead.Email,
			&lead.Message,
			&lead.Source,
			&lead.ProductInterest,
			&lead.Status,
			&lead.CreatedAt,
			&lead.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating leads: %w", err)
	}

	return leads, total, nil
}

// Counts gathers the dashboard aggregates. The time thresholds are derived
// from now in process-local time: start of today, seven days back, and one
// calendar month back (not a fixed 30-day window). The sub-queries are
// independent reads with no ordering requirement between them.
func (r *leadRepository) Counts(ctx context.Context, now time.Time) (*LeadCounts, error) {
	counts := &LeadCounts{
		ByStatus:    map[string]int{},
		BySource:    map[string]int{},
		RecentLeads: []domain.RecentLead{},
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&counts.Total); err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	if err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`, counts.ByStatus); err != nil {
		return nil, err
	}

	// Leads with an empty or NULL source are bucketed under "unknown".
	sourceQuery := `
		SELECT COALESCE(NULLIF(TRIM(source), ''), 'unknown'), COUNT(*)
		FROM leads
		GROUP BY 1
	`
	if err := r.groupCount(ctx, sourceQuery, counts.BySource); err != nil {
		return nil, err
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	since := func(threshold time.Time, dest *int) error {
		return r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE created_at >= $1`, threshold).Scan(dest)
	}

	if err := since(startOfToday, &counts.NewToday); err != nil {
		return nil, fmt.Errorf("failed to count today's leads: %w", err)
	}
	if err := since(weekAgo, &counts.NewThisWeek); err != nil {
		return nil, fmt.Errorf("failed to count this week's leads: %w", err)
	}
	if err := since(monthAgo, &counts.NewThisMonth); err != nil {
		return nil, fmt.Errorf("failed to count this month's leads: %w", err)
	}

	recentQuery := `
		SELECT name, email, status, created_at
		FROM leads
		ORDER BY created_at DESC
		LIMIT 5
	`
	rows, err := r.db.QueryContext(ctx, recentQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recent domain.RecentLead
		if err := rows.Scan(&recent.Name, &recent.Email, &recent.Status, &recent.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent lead: %w", err)
		}
		counts.RecentLeads = append(counts.RecentLeads, recent)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent leads: %w", err)
	}

	return counts, nil
}

func (r *leadRepository) groupCount(ctx context.Context, query string, dest map[string]int) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to group leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan lead group: %w", err)
		}
		dest[key] = count
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating lead groups: %w", err)
	}

	return nil
}
