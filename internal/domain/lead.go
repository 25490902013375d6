package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Lead statuses form an unordered set: any status may move to any other.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusConverted = "converted"
	LeadStatusClosed    = "closed"
)

// emailPattern is intentionally loose: local@domain.tld with no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Lead is a prospective-customer contact captured from the public form
type Lead struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Phone           string    `json:"phone" db:"phone"`
	Email           string    `json:"email" db:"email"`
	Message         string    `json:"message" db:"message"`
	Source          string    `json:"source" db:"source"`
	ProductInterest string    `json:"productInterest" db:"product_interest"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// RecentLead is the trimmed projection used by the dashboard.
type RecentLead struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeadStats is the dashboard aggregate. ByStatus and BySource are sparse:
// they only contain observed keys, so consumers must default missing keys
// to zero.
type LeadStats struct {
	Total          int            `json:"total"`
	NewToday       int            `json:"newToday"`
	NewThisWeek    int            `json:"newThisWeek"`
	NewThisMonth   int            `json:"newThisMonth"`
	ConversionRate float64        `json:"conversionRate"`
	ByStatus       map[string]int `json:"byStatus"`
	BySource       map[string]int `json:"bySource"`
	RecentLeads    []RecentLead   `json:"recentLeads"`
}

// ValidLeadStatus reports whether status is one of the four known statuses.
func ValidLeadStatus(status string) bool {
	switch status {
	case LeadStatusNew, LeadStatusContacted, LeadStatusConverted, LeadStatusClosed:
		return true
	}
	return false
}

// LeadStatuses returns the fixed status enum in its canonical order.
func LeadStatuses() []string {
	return []string{LeadStatusNew, LeadStatusContacted, LeadStatusConverted, LeadStatusClosed}
}

// ValidEmail reports whether email matches the lead email pattern.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
