//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxGrievanceTitleLen       = 200
	maxGrievanceDescriptionLen = 5000
	maxGrievanceAddressLen     = 500
)

// GrievanceCategory groups grievances by the department expected to act on them.
type GrievanceCategory string

const (
	CategoryInfrastructure GrievanceCategory = "infrastructure"
	CategoryUtilities      GrievanceCategory = "utilities"
	CategoryTransportation GrievanceCategory = "transportation"
	CategoryHealthcare     GrievanceCategory = "healthcare"
	CategoryEducation      GrievanceCategory = "education"
	CategoryEnvironment    GrievanceCategory = "environment"
	CategorySafety         GrievanceCategory = "safety"
	CategoryOther          GrievanceCategory = "other"
)

// Valid reports whether the category is supported.
func (c GrievanceCategory) Valid() bool {
	switch c {
	case CategoryInfrastructure, CategoryUtilities, CategoryTransportation, CategoryHealthcare,
		CategoryEducation, CategoryEnvironment, CategorySafety, CategoryOther:
		return true
	default:
		return false
	}
}

// GrievancePriority is the urgency a citizen assigns when filing.
type GrievancePriority string

const (
	PriorityLow    GrievancePriority = "low"
	PriorityMedium GrievancePriority = "medium"
	PriorityHigh   GrievancePriority = "high"
	PriorityUrgent GrievancePriority = "urgent"
)

// Valid reports whether the priority is supported.
func (p GrievancePriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities from low (1) to urgent (4). Unknown priorities rank 0.
func (p GrievancePriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

// GrievanceStatus tracks a grievance through review.
type GrievanceStatus string

const (
	GrievanceStatusPending    GrievanceStatus = "pending"
	GrievanceStatusInProgress GrievanceStatus = "in_progress"
	GrievanceStatusResolved   GrievanceStatus = "resolved"
	GrievanceStatusRejected   GrievanceStatus = "rejected"
	GrievanceStatusClosed     GrievanceStatus = "closed"
)

// Valid reports whether the status is supported.
func (s GrievanceStatus) Valid() bool {
	switch s {
	case GrievanceStatusPending, GrievanceStatusInProgress, GrievanceStatusResolved,
		GrievanceStatusRejected, GrievanceStatusClosed:
		return true
	default:
		return false
	}
}

// ParseGrievanceStatus normalizes a status string and reports whether it is supported.
func ParseGrievanceStatus(value string) (GrievanceStatus, bool) {
	s := GrievanceStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// Grievance is a citizen complaint pinned to a location.
type Grievance struct {
	ID             string            `json:"id"                db:"id"`
	TrackingNumber string            `json:"tracking_number"   db:"tracking_number"`
	ReporterID     string            `json:"reporter_id"       db:"reporter_id"`
	ReporterEmail  string            `json:"reporter_email"    db:"reporter_email"`
	Title          string            `json:"title"             db:"title"`
	Description    string            `json:"description"       db:"description"`
	Category       GrievanceCategory `json:"category"          db:"category"`
	Priority       GrievancePriority `json:"priority"          db:"priority"`
	Status         GrievanceStatus   `json:"status"            db:"status"`
	Latitude       float64           `json:"latitude"          db:"latitude"`
	Longitude      float64           `json:"longitude"         db:"longitude"`
	Address        *string           `json:"address,omitempty" db:"address"`
	CreatedAt      time.Time         `json:"created_at"        db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"        db:"updated_at"`
}

// CreateGrievanceRequest is the payload a citizen submits from the grievance form.
// The location is not part of the payload; it is read from the referenced draft.
type CreateGrievanceRequest struct {
	DraftID     string            `json:"draft_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    GrievanceCategory `json:"category"`
	Priority    GrievancePriority `json:"priority"`
	Address     *string           `json:"address,omitempty"`
}

// Normalize trims free-text fields and applies the default priority.
func (r *CreateGrievanceRequest) Normalize() {
	r.DraftID = strings.TrimSpace(r.DraftID)
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = GrievanceCategory(strings.ToLower(strings.TrimSpace(string(r.Category))))
	r.Priority = GrievancePriority(strings.ToLower(strings.TrimSpace(string(r.Priority))))
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Address != nil {
		trimmed := strings.TrimSpace(*r.Address)
		if trimmed == "" {
			r.Address = nil
		} else {
			r.Address = &trimmed
		}
	}
}

// Validate checks the request after Normalize.
func (r *CreateGrievanceRequest) Validate() error {
	if r.DraftID == "" {
		return errors.New("draft_id is required and cannot be empty")
	}
	if r.Title == "" {
		return errors.New("title is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Title) > maxGrievanceTitleLen {
		return fmt.Errorf("title cannot exceed %d characters", maxGrievanceTitleLen)
	}
	if r.Description == "" {
		return errors.New("description is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Description) > maxGrievanceDescriptionLen {
		return fmt.Errorf("description cannot exceed %d characters", maxGrievanceDescriptionLen)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("category must be one of: %s", strings.Join(categoryNames(), ", "))
	}
	if !r.Priority.Valid() {
		return errors.New("priority must be one of: low, medium, high, urgent")
	}
	if r.Address != nil && utf8.RuneCountInString(*r.Address) > maxGrievanceAddressLen {
		return fmt.Errorf("address cannot exceed %d characters", maxGrievanceAddressLen)
	}
	return nil
}

// UpdateGrievanceRequest is a reporter's edit of a pending grievance. Nil
// fields are left unchanged. The location is fixed once filed.
type UpdateGrievanceRequest struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Category    *GrievanceCategory `json:"category,omitempty"`
	Priority    *GrievancePriority `json:"priority,omitempty"`
	Address     *string            `json:"address,omitempty"`
}

// Normalize trims the fields that are set.
func (r *UpdateGrievanceRequest) Normalize() {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	r.Title = trim(r.Title)
	r.Description = trim(r.Description)
	r.Address = trim(r.Address)
	if r.Category != nil {
		c := GrievanceCategory(strings.ToLower(strings.TrimSpace(string(*r.Category))))
		r.Category = &c
	}
	if r.Priority != nil {
		p := GrievancePriority(strings.ToLower(strings.TrimSpace(string(*r.Priority))))
		r.Priority = &p
	}
}

// Validate checks the request after Normalize.
func (r *UpdateGrievanceRequest) Validate() error {
	if r.Empty() {
		return errors.New("at least one field must be provided")
	}
	if r.Title != nil {
		if *r.Title == "" {
			return errors.New("title cannot be empty")
		}
		if utf8.RuneCountInString(*r.Title) > maxGrievanceTitleLen {
			return fmt.Errorf("title cannot exceed %d characters", maxGrievanceTitleLen)
		}
	}
	if r.Description != nil {
		if *r.Description == "" {
			return errors.New("description cannot be empty")
		}
		if utf8.RuneCountInString(*r.Description) > maxGrievanceDescriptionLen {
			return fmt.Errorf("description cannot exceed %d characters", maxGrievanceDescriptionLen)
		}
	}
	if r.Category != nil && !r.Category.Valid() {
		return fmt.Errorf("category must be one of: %s", strings.Join(categoryNames(), ", "))
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return errors.New("priority must be one of: low, medium, high, urgent")
	}
	if r.Address != nil && utf8.RuneCountInString(*r.Address) > maxGrievanceAddressLen {
		return fmt.Errorf("address cannot exceed %d characters", maxGrievanceAddressLen)
	}
	return nil
}

// Empty reports whether no field is set.
func (r *UpdateGrievanceRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Category == nil && r.Priority == nil && r.Address == nil
}

// UpdateStatusRequest moves a grievance to a new status.
type UpdateStatusRequest struct {
	Status GrievanceStatus `json:"status"`
}

func categoryNames() []string {
	return []string{
		string(CategoryInfrastructure), string(CategoryUtilities), string(CategoryTransportation),
		string(CategoryHealthcare), string(CategoryEducation), string(CategoryEnvironment),
		string(CategorySafety), string(CategoryOther),
	}
}

// GrievanceListOptions controls paging and filtering for listing grievances.
type GrievanceListOptions struct {
	Limit      int
	Offset     int
	ReporterID *string          // exact match
	Status     *GrievanceStatus // exact match
}

// GrievanceStatusCounts maps each status to the number of grievances in it.
type GrievanceStatusCounts map[GrievanceStatus]int

// Total sums all counts.
func (c GrievanceStatusCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
