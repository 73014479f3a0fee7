package models

import (
	"strings"
	"time"
)

// Status is the triage state of a report. Backends disagree on spelling, so
// every value entering the module goes through ParseStatus.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusFixed      Status = "Fixed"
	StatusRejected   Status = "Rejected"
	StatusUnknown    Status = "Unknown"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusFixed, StatusRejected}

var statusAliases = map[string]Status{
	"pending":     StatusPending,
	"new":         StatusPending,
	"open":        StatusPending,
	"in progress": StatusInProgress,
	"in-progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"in_progress": StatusInProgress,
	"ongoing":     StatusInProgress,
	"fixed":       StatusFixed,
	"resolved":    StatusFixed,
	"done":        StatusFixed,
	"rejected":    StatusRejected,
	"not fixed":   StatusRejected,
	"not-fixed":   StatusRejected,
	"declined":    StatusRejected,
}

// allowedTransitions is advisory. The backend remains the authority on
// whether a transition is legal.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusFixed, StatusRejected},
	StatusInProgress: {StatusFixed, StatusRejected, StatusPending},
	StatusFixed:      {StatusInProgress},
	StatusRejected:   {StatusPending},
}

// ParseStatus normalizes a status string. An empty string is Pending, as a
// freshly submitted report has no status yet; anything unrecognized is
// StatusUnknown.
func ParseStatus(s string) Status {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if key == "" {
		return StatusPending
	}
	if st, ok := statusAliases[key]; ok {
		return st
	}
	return StatusUnknown
}

func (s Status) Known() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Next returns the statuses a report in s may be moved to.
func (s Status) Next() []Status {
	next := allowedTransitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, n := range allowedTransitions[s] {
		if n == target {
			return true
		}
	}
	return false
}

// Cancelable reports whether a submitter may still withdraw the report.
func (s Status) Cancelable() bool {
	return s == StatusPending
}

func (s Status) Resolved() bool {
	return s == StatusFixed || s == StatusRejected
}

func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// Category is the damage type of a report. Known categories are stored in
// canonical casing; any other label is kept trimmed and counts as "other".
type Category string

const (
	CategoryElectrical  Category = "Electrical"
	CategoryCivil       Category = "Civil"
	CategoryPiping      Category = "Piping"
	CategorySanitary    Category = "Sanitary"
	CategoryPestControl Category = "Pest Control"

	// CategoryOther is the filter and bucket name for labels outside the
	// known set.
	CategoryOther Category = "Other"
)

var Categories = []Category{CategoryElectrical, CategoryCivil, CategoryPiping, CategorySanitary, CategoryPestControl}

var categoryAliases = map[string]Category{
	"electrical":        CategoryElectrical,
	"electrical damage": CategoryElectrical,
	"electric":          CategoryElectrical,
	"civil":             CategoryCivil,
	"civil damage":      CategoryCivil,
	"piping":            CategoryPiping,
	"pipping":           CategoryPiping,
	"plumbing":          CategoryPiping,
	"sanitary":          CategorySanitary,
	"pest control":      CategoryPestControl,
	"pest":              CategoryPestControl,
}

func categoryKey(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// ParseCategory returns the canonical category for s, or s trimmed when it
// names no known category.
func ParseCategory(s string) Category {
	if c, ok := categoryAliases[categoryKey(s)]; ok {
		return c
	}
	return Category(strings.TrimSpace(s))
}

func (c Category) Known() bool {
	_, ok := categoryAliases[categoryKey(string(c))]
	return ok
}

// Bucket folds every unknown label into CategoryOther.
func (c Category) Bucket() Category {
	if c.Known() {
		return ParseCategory(string(c))
	}
	return CategoryOther
}

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}

// Report is a maintenance issue submitted by a student.
type Report struct {
	ID          string    `json:"id"`
	ReportedBy  string    `json:"reportedBy"`
	StudentID   string    `json:"studentId"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	RoomNo      string    `json:"roomNo"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    bool      `json:"priority"`
	Comment     string    `json:"comment,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DaysElapsed is the whole number of days since the report was created.
func (r *Report) DaysElapsed(now time.Time) int {
	if r.CreatedAt.IsZero() || now.Before(r.CreatedAt) {
		return 0
	}
	return int(now.Sub(r.CreatedAt) / (24 * time.Hour))
}
