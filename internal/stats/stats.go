package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/models"
)

// Stats are the dashboard aggregates over a report list.
type Stats struct {
	Total    int
	Priority int
	Resolved int

	ByStatus   map[models.Status]int
	ByCategory map[models.Category]int
	ByLocation map[string]int

	// Reports created in the current and the previous calendar week,
	// weeks starting on Monday.
	ThisWeek int
	LastWeek int

	OldestPendingDays int
}

type Count struct {
	Label string
	N     int
}

// Compute aggregates reports as of now.
func Compute(reports []models.Report, now time.Time) Stats {
	s := Stats{
		Total:      len(reports),
		ByStatus:   make(map[models.Status]int),
		ByCategory: make(map[models.Category]int),
		ByLocation: make(map[string]int),
	}

	weekStart := startOfWeek(now)
	prevWeekStart := weekStart.AddDate(0, 0, -7)

	for i := range reports {
		r := &reports[i]
		s.ByStatus[r.Status]++
		s.ByCategory[r.Category.Bucket()]++
		if loc := strings.ToUpper(strings.TrimSpace(r.Location)); loc != "" {
			s.ByLocation[loc]++
		}
		if r.Priority {
			s.Priority++
		}
		if r.Status.Resolved() {
			s.Resolved++
		}

		created := r.CreatedAt.In(now.Location())
		switch {
		case !created.Before(weekStart) && !created.After(now):
			s.ThisWeek++
		case !created.Before(prevWeekStart) && created.Before(weekStart):
			s.LastWeek++
		}

		if r.Status == models.StatusPending {
			if d := r.DaysElapsed(now); d > s.OldestPendingDays {
				s.OldestPendingDays = d
			}
		}
	}
	return s
}

func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// Statuses lists status counts in workflow order, with unknown last.
func (s Stats) Statuses() []Count {
	out := make([]Count, 0, len(models.Statuses)+1)
	for _, st := range models.Statuses {
		out = append(out, Count{Label: string(st), N: s.ByStatus[st]})
	}
	if n := s.ByStatus[models.StatusUnknown]; n > 0 {
		out = append(out, Count{Label: string(models.StatusUnknown), N: n})
	}
	return out
}

// Categories lists the known categories followed by Other.
func (s Stats) Categories() []Count {
	out := make([]Count, 0, len(models.Categories)+1)
	for _, c := range models.Categories {
		out = append(out, Count{Label: string(c), N: s.ByCategory[c]})
	}
	return append(out, Count{Label: string(models.CategoryOther), N: s.ByCategory[models.CategoryOther]})
}

// Locations lists blocks by descending count, then by name.
func (s Stats) Locations() []Count {
	out := make([]Count, 0, len(s.ByLocation))
	for loc, n := range s.ByLocation {
		out = append(out, Count{Label: loc, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Label < out[j].Label
	})
	return out
}
