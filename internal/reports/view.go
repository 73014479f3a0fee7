package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/models"
)

// SortKey names the report field a table is ordered or searched by.
type SortKey string

const (
	KeyNone        SortKey = ""
	KeyReportedBy  SortKey = "reportedBy"
	KeyStudentID   SortKey = "studentId"
	KeyTitle       SortKey = "title"
	KeyLocation    SortKey = "location"
	KeyRoomNo      SortKey = "roomNo"
	KeyCategory    SortKey = "category"
	KeyDescription SortKey = "description"
	KeyStatus      SortKey = "status"
	KeyCreatedAt   SortKey = "createdAt"
	KeyUpdatedAt   SortKey = "updatedAt"
)

// Column headers as the admin table shows them.
var sortLabels = map[string]SortKey{
	"name":         KeyReportedBy,
	"reported by":  KeyReportedBy,
	"student id":   KeyStudentID,
	"matric no.":   KeyStudentID,
	"title":        KeyTitle,
	"block":        KeyLocation,
	"block no.":    KeyLocation,
	"block no":     KeyLocation,
	"location":     KeyLocation,
	"room":         KeyRoomNo,
	"room no.":     KeyRoomNo,
	"room no":      KeyRoomNo,
	"damage type":  KeyCategory,
	"category":     KeyCategory,
	"description":  KeyDescription,
	"status":       KeyStatus,
	"date":         KeyCreatedAt,
	"created":      KeyCreatedAt,
	"submitted":    KeyCreatedAt,
	"updated":      KeyUpdatedAt,
	"last updated": KeyUpdatedAt,
}

var fieldKeys = map[SortKey]bool{
	KeyReportedBy: true, KeyStudentID: true, KeyTitle: true, KeyLocation: true,
	KeyRoomNo: true, KeyCategory: true, KeyDescription: true, KeyStatus: true,
	KeyCreatedAt: true, KeyUpdatedAt: true,
}

// ParseSortKey maps a column label or a field name to its sort key.
func ParseSortKey(label string) (SortKey, bool) {
	trimmed := strings.TrimSpace(label)
	if fieldKeys[SortKey(trimmed)] {
		return SortKey(trimmed), true
	}
	k, ok := sortLabels[strings.ToLower(strings.Join(strings.Fields(trimmed), " "))]
	return k, ok
}

// Text returns the field k of r as a string.
func (k SortKey) Text(r *models.Report) string {
	switch k {
	case KeyReportedBy:
		return r.ReportedBy
	case KeyStudentID:
		return r.StudentID
	case KeyTitle:
		return r.Title
	case KeyLocation:
		return r.Location
	case KeyRoomNo:
		return r.RoomNo
	case KeyCategory:
		return string(r.Category)
	case KeyDescription:
		return r.Description
	case KeyStatus:
		return string(r.Status)
	case KeyCreatedAt:
		return r.CreatedAt.Format(time.RFC3339)
	case KeyUpdatedAt:
		return r.UpdatedAt.Format(time.RFC3339)
	}
	return ""
}

// searchText is what a search on k matches against. Dates match on the
// calendar day as the table prints it.
func (k SortKey) searchText(r *models.Report) string {
	switch k {
	case KeyCreatedAt:
		return searchDate(r.CreatedAt)
	case KeyUpdatedAt:
		return searchDate(r.UpdatedAt)
	}
	return k.Text(r)
}

func searchDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02")
}

func (k SortKey) compare(a, b *models.Report) int {
	switch k {
	case KeyCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case KeyUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case KeyNone:
		return 0
	}
	return strings.Compare(strings.ToLower(k.Text(a)), strings.ToLower(k.Text(b)))
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending", "dsc":
		return Descending
	}
	return Ascending
}

// FilterAll and FilterOther are the special category filter values.
const (
	FilterAll   = "all"
	FilterOther = "other"
)

// Query is the table state a view is derived from. Page is 1-based and a
// PageSize of zero disables paging.
type Query struct {
	SortKey     SortKey
	Direction   Direction
	Search      string
	SearchField SortKey
	Category    string
	Status      models.Status
	Page        int
	PageSize    int
}

// View is one page of a derived report list.
type View struct {
	Items []models.Report
	Total int
	Page  int
	Pages int
}

// DeriveView filters, sorts and pages reports. It works on a copy and is
// deterministic for equal inputs. Priority reports always come first.
func DeriveView(reports []models.Report, q Query) View {
	filtered := make([]models.Report, 0, len(reports))
	for i := range reports {
		if matches(&reports[i], q) {
			filtered = append(filtered, reports[i])
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := &filtered[i], &filtered[j]
		if a.Priority != b.Priority {
			return a.Priority
		}
		c := q.SortKey.compare(a, b)
		if q.Direction == Descending {
			c = -c
		}
		return c < 0
	})

	return paginate(filtered, q.Page, q.PageSize)
}

func matches(r *models.Report, q Query) bool {
	if needle := strings.ToLower(strings.TrimSpace(q.Search)); needle != "" {
		field := q.SearchField
		if field == KeyNone {
			field = KeyReportedBy
		}
		if !strings.Contains(strings.ToLower(field.searchText(r)), needle) {
			return false
		}
	}

	switch filter := strings.TrimSpace(q.Category); {
	case filter == "" || strings.EqualFold(filter, FilterAll):
	case strings.EqualFold(filter, FilterOther):
		if r.Category.Known() {
			return false
		}
	default:
		want := models.ParseCategory(filter)
		if !strings.EqualFold(string(models.ParseCategory(string(r.Category))), string(want)) {
			return false
		}
	}

	if q.Status != "" && models.ParseStatus(string(r.Status)) != models.ParseStatus(string(q.Status)) {
		return false
	}
	return true
}

func paginate(items []models.Report, page, size int) View {
	total := len(items)
	if size <= 0 {
		return View{Items: items, Total: total, Page: 1, Pages: 1}
	}

	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return View{Items: items[start:end:end], Total: total, Page: page, Pages: pages}
}

// PinFlagged moves priority reports ahead of the rest, keeping relative
// order within each group.
func PinFlagged(reports []models.Report) []models.Report {
	out := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if r.Priority {
			out = append(out, r)
		}
	}
	for _, r := range reports {
		if !r.Priority {
			out = append(out, r)
		}
	}
	return out
}

// DaysElapsed is the age of r in whole days.
func DaysElapsed(r models.Report, now time.Time) int {
	return r.DaysElapsed(now)
}
