package export

import (
	"fmt"
	"io"
	"time"

	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/stats"
	"github.com/xuri/excelize/v2"
)

const (
	reportsSheet = "Reports"
	summarySheet = "Summary"
	dateLayout   = "2006-01-02 15:04"
)

var reportHeader = []interface{}{
	"ID", "Name", "Student ID", "Title", "Block No.", "Room No.", "Damage Type",
	"Description", "Status", "Priority", "Comment", "Attachments", "Date", "Updated", "Days Elapsed",
}

// WriteReports writes reports, in the given order, as an XLSX workbook with
// a Reports sheet and a Summary sheet.
func WriteReports(w io.Writer, reports []models.Report, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportsSheet); err != nil {
		return err
	}
	if err := writeReportRows(f, reports, now); err != nil {
		return fmt.Errorf("write %s sheet: %w", reportsSheet, err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := writeSummary(f, stats.Compute(reports, now)); err != nil {
		return fmt.Errorf("write %s sheet: %w", summarySheet, err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeReportRows(f *excelize.File, reports []models.Report, now time.Time) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(reportsSheet, "A1", &reportHeader); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(reportHeader))
	if err := f.SetCellStyle(reportsSheet, "A1", last+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(reportsSheet, "A", last, 16); err != nil {
		return err
	}

	for i := range reports {
		r := &reports[i]
		priority := ""
		if r.Priority {
			priority = "Yes"
		}
		row := []interface{}{
			r.ID, r.ReportedBy, r.StudentID, r.Title, r.Location, r.RoomNo, string(r.Category),
			r.Description, string(r.Status), priority, r.Comment, len(r.Attachments),
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt), r.DaysElapsed(now),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(reportsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s stats.Stats) error {
	rows := [][]interface{}{
		{"Total reports", s.Total},
		{"Resolved", s.Resolved},
		{"Priority", s.Priority},
		{"Created this week", s.ThisWeek},
		{"Created last week", s.LastWeek},
		{"Oldest pending (days)", s.OldestPendingDays},
		{},
		{"Status", "Count"},
	}
	for _, c := range s.Statuses() {
		rows = append(rows, []interface{}{c.Label, c.N})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Damage Type", "Count"})
	for _, c := range s.Categories() {
		rows = append(rows, []interface{}{c.Label, c.N})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Block", "Count"})
	for _, c := range s.Locations() {
		rows = append(rows, []interface{}{c.Label, c.N})
	}

	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 24)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
