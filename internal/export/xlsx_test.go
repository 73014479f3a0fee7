package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/ezfix/portal/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReports(t *testing.T) {
	now := time.Date(2026, 10, 8, 12, 0, 0, 0, time.UTC)
	reports := []models.Report{
		{ID: "r1", ReportedBy: "Nurul", Location: "B12", Category: models.CategoryPiping, Status: models.StatusPending, Priority: true, CreatedAt: now.AddDate(0, 0, -4)},
		{ID: "r2", ReportedBy: "Ahmad", Location: "A03", Category: "Aircond", Status: models.StatusFixed, Attachments: []string{"f1"}, CreatedAt: now.AddDate(0, 0, -1)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReports(&buf, reports, now))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Block No.", rows[0][4])
	require.Equal(t, "r1", rows[1][0])
	require.Equal(t, "Yes", rows[1][9])
	require.Equal(t, "4", rows[1][14])
	require.Equal(t, "Aircond", rows[2][6])

	total, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	require.Equal(t, "2", total)
}
