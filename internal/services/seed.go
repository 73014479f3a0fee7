package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ezfix/portal/internal/dto"
)

var sampleReports = []dto.CreateReportRequest{
	{Title: "Flickering ceiling light", Location: "A", RoomNo: "101", Category: "Electrical", Description: "The light in the reading corner flickers at night."},
	{Title: "Leaking sink", Location: "B", RoomNo: "214", Category: "Piping", Description: "Water pools under the bathroom sink."},
	{Title: "Cracked wall", Location: "C", RoomNo: "008", Category: "Civil Damage", Description: "A crack is spreading above the door frame."},
	{Title: "Ants in the pantry", Location: "A", RoomNo: "112", Category: "Pest Control", Description: "Ants are coming in through the window sill."},
}

// Seed creates the first configured admin (when a password is given), a
// demo student and a handful of reports from that student.
func Seed(auth *AuthService, reports *ReportService, adminPassword string) error {
	if adminPassword != "" && len(auth.cfg.SandboxAdminUsers) > 0 {
		name := auth.cfg.SandboxAdminUsers[0]
		_, err := auth.Register(&dto.RegisterRequest{Username: name, Email: name + "@ezfix.local", Password: adminPassword})
		if err != nil && !errors.Is(err, ErrUsernameTaken) {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	student, err := auth.Register(&dto.RegisterRequest{Username: "student", Email: "student@ezfix.local", Password: "student123"})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("seed student: %w", err)
	}

	for i := range sampleReports {
		req := sampleReports[i]
		req.StudentID = student.User.ID
		req.ReportedBy = student.User.Username
		if _, err := reports.Create(&req, nil); err != nil {
			return fmt.Errorf("seed report %q: %w", req.Title, err)
		}
	}
	slog.Info("sandbox seeded", "reports", len(sampleReports))
	return nil
}
