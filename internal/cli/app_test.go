package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/server"
	"github.com/ezfix/portal/internal/services"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	cfg *config.Config
}

func newBackend(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		SandboxJWTSecret:     "cli-secret",
		SandboxAccessExpiry:  time.Minute,
		SandboxRefreshExpiry: time.Hour,
		SandboxAdminUsers:    []string{"admin"},
		CORSOrigins:          "*",
	}
	sb := server.NewSandbox(cfg, services.NewMemoryDB())
	srv := httptest.NewServer(adaptor.FiberApp(sb.App))
	t.Cleanup(srv.Close)
	return srv.URL
}

// user returns a harness with its own session file, as if each user ran
// the portal on their own machine.
func user(t *testing.T, baseURL string) *harness {
	dir := t.TempDir()
	return &harness{t: t, cfg: &config.Config{
		APIBaseURL:    baseURL,
		HTTPTimeout:   5 * time.Second,
		SessionTier:   config.TierLocal,
		SessionFile:   filepath.Join(dir, "session.json"),
		RefreshLeeway: time.Second,
		ToastTTL:      3 * time.Second,
		PageSize:      10,
	}}
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(h.cfg, WithStreams(strings.NewReader(stdin), &out, &errOut))
	err := app.Run(context.Background(), args)
	return out.String(), errOut.String(), err
}

func (h *harness) signUp(name string) {
	h.t.Helper()
	pw := filepath.Join(h.t.TempDir(), "pw")
	require.NoError(h.t, os.WriteFile(pw, []byte("secret123\n"), 0o600))
	out, _, err := h.run("", "register", "-u", name, "--email", name+"@example.test", "--password-file", pw)
	require.NoError(h.t, err)
	require.Contains(h.t, out, "Signed in as "+name)
}

var createdID = regexp.MustCompile(`Created report (\S+)`)

func TestReportWorkflowFromTheCommandLine(t *testing.T) {
	url := newBackend(t)
	student := user(t, url)
	admin := user(t, url)
	student.signUp("student1")
	admin.signUp("admin")

	out, errOut, err := student.run("", "reports", "create",
		"--block", "A", "--room", "101", "--category", "electrical damage", "--description", "Socket sparks")
	require.NoError(t, err)
	require.Contains(t, errOut, "[ok] Report submitted successfully!")
	m := createdID.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out, _, err = student.run("", "reports", "list")
	require.NoError(t, err)
	require.Contains(t, out, id)
	require.Contains(t, out, "Electrical")
	require.Contains(t, out, "Page 1 of 1 (1 reports)")

	_, _, err = student.run("", "reports", "status", id, "Fixed")
	require.ErrorContains(t, err, "Only administrators")

	out, _, err = admin.run("", "reports", "status", id)
	require.NoError(t, err)
	require.Contains(t, out, "* Pending")

	_, errOut, err = admin.run("", "reports", "status", id, "in", "progress")
	require.NoError(t, err)
	require.Contains(t, errOut, "[ok]")

	_, _, err = student.run("", "reports", "delete", id, "--yes")
	require.ErrorContains(t, err, "can no longer be cancelled")

	out, _, err = admin.run("", "reports", "show", id)
	require.NoError(t, err)
	require.Contains(t, out, "In Progress")

	out, _, err = admin.run("", "stats")
	require.NoError(t, err)
	require.Regexp(t, `Total\s+1`, out)

	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	out, _, err = admin.run("", "reports", "export", "-o", xlsx)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote 1 reports")
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	_, _, err = admin.run("", "reports", "status", id, "Pending")
	require.NoError(t, err)

	out, _, err = admin.run("n\n", "reports", "delete", id)
	require.NoError(t, err)
	require.Contains(t, out, "Cancelled")

	_, errOut, err = admin.run("", "reports", "delete", id, "-y")
	require.NoError(t, err)
	require.Contains(t, errOut, "[ok] Report deleted successfully!")

	out, _, err = admin.run("", "reports", "list")
	require.NoError(t, err)
	require.Contains(t, out, "No reports found.")
}

func TestSessionCommands(t *testing.T) {
	url := newBackend(t)
	h := user(t, url)
	h.signUp("admin")

	out, _, err := h.run("", "whoami")
	require.NoError(t, err)
	require.Regexp(t, `Role\s+admin`, out)

	_, _, err = h.run("", "logout")
	require.NoError(t, err)
	_, err = os.Stat(h.cfg.SessionFile)
	require.True(t, os.IsNotExist(err))

	_, _, err = h.run("", "whoami")
	require.ErrorIs(t, err, errSignInRequired)

	_, _, err = h.run("wrong\n", "login", "-u", "admin")
	require.Error(t, err)

	out, _, err = h.run("secret123\n", "login", "-u", "admin")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as admin (admin)")
}

func TestAnnouncementsRequireAllFields(t *testing.T) {
	url := newBackend(t)
	h := user(t, url)
	h.signUp("admin")

	out, _, err := h.run("", "announcements", "list")
	require.NoError(t, err)
	require.Contains(t, out, "No announcements.")

	_, _, err = h.run("", "announcements", "post", "--title", "Water cut")
	require.EqualError(t, err, "Please fill in all fields!")
}

func TestCommandsNeedSession(t *testing.T) {
	h := user(t, newBackend(t))
	_, _, err := h.run("", "reports", "list")
	require.ErrorIs(t, err, errSignInRequired)
}
