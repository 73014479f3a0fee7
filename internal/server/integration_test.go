package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/reports"
	"github.com/ezfix/portal/internal/session"
	"github.com/ezfix/portal/internal/validator"
	"github.com/ezfix/portal/internal/workflow"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
)

type portalClient struct {
	api      *apiclient.Client
	store    *session.Store
	storage  session.Storage
	reports  *reports.Collection
	workflow *workflow.Workflow
}

func newPortalClient(t *testing.T, baseURL string, storage session.Storage) *portalClient {
	t.Helper()
	api := apiclient.New(baseURL)
	store := session.NewStore(api, storage)
	api.UseTokens(store)
	coll := reports.NewCollection(api)
	wf := workflow.New(api, coll, store)
	t.Cleanup(wf.Close)
	return &portalClient{api: api, store: store, storage: storage, reports: coll, workflow: wf}
}

func (p *portalClient) signUp(t *testing.T, username string) {
	t.Helper()
	res, err := p.store.Register(context.Background(), validator.RegisterInput{
		Username: username, Email: username + "@example.test",
		Password: "secret123", ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	require.False(t, res.SignInRequired)
	require.True(t, p.store.State().Authenticated())
}

func startSandbox(t *testing.T, accessExpiry time.Duration) string {
	t.Helper()
	cfg := testConfig()
	cfg.SandboxAccessExpiry = accessExpiry
	sb := newTestSandbox(t, cfg)
	srv := httptest.NewServer(adaptor.FiberApp(sb.App))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPortalAgainstSandbox(t *testing.T) {
	ctx := context.Background()
	url := startSandbox(t, time.Minute)

	student := newPortalClient(t, url, session.NewMemoryStorage())
	student.signUp(t, "student1")
	me := student.store.User()

	created, err := student.workflow.CreateReport(ctx, validator.CreateReportInput{
		StudentID: me.ID, Location: "A", RoomNo: "12", Category: "pipping", Description: "Dripping tap",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, models.CategoryPiping, created.Category)

	admin := newPortalClient(t, url, session.NewMemoryStorage())
	admin.signUp(t, "admin")
	require.True(t, admin.store.User().IsAdmin())

	scope, ok := models.ScopeFor(admin.store.User())
	require.True(t, ok)
	require.NoError(t, admin.reports.Fetch(ctx, scope))
	require.Equal(t, 1, admin.reports.Len())

	require.NoError(t, admin.workflow.UpdateStatus(ctx, created.ID, models.StatusInProgress))
	got, ok := admin.reports.Get(created.ID)
	require.True(t, ok)
	require.Equal(t, models.StatusInProgress, got.Status)

	require.NoError(t, admin.workflow.AddComment(ctx, created.ID, "Plumber booked"))
	got, _ = admin.reports.Get(created.ID)
	require.Equal(t, "Plumber booked", got.Comment)

	own, ok := models.ScopeFor(me)
	require.True(t, ok)
	require.NoError(t, student.reports.Fetch(ctx, own))
	_, err = student.workflow.RequestDelete(created.ID)
	require.ErrorIs(t, err, workflow.ErrNotCancelable)

	_, err = admin.workflow.RequestDelete(created.ID)
	require.ErrorIs(t, err, workflow.ErrNotCancelable)

	require.NoError(t, admin.workflow.UpdateStatus(ctx, created.ID, models.StatusPending))
	_, err = admin.workflow.RequestDelete(created.ID)
	require.NoError(t, err)
	require.NoError(t, admin.workflow.ConfirmDelete(ctx))
	require.Equal(t, 0, admin.reports.Len())
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	ctx := context.Background()
	url := startSandbox(t, time.Second)

	admin := newPortalClient(t, url, session.NewMemoryStorage())
	admin.signUp(t, "admin")
	before := admin.store.AccessToken()

	// exp has second granularity
	time.Sleep(2100 * time.Millisecond)

	require.NoError(t, admin.reports.Fetch(ctx, models.ScopeAll))
	require.Empty(t, admin.reports.Err())
	require.NotEqual(t, before, admin.store.AccessToken())
	require.True(t, admin.store.State().Authenticated())
}

func TestRestoreRefreshesShortLivedToken(t *testing.T) {
	ctx := context.Background()
	url := startSandbox(t, time.Second)
	storage := session.NewMemoryStorage()

	first := newPortalClient(t, url, storage)
	first.signUp(t, "student1")

	// The default leeway treats a one second token as already expired.
	second := newPortalClient(t, url, storage)
	st := second.store.Restore(ctx)
	require.True(t, st.Authenticated())
	require.Equal(t, "student1", st.User.Username)

	restored, _ := storage.Get(session.KeyAccessToken)
	require.NotEmpty(t, restored)
	require.Equal(t, restored, second.store.AccessToken())
}

func TestRestoreAfterLogoutIsAnonymous(t *testing.T) {
	ctx := context.Background()
	url := startSandbox(t, time.Second)
	storage := session.NewMemoryStorage()

	first := newPortalClient(t, url, storage)
	first.signUp(t, "student1")
	first.store.Logout(ctx)

	second := newPortalClient(t, url, storage)
	require.Equal(t, session.StatusAnonymous, second.store.Restore(ctx).Status)
}
