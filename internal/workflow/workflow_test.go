package workflow

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/reports"
	"github.com/ezfix/portal/internal/validator"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2026, 10, 3, 10, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu      sync.Mutex
	list    []models.Report
	patchFn func(ctx context.Context, id string, p dto.ReportPatch) (*models.Report, error)
	media   map[string]*apiclient.Media
	created *models.Report

	lists, patches, deletes, creates, fetches int
	lastPatch                                 dto.ReportPatch
}

func (f *fakeAPI) ListReports(context.Context, models.Scope) ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := make([]models.Report, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeAPI) PatchReport(ctx context.Context, id string, p dto.ReportPatch) (*models.Report, error) {
	f.mu.Lock()
	f.patches++
	f.lastPatch = p
	fn := f.patchFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, p)
	}
	return nil, nil
}

func (f *fakeAPI) DeleteReport(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakeAPI) CreateReport(context.Context, dto.CreateReportRequest, []apiclient.Upload) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return f.created, nil
}

func (f *fakeAPI) Attachment(_ context.Context, _, fileID string) (*apiclient.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	m, ok := f.media[fileID]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusNotFound, Message: "File not found"}
	}
	return m, nil
}

type who struct{ u *models.User }

func (w who) User() *models.User { return w.u }

var (
	admin   = &models.User{ID: "a1", Username: "warden", Role: models.RoleAdmin}
	student = &models.User{ID: "s1", Username: "nurul", Role: models.RoleUser}
)

func fixtures() []models.Report {
	return []models.Report{
		{ID: "r1", StudentID: "s1", ReportedBy: "nurul", Status: models.StatusPending, Attachments: []string{"f1", "f2"}},
		{ID: "r2", StudentID: "s2", Status: models.StatusFixed},
		{ID: "r3", StudentID: "s1", Status: models.StatusInProgress},
		{ID: "r4", StudentID: "s3", Status: models.StatusPending},
	}
}

func setup(t *testing.T, u *models.User) (*Workflow, *fakeAPI, *reports.Collection) {
	t.Helper()
	api := &fakeAPI{list: fixtures()}
	coll := reports.NewCollection(api)
	require.NoError(t, coll.Fetch(context.Background(), models.ScopeAll))
	now := func() time.Time { return clock }
	w := New(api, coll, who{u}, WithClock(now), WithNotifier(NewNotifier(3*time.Second, now)))
	t.Cleanup(w.Close)
	return w, api, coll
}

func TestUpdateStatusReconcilesOnlyTarget(t *testing.T) {
	w, api, coll := setup(t, admin)
	before := coll.Items()

	require.NoError(t, w.UpdateStatus(context.Background(), "r1", models.StatusFixed))

	require.Equal(t, 1, api.patches)
	require.Equal(t, models.StatusFixed, *api.lastPatch.Status)
	after := coll.Items()
	for i := range after {
		if after[i].ID == "r1" {
			require.Equal(t, models.StatusFixed, after[i].Status)
			require.Equal(t, clock, after[i].UpdatedAt)
			continue
		}
		require.Equal(t, before[i], after[i])
	}
	toasts := w.Notifier().Active()
	require.Len(t, toasts, 1)
	require.Equal(t, ToastSuccess, toasts[0].Kind)
}

func TestUpdateStatusUsesServerRecord(t *testing.T) {
	w, api, coll := setup(t, admin)
	stamp := clock.Add(-time.Minute)
	api.patchFn = func(_ context.Context, id string, _ dto.ReportPatch) (*models.Report, error) {
		return &models.Report{ID: id, Status: models.StatusInProgress, UpdatedAt: stamp}, nil
	}

	require.NoError(t, w.UpdateStatus(context.Background(), "r1", "ongoing"))

	r, _ := coll.Get("r1")
	require.Equal(t, models.StatusInProgress, r.Status)
	require.Equal(t, stamp, r.UpdatedAt)
	require.Equal(t, []string{"f1", "f2"}, r.Attachments)
}

func TestUpdateStatusFailureKeepsPriorState(t *testing.T) {
	w, api, coll := setup(t, admin)
	api.patchFn = func(context.Context, string, dto.ReportPatch) (*models.Report, error) {
		return nil, &apiclient.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid transition"}
	}

	err := w.UpdateStatus(context.Background(), "r2", models.StatusPending)

	require.True(t, apiclient.IsStatus(err, http.StatusBadRequest))
	r, _ := coll.Get("r2")
	require.Equal(t, models.StatusFixed, r.Status)
	require.Equal(t, "Invalid transition", w.InlineError("r2"))
	require.Equal(t, ToastError, w.Notifier().Active()[0].Kind)

	api.patchFn = nil
	require.NoError(t, w.UpdateStatus(context.Background(), "r2", models.StatusInProgress))
	require.Empty(t, w.InlineError("r2"))
}

func TestUpdateStatusGuards(t *testing.T) {
	w, api, _ := setup(t, student)
	require.ErrorIs(t, w.UpdateStatus(context.Background(), "r1", models.StatusFixed), ErrForbidden)

	w, api, _ = setup(t, admin)
	require.ErrorIs(t, w.UpdateStatus(context.Background(), "r1", models.StatusPending), ErrSameStatus)
	require.ErrorIs(t, w.UpdateStatus(context.Background(), "r1", "archived"), ErrUnknownStatus)
	require.ErrorIs(t, w.UpdateStatus(context.Background(), "nope", models.StatusFixed), ErrNotFound)
	require.Zero(t, api.patches)
}

func TestMutationsOnSameReportAreSequenced(t *testing.T) {
	w, api, _ := setup(t, admin)
	started := make(chan struct{})
	release := make(chan struct{})
	api.patchFn = func(context.Context, string, dto.ReportPatch) (*models.Report, error) {
		close(started)
		<-release
		return nil, nil
	}

	done := make(chan error, 1)
	go func() { done <- w.UpdateStatus(context.Background(), "r1", models.StatusFixed) }()
	<-started

	require.True(t, w.Busy("r1"))
	require.ErrorIs(t, w.UpdatePriority(context.Background(), "r1", true), ErrBusy)
	require.ErrorIs(t, w.AddComment(context.Background(), "r1", "on it"), ErrBusy)
	menu, err := w.StatusMenu("r1")
	require.NoError(t, err)
	for _, item := range menu {
		require.False(t, item.Enabled)
	}

	close(release)
	require.NoError(t, <-done)
	require.False(t, w.Busy("r1"))
	require.Equal(t, 1, api.patches)
}

func TestCloseCancelsAndSuppressesReconciliation(t *testing.T) {
	w, api, coll := setup(t, admin)
	started := make(chan struct{})
	api.patchFn = func(ctx context.Context, _ string, _ dto.ReportPatch) (*models.Report, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	done := make(chan error, 1)
	go func() { done <- w.UpdateStatus(context.Background(), "r1", models.StatusFixed) }()
	<-started
	w.Close()

	require.ErrorIs(t, <-done, ErrClosed)
	r, _ := coll.Get("r1")
	require.Equal(t, models.StatusPending, r.Status)
	require.Empty(t, w.Notifier().Active())
	require.ErrorIs(t, w.UpdatePriority(context.Background(), "r2", true), ErrClosed)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	w, api, coll := setup(t, admin)

	r, err := w.RequestDelete("r4")
	require.NoError(t, err)
	require.Equal(t, "r4", r.ID)
	require.Zero(t, api.deletes)

	require.NoError(t, w.ConfirmDelete(context.Background()))
	require.Equal(t, 1, api.deletes)
	require.Equal(t, 3, coll.Len())
	_, ok := coll.Get("r4")
	require.False(t, ok)
}

func TestBusyDeleteKeepsConfirmation(t *testing.T) {
	w, api, coll := setup(t, admin)
	started := make(chan struct{})
	release := make(chan struct{})
	api.patchFn = func(context.Context, string, dto.ReportPatch) (*models.Report, error) {
		close(started)
		<-release
		return nil, nil
	}

	done := make(chan error, 1)
	go func() { done <- w.UpdatePriority(context.Background(), "r4", true) }()
	<-started

	_, err := w.RequestDelete("r4")
	require.NoError(t, err)
	require.ErrorIs(t, w.ConfirmDelete(context.Background()), ErrBusy)
	require.Equal(t, "r4", w.PendingDelete())
	require.Zero(t, api.deletes)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, w.ConfirmDelete(context.Background()))
	require.Empty(t, w.PendingDelete())
	require.Equal(t, 1, api.deletes)
	_, ok := coll.Get("r4")
	require.False(t, ok)
}

func TestDeleteOfResolvedReportNeverHitsBackend(t *testing.T) {
	w, api, coll := setup(t, admin)

	_, err := w.RequestDelete("r2")
	require.ErrorIs(t, err, ErrNotCancelable)
	require.NotEmpty(t, w.InlineError("r2"))
	require.ErrorIs(t, w.ConfirmDelete(context.Background()), ErrNoPendingDelete)
	require.Zero(t, api.deletes)
	require.Equal(t, 4, coll.Len())
}

func TestCancelDelete(t *testing.T) {
	w, api, _ := setup(t, admin)
	_, err := w.RequestDelete("r1")
	require.NoError(t, err)
	w.CancelDelete()
	require.ErrorIs(t, w.ConfirmDelete(context.Background()), ErrNoPendingDelete)
	require.Zero(t, api.deletes)
}

func TestSubmitterMayDeleteOwnPendingReport(t *testing.T) {
	w, _, _ := setup(t, student)
	_, err := w.RequestDelete("r4")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = w.RequestDelete("r1")
	require.NoError(t, err)
	require.NoError(t, w.ConfirmDelete(context.Background()))
}

func TestBlankCommentIsRejectedLocally(t *testing.T) {
	w, api, _ := setup(t, admin)

	err := w.AddComment(context.Background(), "r1", "   ")

	var ve validator.ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Zero(t, api.patches)
	require.Equal(t, "Comment cannot be empty.", w.InlineError("r1"))
}

func TestAddCommentRefetchesList(t *testing.T) {
	w, api, coll := setup(t, admin)
	api.patchFn = func(_ context.Context, id string, p dto.ReportPatch) (*models.Report, error) {
		api.list[0].Comment = *p.Comment
		return nil, nil
	}

	require.NoError(t, w.AddComment(context.Background(), "r1", "  Technician booked for Monday "))

	require.Equal(t, "Technician booked for Monday", *api.lastPatch.Comment)
	require.Equal(t, 2, api.lists)
	r, _ := coll.Get("r1")
	require.Equal(t, "Technician booked for Monday", r.Comment)
}

func TestUpdatePriorityPinsFlagged(t *testing.T) {
	w, _, coll := setup(t, admin)

	require.NoError(t, w.UpdatePriority(context.Background(), "r3", true))

	items := coll.Items()
	require.Equal(t, "r3", items[0].ID)
	require.True(t, items[0].Priority)
	require.Equal(t, []string{"r1", "r2", "r4"}, []string{items[1].ID, items[2].ID, items[3].ID})
}

func TestStatusMenu(t *testing.T) {
	w, _, _ := setup(t, admin)
	menu, err := w.StatusMenu("r2")
	require.NoError(t, err)
	require.Len(t, menu, len(models.Statuses))
	for _, item := range menu {
		if item.Status == models.StatusFixed {
			require.True(t, item.Current)
			require.False(t, item.Enabled)
			continue
		}
		require.True(t, item.Enabled)
		require.Equal(t, item.Status == models.StatusInProgress, item.Suggested)
	}

	w, _, _ = setup(t, student)
	menu, err = w.StatusMenu("r2")
	require.NoError(t, err)
	for _, item := range menu {
		require.False(t, item.Enabled)
	}
}

func TestCreateReport(t *testing.T) {
	w, api, coll := setup(t, student)

	_, err := w.CreateReport(context.Background(), validator.CreateReportInput{StudentID: "s1"}, nil)
	var ve validator.ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Zero(t, api.creates)

	api.created = &models.Report{ID: "r9", StudentID: "s1", Status: models.StatusPending}
	r, err := w.CreateReport(context.Background(), validator.CreateReportInput{
		StudentID: "s1", Location: "B12", RoomNo: "3-04", Category: "pipping", Description: "Leaking sink",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "r9", r.ID)
	require.Equal(t, 5, coll.Len())
}
