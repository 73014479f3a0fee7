package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/reports"
	"github.com/ezfix/portal/internal/validator"
)

var (
	ErrBusy            = errors.New("another update on this report is in progress")
	ErrForbidden       = errors.New("not allowed for this account")
	ErrNotFound        = errors.New("report not found")
	ErrNotCancelable   = errors.New("report can no longer be cancelled")
	ErrNoPendingDelete = errors.New("no deletion awaiting confirmation")
	ErrSameStatus      = errors.New("report already has this status")
	ErrUnknownStatus   = errors.New("unknown status")
	ErrClosed          = errors.New("workflow closed")
)

const newReportKey = "new"

// API is the part of the backend the workflow mutates reports through.
type API interface {
	AttachmentFetcher
	PatchReport(ctx context.Context, id string, patch dto.ReportPatch) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error
	CreateReport(ctx context.Context, in dto.CreateReportRequest, files []apiclient.Upload) (*models.Report, error)
}

// Identity supplies the signed-in user for role checks.
type Identity interface {
	User() *models.User
}

type Option func(*Workflow)

func WithNotifier(n *Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// Workflow applies report mutations and reconciles the collection and the
// open detail view with what the backend confirmed. Mutations on the same
// report never overlap.
type Workflow struct {
	api         API
	reports     *reports.Collection
	who         Identity
	notifier    *Notifier
	attachments *AttachmentCache
	validate    *validator.Validator
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	busy          map[string]string
	inline        map[string]string
	pendingDelete string
	detail        *Detail
}

func New(api API, coll *reports.Collection, who Identity, opts ...Option) *Workflow {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workflow{
		api:         api,
		reports:     coll,
		who:         who,
		attachments: NewAttachmentCache(api),
		validate:    validator.New(),
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		busy:        make(map[string]string),
		inline:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.notifier == nil {
		w.notifier = NewNotifier(0, w.now)
	}
	coll.OnRefresh(w.attachments.ReleaseAll)
	return w
}

func (w *Workflow) Notifier() *Notifier {
	return w.notifier
}

func (w *Workflow) Attachments() *AttachmentCache {
	return w.attachments
}

// Busy reports whether a mutation on the report is in flight.
func (w *Workflow) Busy(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.busy[id]
	return ok
}

// InlineError is the last failure on a report; it is cleared by the next
// attempt.
func (w *Workflow) InlineError(id string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inline[id]
}

// Close cancels in-flight requests. Responses arriving afterwards are
// discarded without touching any state.
func (w *Workflow) Close() {
	w.cancel()
	w.mu.Lock()
	w.detail = nil
	w.pendingDelete = ""
	w.mu.Unlock()
	w.attachments.ReleaseAll()
}

func (w *Workflow) closed() bool {
	return w.ctx.Err() != nil
}

// operation is one guarded backend call. call returns the reconciliation
// to run if the workflow is still open when the response arrives.
type operation struct {
	reportID string
	action   string
	success  string
	failure  string
	call     func(ctx context.Context) (func(), error)
}

func (w *Workflow) run(ctx context.Context, op operation) error {
	if err := w.begin(op.reportID, op.action); err != nil {
		return err
	}
	defer w.end(op.reportID)

	ctx, stop := w.bind(ctx)
	defer stop()

	reconcile, err := op.call(ctx)
	if w.closed() {
		slog.Debug("discarding response after close", "report_id", op.reportID, "action", op.action)
		return ErrClosed
	}
	if err != nil {
		msg := failureMessage(err, op.failure)
		w.setInline(op.reportID, msg)
		w.notifier.Error(msg, op.reportID)
		logFailure(op, err)
		return fmt.Errorf("%s %s: %w", op.action, op.reportID, err)
	}

	if reconcile != nil {
		reconcile()
	}
	w.notifier.Success(op.success, op.reportID)
	slog.Info("report updated", "report_id", op.reportID, "action", op.action)
	return nil
}

func logFailure(op operation, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		slog.Warn("report update rejected", "report_id", op.reportID, "action", op.action, "error", err)
		return
	}
	slog.Error("report update failed", "report_id", op.reportID, "action", op.action, "error", err)
}

func (w *Workflow) begin(id, action string) error {
	if w.closed() {
		return ErrClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.busy[id]; ok {
		return ErrBusy
	}
	w.busy[id] = action
	delete(w.inline, id)
	return nil
}

func (w *Workflow) end(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.busy, id)
}

// bind derives a request context that is also cancelled by Close.
func (w *Workflow) bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(w.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// reject records a local failure that never reached the backend.
func (w *Workflow) reject(id string, err error, msg string) error {
	w.setInline(id, msg)
	return err
}

func (w *Workflow) setInline(id, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inline[id] = msg
}

func (w *Workflow) requireAdmin(id string) error {
	if !w.who.User().IsAdmin() {
		return w.reject(id, ErrForbidden, "Only administrators can update reports.")
	}
	return nil
}

func (w *Workflow) lookup(id string) (models.Report, error) {
	r, ok := w.reports.Get(id)
	if !ok {
		return r, w.reject(id, ErrNotFound, "Report not found.")
	}
	return r, nil
}

// UpdateStatus moves a report to target once the backend confirms it.
func (w *Workflow) UpdateStatus(ctx context.Context, id string, target models.Status) error {
	if err := w.requireAdmin(id); err != nil {
		return err
	}
	current, err := w.lookup(id)
	if err != nil {
		return err
	}
	target = models.ParseStatus(string(target))
	if !target.Known() {
		return w.reject(id, ErrUnknownStatus, "Please choose a valid status.")
	}
	if current.Status == target {
		return ErrSameStatus
	}
	if !current.Status.CanTransitionTo(target) {
		slog.Debug("status change outside suggested transitions", "report_id", id, "from", current.Status, "to", target)
	}

	patch := dto.ReportPatch{Status: &target}
	return w.run(ctx, operation{
		reportID: id,
		action:   "update_status",
		success:  "Status updated successfully!",
		failure:  "Failed to update status.",
		call: func(ctx context.Context) (func(), error) {
			confirmed, err := w.api.PatchReport(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			return func() {
				w.reconcile(id, patch, confirmed, func(r *models.Report) {
					r.Status = confirmed.Status
				})
			}, nil
		},
	})
}

// UpdatePriority sets the priority flag and re-pins flagged reports.
func (w *Workflow) UpdatePriority(ctx context.Context, id string, flagged bool) error {
	if err := w.requireAdmin(id); err != nil {
		return err
	}
	if _, err := w.lookup(id); err != nil {
		return err
	}

	patch := dto.ReportPatch{Priority: &flagged}
	success := "Report marked as priority."
	if !flagged {
		success = "Priority flag removed."
	}
	return w.run(ctx, operation{
		reportID: id,
		action:   "update_priority",
		success:  success,
		failure:  "Failed to update priority.",
		call: func(ctx context.Context) (func(), error) {
			confirmed, err := w.api.PatchReport(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			return func() {
				w.reconcile(id, patch, confirmed, func(r *models.Report) {
					r.Priority = confirmed.Priority
				})
				w.reports.PinFlagged()
			}, nil
		},
	})
}

// AddComment overwrites the report's comment and reloads the whole list.
func (w *Workflow) AddComment(ctx context.Context, id, text string) error {
	if err := w.validate.Struct(validator.CommentInput{Text: text}); err != nil {
		return w.reject(id, err, "Comment cannot be empty.")
	}
	if err := w.requireAdmin(id); err != nil {
		return err
	}
	if _, err := w.lookup(id); err != nil {
		return err
	}

	comment := strings.TrimSpace(text)
	return w.run(ctx, operation{
		reportID: id,
		action:   "add_comment",
		success:  "Comment added successfully!",
		failure:  "Failed to add comment.",
		call: func(ctx context.Context) (func(), error) {
			if _, err := w.api.PatchReport(ctx, id, dto.ReportPatch{Comment: &comment}); err != nil {
				return nil, err
			}
			return func() {
				if err := w.reports.Refetch(ctx); err != nil {
					slog.Warn("refresh after comment failed", "report_id", id, "error", err)
				}
				w.syncDetail()
			}, nil
		},
	})
}

// reconcile writes the confirmed change into the collection. Without an
// echoed record the confirmed patch is applied as sent.
func (w *Workflow) reconcile(id string, patch dto.ReportPatch, confirmed *models.Report, fromServer func(*models.Report)) {
	at := w.now()
	updated, ok := w.reports.Update(id, func(r *models.Report) {
		if confirmed == nil {
			patch.Apply(r)
			r.UpdatedAt = at
			return
		}
		fromServer(r)
		if !confirmed.UpdatedAt.IsZero() {
			r.UpdatedAt = confirmed.UpdatedAt
		} else {
			r.UpdatedAt = at
		}
	})
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detail != nil && w.detail.Report.ID == id {
		w.detail.Report = updated
	}
}

func (w *Workflow) syncDetail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detail == nil {
		return
	}
	if r, ok := w.reports.Get(w.detail.Report.ID); ok {
		w.detail.Report = r
	}
}

func (w *Workflow) canDelete(u *models.User, r models.Report) bool {
	if u.IsAdmin() {
		return true
	}
	if !u.Valid() {
		return false
	}
	return r.StudentID == u.ID || (r.ReportedBy != "" && strings.EqualFold(r.ReportedBy, u.Username))
}

// RequestDelete opens the confirmation step for deleting a report. Nothing
// is sent until ConfirmDelete.
func (w *Workflow) RequestDelete(id string) (models.Report, error) {
	r, err := w.lookup(id)
	if err != nil {
		return r, err
	}
	if !w.canDelete(w.who.User(), r) {
		return r, w.reject(id, ErrForbidden, "You can only cancel your own reports.")
	}
	if !r.Status.Cancelable() {
		return r, w.reject(id, ErrNotCancelable, fmt.Sprintf("Reports that are %s can no longer be cancelled.", r.Status))
	}

	w.mu.Lock()
	w.pendingDelete = id
	w.mu.Unlock()
	return r, nil
}

func (w *Workflow) PendingDelete() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pendingDelete
}

func (w *Workflow) CancelDelete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingDelete = ""
}

// ConfirmDelete deletes the report awaiting confirmation. The confirmation
// survives ErrBusy and is consumed once the request is issued.
func (w *Workflow) ConfirmDelete(ctx context.Context) error {
	id := w.PendingDelete()
	if id == "" {
		return ErrNoPendingDelete
	}

	r, err := w.lookup(id)
	if err != nil {
		w.dropPendingDelete(id)
		return err
	}
	if !r.Status.Cancelable() {
		w.dropPendingDelete(id)
		return w.reject(id, ErrNotCancelable, fmt.Sprintf("Reports that are %s can no longer be cancelled.", r.Status))
	}

	return w.run(ctx, operation{
		reportID: id,
		action:   "delete",
		success:  "Report deleted successfully!",
		failure:  "Failed to delete report.",
		call: func(ctx context.Context) (func(), error) {
			w.dropPendingDelete(id)
			if err := w.api.DeleteReport(ctx, id); err != nil {
				return nil, err
			}
			return func() {
				w.reports.Remove(id)
				w.mu.Lock()
				open := w.detail != nil && w.detail.Report.ID == id
				w.mu.Unlock()
				if open {
					w.CloseDetail()
				}
			}, nil
		},
	})
}

func (w *Workflow) dropPendingDelete(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pendingDelete == id {
		w.pendingDelete = ""
	}
}

// CreateReport validates and submits a new report.
func (w *Workflow) CreateReport(ctx context.Context, in validator.CreateReportInput, files []apiclient.Upload) (*models.Report, error) {
	if err := w.validate.Struct(in); err != nil {
		return nil, w.reject(newReportKey, err, err.Error())
	}

	req := dto.CreateReportRequest{
		StudentID:   strings.TrimSpace(in.StudentID),
		Title:       strings.TrimSpace(in.Title),
		Location:    strings.TrimSpace(in.Location),
		RoomNo:      strings.TrimSpace(in.RoomNo),
		Category:    string(models.ParseCategory(in.Category)),
		Description: strings.TrimSpace(in.Description),
	}
	if u := w.who.User(); u != nil {
		req.ReportedBy = u.Username
	}

	var created *models.Report
	err := w.run(ctx, operation{
		reportID: newReportKey,
		action:   "create",
		success:  "Report submitted successfully!",
		failure:  "Failed to submit report.",
		call: func(ctx context.Context) (func(), error) {
			r, err := w.api.CreateReport(ctx, req, files)
			if err != nil {
				return nil, err
			}
			if r == nil {
				return func() {
					if err := w.reports.Refetch(ctx); err != nil {
						slog.Warn("refresh after create failed", "error", err)
					}
				}, nil
			}
			created = r
			return func() { w.reports.Add(*r) }, nil
		},
	})
	return created, err
}

// MenuItem is one entry of the status menu.
type MenuItem struct {
	Status    models.Status
	Current   bool
	Enabled   bool
	Suggested bool
}

// StatusMenu lists every status for a report. The current status is shown
// but cannot be selected; nothing is selectable while the report is busy.
func (w *Workflow) StatusMenu(id string) ([]MenuItem, error) {
	r, ok := w.reports.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	admin := w.who.User().IsAdmin()
	busy := w.Busy(id)

	items := make([]MenuItem, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		current := s == r.Status
		items = append(items, MenuItem{
			Status:    s,
			Current:   current,
			Enabled:   admin && !busy && !current,
			Suggested: r.Status.CanTransitionTo(s),
		})
	}
	return items, nil
}

func failureMessage(err error, fallback string) string {
	if apiclient.IsUnreachable(err) {
		return fallback + " Unable to reach the server."
	}
	return apiclient.Message(err, fallback)
}
