package workflow

import (
	"context"
	"log/slog"

	"github.com/ezfix/portal/internal/models"
)

// Detail is the report currently open for inspection together with the
// attachments resolved for it.
type Detail struct {
	Report      models.Report
	Attachments []*Attachment
	// Failed maps file ids that could not be resolved to the reason.
	Failed map[string]string
}

// OpenDetail opens a report and resolves its attachments. Opening another
// report releases the previous one's attachments.
func (w *Workflow) OpenDetail(ctx context.Context, id string) (*Detail, error) {
	if w.closed() {
		return nil, ErrClosed
	}
	r, ok := w.reports.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	w.mu.Lock()
	previous := w.detail
	w.detail = &Detail{Report: r}
	w.mu.Unlock()
	if previous != nil && previous.Report.ID != id {
		for _, a := range previous.Attachments {
			w.attachments.Release(a.FileID)
		}
	}

	ctx, stop := w.bind(ctx)
	defer stop()

	d := &Detail{Report: r, Failed: make(map[string]string)}
	for _, fileID := range r.Attachments {
		a, err := w.attachments.Resolve(ctx, id, fileID)
		if err != nil {
			slog.Warn("attachment unavailable", "report_id", id, "file_id", fileID, "error", err)
			d.Failed[fileID] = failureMessage(err, "Failed to load attachment.")
			continue
		}
		d.Attachments = append(d.Attachments, a)
	}
	if w.closed() {
		w.attachments.ReleaseAll()
		return nil, ErrClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detail == nil || w.detail.Report.ID != id {
		// Closed or replaced while resolving.
		return d, nil
	}
	w.detail.Attachments = d.Attachments
	w.detail.Failed = d.Failed
	d.Report = w.detail.Report
	return d, nil
}

// Detail returns a copy of the open detail view.
func (w *Workflow) Detail() (Detail, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detail == nil {
		return Detail{}, false
	}
	d := *w.detail
	d.Attachments = append([]*Attachment(nil), w.detail.Attachments...)
	return d, true
}

// CloseDetail closes the detail view and releases every attachment.
func (w *Workflow) CloseDetail() {
	w.mu.Lock()
	w.detail = nil
	w.mu.Unlock()
	w.attachments.ReleaseAll()
}

// ResolveAttachment fetches one attachment on demand.
func (w *Workflow) ResolveAttachment(ctx context.Context, reportID, fileID string) (*Attachment, error) {
	if w.closed() {
		return nil, ErrClosed
	}
	ctx, stop := w.bind(ctx)
	defer stop()
	return w.attachments.Resolve(ctx, reportID, fileID)
}
