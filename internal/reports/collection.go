package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/models"
)

const (
	msgLoadFailed  = "Failed to load reports."
	msgUnreachable = "Unable to reach the server. Please check your connection."
)

// Source lists the reports visible in a scope.
type Source interface {
	ListReports(ctx context.Context, scope models.Scope) ([]models.Report, error)
}

// Collection owns the in-memory report list of one scope. Only Fetch and
// the reconciliation methods write to it.
type Collection struct {
	src Source

	mu      sync.RWMutex
	scope   models.Scope
	items   []models.Report
	err     string
	loading bool

	hooksMu sync.Mutex
	hooks   []func()
}

func NewCollection(src Source) *Collection {
	return &Collection{src: src}
}

// OnRefresh registers fn to run after every Fetch, successful or not.
func (c *Collection) OnRefresh(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Fetch loads the list for scope with a single request. On failure the
// list is emptied and Err holds the message to display; there is no retry.
func (c *Collection) Fetch(ctx context.Context, scope models.Scope) error {
	c.mu.Lock()
	c.scope = scope
	c.loading = true
	c.mu.Unlock()

	items, err := c.src.ListReports(ctx, scope)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.items = nil
		c.err = fetchMessage(err)
	} else {
		c.items = items
		c.err = ""
	}
	c.mu.Unlock()

	c.runHooks()

	if err != nil {
		slog.Warn("report fetch failed", "scope", scopeLabel(scope), "error", err)
		return fmt.Errorf("fetch reports: %w", err)
	}
	slog.Debug("reports fetched", "scope", scopeLabel(scope), "count", len(items))
	return nil
}

func (c *Collection) runHooks() {
	c.hooksMu.Lock()
	hooks := make([]func(), len(c.hooks))
	copy(hooks, c.hooks)
	c.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Refetch repeats the last Fetch.
func (c *Collection) Refetch(ctx context.Context) error {
	return c.Fetch(ctx, c.Scope())
}

func (c *Collection) Scope() models.Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

func (c *Collection) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Collection) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Items returns a copy of the unfiltered list.
func (c *Collection) Items() []models.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Report, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection) View(q Query) View {
	return DeriveView(c.Items(), q)
}

func (c *Collection) Get(id string) (models.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	return models.Report{}, false
}

// Replace swaps in r for the entry with the same id.
func (c *Collection) Replace(r models.Report) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(r.ID)
	if i < 0 {
		return false
	}
	c.items[i] = r
	return true
}

// Update applies fn to the entry with the given id and returns the result.
func (c *Collection) Update(id string, fn func(*models.Report)) (models.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return models.Report{}, false
	}
	fn(&c.items[i])
	return c.items[i], true
}

func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return true
}

// Add appends a newly created report.
func (c *Collection) Add(r models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, r)
}

// PinFlagged reorders the list so priority reports come first.
func (c *Collection) PinFlagged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = PinFlagged(c.items)
}

func (c *Collection) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func fetchMessage(err error) string {
	if apiclient.IsUnreachable(err) {
		return msgUnreachable
	}
	return apiclient.Message(err, msgLoadFailed)
}

func scopeLabel(s models.Scope) string {
	if s.All() {
		return "all"
	}
	return s.StudentID
}
