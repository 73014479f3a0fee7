package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient notification. It is dropped once ExpiresAt passes.
type Toast struct {
	ID        string
	Kind      ToastKind
	Message   string
	ReportID  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Notifier queues toasts and expires them after a fixed TTL.
type Notifier struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	toasts    []Toast
	listeners []func(Toast)
}

func NewNotifier(ttl time.Duration, now func() time.Time) *Notifier {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Notifier{ttl: ttl, now: now}
}

// Listen calls fn for every toast pushed from now on.
func (n *Notifier) Listen(fn func(Toast)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

func (n *Notifier) Success(msg, reportID string) Toast {
	return n.push(ToastSuccess, msg, reportID)
}

func (n *Notifier) Error(msg, reportID string) Toast {
	return n.push(ToastError, msg, reportID)
}

func (n *Notifier) push(kind ToastKind, msg, reportID string) Toast {
	at := n.now()
	t := Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   msg,
		ReportID:  reportID,
		CreatedAt: at,
		ExpiresAt: at.Add(n.ttl),
	}

	n.mu.Lock()
	n.toasts = append(n.prune(at), t)
	listeners := make([]func(Toast), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
	return t
}

// Active returns the toasts that have not expired yet, oldest first.
func (n *Notifier) Active() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = n.prune(n.now())
	out := make([]Toast, len(n.toasts))
	copy(out, n.toasts)
	return out
}

func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, t := range n.toasts {
		if t.ID == id {
			n.toasts = append(n.toasts[:i], n.toasts[i+1:]...)
			return
		}
	}
}

// prune must be called with n.mu held.
func (n *Notifier) prune(at time.Time) []Toast {
	kept := n.toasts[:0]
	for _, t := range n.toasts {
		if at.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	return kept
}
