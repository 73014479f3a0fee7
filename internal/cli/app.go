package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/config"
	"github.com/ezfix/portal/internal/reports"
	"github.com/ezfix/portal/internal/session"
	"github.com/ezfix/portal/internal/workflow"
	"golang.org/x/term"
)

var errSignInRequired = errors.New("not signed in; run 'portal login' first")

// ErrShown marks a failure whose message already reached the user as an
// error toast.
var ErrShown = errors.New("failure already reported")

// App carries what every command needs: configuration, the terminal
// streams and, once connected, the session and workflow.
type App struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader
	tty    bool
	now    func() time.Time

	api      *apiclient.Client
	store    *session.Store
	reports  *reports.Collection
	workflow *workflow.Workflow
	board    *workflow.Board
	notifier *workflow.Notifier
	toasted  bool
}

type AppOption func(*App)

func WithStreams(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		a.stdin = bufio.NewReader(stdin)
		a.tty = false
		a.stdout = stdout
		a.stderr = stderr
	}
}

func WithClock(now func() time.Time) AppOption {
	return func(a *App) { a.now = now }
}

func NewApp(cfg *config.Config, opts ...AppOption) *App {
	a := &App{
		cfg:    cfg,
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  bufio.NewReader(os.Stdin),
		tty:    term.IsTerminal(int(os.Stdin.Fd())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// connect opens the session storage and builds the client stack. It does
// not restore the session.
func (a *App) connect() error {
	if a.store != nil {
		return nil
	}
	storage, err := session.OpenStorage(a.cfg)
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}

	a.api = apiclient.New(a.cfg.APIBaseURL, apiclient.WithTimeout(a.cfg.HTTPTimeout))
	a.store = session.NewStore(a.api, storage,
		session.WithClock(a.now),
		session.WithLeeway(a.cfg.RefreshLeeway))
	a.api.UseTokens(a.store)

	a.notifier = workflow.NewNotifier(a.cfg.ToastTTL, a.now)
	a.notifier.Listen(a.printToast)
	a.reports = reports.NewCollection(a.api)
	a.workflow = workflow.New(a.api, a.reports, a.store,
		workflow.WithNotifier(a.notifier),
		workflow.WithClock(a.now))
	a.board = workflow.NewBoard(a.api, a.notifier)
	return nil
}

// signedIn restores the stored session and fails unless it is
// authenticated.
func (a *App) signedIn(ctx context.Context) error {
	if err := a.connect(); err != nil {
		return err
	}
	st := a.store.Restore(ctx)
	switch st.Status {
	case session.StatusAuthenticated:
		return nil
	case session.StatusUnreachable:
		return errors.New(st.Error)
	}
	return errSignInRequired
}

// Close ends in-flight workflow operations.
func (a *App) Close() {
	if a.workflow != nil {
		a.workflow.Close()
	}
}

func (a *App) printToast(t workflow.Toast) {
	mark := "ok"
	if t.Kind == workflow.ToastError {
		mark = "error"
		a.toasted = true
	}
	fmt.Fprintf(a.stderr, "[%s] %s\n", mark, t.Message)
}

// result turns a workflow error into what the command returns: ErrShown
// when a toast already carried it, else the inline message for id.
func (a *App) result(id string, err error) error {
	if err == nil {
		return nil
	}
	if a.toasted {
		a.toasted = false
		return ErrShown
	}
	if msg := a.workflow.InlineError(id); msg != "" {
		return errors.New(msg)
	}
	return err
}

// confirm asks a yes/no question on stdin. Anything but y/yes is no.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.stderr, "%s [y/N] ", question)
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Run executes the command tree for args with a context bound to the
// lifetime of the process.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.Close()
	return a.Root(ctx).Execute(args, a.stderr)
}
