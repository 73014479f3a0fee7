package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/export"
	"github.com/ezfix/portal/internal/models"
	"github.com/ezfix/portal/internal/reports"
	"github.com/ezfix/portal/internal/validator"
	"github.com/ezfix/portal/internal/workflow"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/pflag"
)

// queryFlags are the table controls shared by list and export.
type queryFlags struct {
	sort, order, search, field, category, status string
	page, pageSize                               int
	mine                                         bool
}

func (q *queryFlags) register(fs *pflag.FlagSet, pageSize int) {
	fs.StringVar(&q.sort, "sort", "", `column to sort by, e.g. "Name", "Block No.", "Date"`)
	fs.StringVar(&q.order, "order", "asc", "sort direction: asc or desc")
	fs.StringVar(&q.search, "search", "", "case-insensitive substring to search for")
	fs.StringVar(&q.field, "field", "Name", "column the search applies to")
	fs.StringVar(&q.category, "category", reports.FilterAll, `damage type filter, "all" or "other"`)
	fs.StringVar(&q.status, "status", "", "status filter")
	fs.IntVar(&q.page, "page", 1, "page number")
	fs.IntVar(&q.pageSize, "page-size", pageSize, "rows per page, 0 for all")
	fs.BoolVar(&q.mine, "mine", false, "only reports submitted by the signed-in user")
}

func (q *queryFlags) query() (reports.Query, error) {
	out := reports.Query{
		Direction: reports.ParseDirection(q.order),
		Search:    q.search,
		Category:  q.category,
		Page:      q.page,
		PageSize:  q.pageSize,
	}
	if q.sort != "" {
		k, ok := reports.ParseSortKey(q.sort)
		if !ok {
			return out, fmt.Errorf("unknown sort column %q", q.sort)
		}
		out.SortKey = k
	}
	if q.search != "" {
		k, ok := reports.ParseSortKey(q.field)
		if !ok {
			return out, fmt.Errorf("unknown search column %q", q.field)
		}
		out.SearchField = k
	}
	if q.status != "" {
		st := models.ParseStatus(q.status)
		if !st.Known() {
			return out, fmt.Errorf("unknown status %q", q.status)
		}
		out.Status = st
	}
	return out, nil
}

// load signs in and fetches the reports visible to the user.
func (a *App) load(ctx context.Context, mine bool) error {
	if err := a.signedIn(ctx); err != nil {
		return err
	}
	u := a.store.User()
	scope, ok := models.ScopeFor(u)
	if !ok {
		return errors.New("the signed-in user has no id")
	}
	if mine {
		scope = models.ScopeOwn(u.ID)
	}
	if err := a.reports.Fetch(ctx, scope); err != nil {
		return errors.New(a.reports.Err())
	}
	return nil
}

func (a *App) reportsCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "reports",
		Summary: "List, inspect and triage maintenance reports",
		Subcommands: []*Command{
			a.reportsListCommand(ctx),
			a.reportsShowCommand(ctx),
			a.reportsCreateCommand(ctx),
			a.reportsStatusCommand(ctx),
			a.reportsPriorityCommand(ctx),
			a.reportsCommentCommand(ctx),
			a.reportsDeleteCommand(ctx),
			a.reportsExportCommand(ctx),
		},
	}
}

func (a *App) reportsListCommand(ctx context.Context) *Command {
	var q queryFlags
	return &Command{
		Name:    "list",
		Summary: "Show the report table",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
			q.register(fs, a.cfg.PageSize)
			return fs
		},
		Run: func(args []string) error {
			query, err := q.query()
			if err != nil {
				return err
			}
			if err := a.load(ctx, q.mine); err != nil {
				return err
			}
			view := a.reports.View(query)
			a.printReports(view)
			return nil
		},
	}
}

func (a *App) printReports(view reports.View) {
	if view.Total == 0 {
		fmt.Fprintln(a.stdout, "No reports found.")
		return
	}
	now := a.now()
	tw := newTable(a.stdout)
	fmt.Fprintln(tw, "ID\t!\tNAME\tBLOCK NO.\tROOM NO.\tDAMAGE TYPE\tSTATUS\tDATE\tDAYS")
	for _, r := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, priorityMark(r), orDash(r.ReportedBy), r.Location, r.RoomNo,
			r.Category, r.Status, formatDate(r.CreatedAt), reports.DaysElapsed(r, now))
	}
	tw.Flush()
	fmt.Fprintf(a.stdout, "Page %d of %d (%d reports)\n", view.Page, view.Pages, view.Total)
}

func (a *App) reportsShowCommand(ctx context.Context) *Command {
	var saveDir string
	return &Command{
		Name:    "show",
		Summary: "Show one report with its attachments",
		Usage:   "portal reports show <id> [--save-dir DIR]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
			fs.StringVar(&saveDir, "save-dir", "", "write resolved attachments to this directory")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: portal reports show <id>")
			}
			if err := a.load(ctx, false); err != nil {
				return err
			}
			d, err := a.workflow.OpenDetail(ctx, args[0])
			if err != nil {
				return a.result(args[0], err)
			}
			defer a.workflow.CloseDetail()

			a.printDetail(d)
			if saveDir != "" {
				return saveAttachments(saveDir, d.Attachments)
			}
			return nil
		},
	}
}

func (a *App) printDetail(d *workflow.Detail) {
	r := d.Report
	tw := newTable(a.stdout)
	fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	fmt.Fprintf(tw, "Title\t%s\n", orDash(r.Title))
	fmt.Fprintf(tw, "Name\t%s\n", orDash(r.ReportedBy))
	fmt.Fprintf(tw, "Student ID\t%s\n", r.StudentID)
	fmt.Fprintf(tw, "Block No.\t%s\n", r.Location)
	fmt.Fprintf(tw, "Room No.\t%s\n", r.RoomNo)
	fmt.Fprintf(tw, "Damage Type\t%s\n", r.Category)
	fmt.Fprintf(tw, "Status\t%s\n", r.Status)
	fmt.Fprintf(tw, "Priority\t%t\n", r.Priority)
	fmt.Fprintf(tw, "Date\t%s\n", formatDate(r.CreatedAt))
	fmt.Fprintf(tw, "Days Elapsed\t%d\n", reports.DaysElapsed(r, a.now()))
	fmt.Fprintf(tw, "Description\t%s\n", r.Description)
	fmt.Fprintf(tw, "Comment\t%s\n", orDash(r.Comment))
	tw.Flush()

	if len(r.Attachments) == 0 {
		return
	}
	fmt.Fprintln(a.stdout, "\nAttachments:")
	for _, att := range d.Attachments {
		fmt.Fprintf(a.stdout, "  %s  %s  %s  %d bytes\n", att.FileID, att.Kind, att.ContentType, len(att.Data))
	}
	for id, reason := range d.Failed {
		fmt.Fprintf(a.stdout, "  %s  unavailable: %s\n", id, reason)
	}
}

func saveAttachments(dir string, atts []*workflow.Attachment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, att := range atts {
		name := mediaFileName(att.FileID, att.ContentType)
		if err := os.WriteFile(filepath.Join(dir, name), att.Data, 0o644); err != nil {
			return fmt.Errorf("save %s: %w", att.FileID, err)
		}
	}
	return nil
}

func mediaFileName(id, contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	if mt := mimetype.Lookup(strings.TrimSpace(base)); mt != nil {
		return id + mt.Extension()
	}
	return id
}

func (a *App) reportsCreateCommand(ctx context.Context) *Command {
	var (
		in      validator.CreateReportInput
		attachs []string
	)
	return &Command{
		Name:    "create",
		Summary: "Submit a new report",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
			fs.StringVar(&in.Title, "title", "", "short title")
			fs.StringVar(&in.Location, "block", "", "block (location)")
			fs.StringVar(&in.RoomNo, "room", "", "room number")
			fs.StringVar(&in.Category, "category", "", "damage type")
			fs.StringVar(&in.Description, "description", "", "what is wrong")
			fs.StringArrayVar(&attachs, "attach", nil, "file to attach (repeatable)")
			return fs
		},
		Run: func(args []string) error {
			if err := a.signedIn(ctx); err != nil {
				return err
			}
			in.StudentID = a.store.User().ID

			files := make([]apiclient.Upload, 0, len(attachs))
			for _, path := range attachs {
				u, err := readUpload(path)
				if err != nil {
					return err
				}
				u.Field = "attachments"
				files = append(files, u)
			}

			r, err := a.workflow.CreateReport(ctx, in, files)
			if err != nil {
				return a.result("new", err)
			}
			if r != nil {
				fmt.Fprintf(a.stdout, "Created report %s\n", r.ID)
			}
			return nil
		},
	}
}

func readUpload(path string) (apiclient.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return apiclient.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return apiclient.Upload{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func (a *App) reportsStatusCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "status",
		Summary: "Change a report's status, or list the choices",
		Usage:   "portal reports status <id> [Pending|In Progress|Fixed|Rejected]",
		Run: func(args []string) error {
			if len(args) < 1 {
				return errors.New("usage: portal reports status <id> [status]")
			}
			id := args[0]
			if err := a.load(ctx, false); err != nil {
				return err
			}

			if len(args) == 1 {
				items, err := a.workflow.StatusMenu(id)
				if err != nil {
					return err
				}
				for _, it := range items {
					mark := " "
					switch {
					case it.Current:
						mark = "*"
					case it.Suggested:
						mark = ">"
					}
					state := ""
					if !it.Enabled {
						state = " (unavailable)"
					}
					fmt.Fprintf(a.stdout, "%s %s%s\n", mark, it.Status, state)
				}
				return nil
			}

			target := models.ParseStatus(strings.Join(args[1:], " "))
			err := a.workflow.UpdateStatus(ctx, id, target)
			if errors.Is(err, workflow.ErrSameStatus) {
				fmt.Fprintf(a.stdout, "Report %s is already %s\n", id, target)
				return nil
			}
			return a.result(id, err)
		},
	}
}

func (a *App) reportsPriorityCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "priority",
		Summary: "Flag or unflag a report as priority",
		Usage:   "portal reports priority <id> on|off",
		Run: func(args []string) error {
			if len(args) != 2 {
				return errors.New("usage: portal reports priority <id> on|off")
			}
			var flagged bool
			switch strings.ToLower(args[1]) {
			case "on", "true", "yes":
				flagged = true
			case "off", "false", "no":
			default:
				return fmt.Errorf("priority must be on or off, got %q", args[1])
			}
			if err := a.load(ctx, false); err != nil {
				return err
			}
			return a.result(args[0], a.workflow.UpdatePriority(ctx, args[0], flagged))
		},
	}
}

func (a *App) reportsCommentCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "comment",
		Summary: "Add an administrator comment to a report",
		Usage:   "portal reports comment <id> <text...>",
		Run: func(args []string) error {
			if len(args) < 1 {
				return errors.New("usage: portal reports comment <id> <text...>")
			}
			if err := a.load(ctx, false); err != nil {
				return err
			}
			return a.result(args[0], a.workflow.AddComment(ctx, args[0], strings.Join(args[1:], " ")))
		},
	}
}

func (a *App) reportsDeleteCommand(ctx context.Context) *Command {
	var yes bool
	return &Command{
		Name:    "delete",
		Summary: "Delete or cancel a report",
		Usage:   "portal reports delete <id> [--yes]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			fs.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: portal reports delete <id>")
			}
			id := args[0]
			if err := a.load(ctx, false); err != nil {
				return err
			}
			r, err := a.workflow.RequestDelete(id)
			if err != nil {
				return a.result(id, err)
			}
			if !yes && !a.confirm(fmt.Sprintf("Delete report %s (%s, room %s)?", r.ID, r.Category, r.RoomNo)) {
				a.workflow.CancelDelete()
				fmt.Fprintln(a.stdout, "Cancelled")
				return nil
			}
			return a.result(id, a.workflow.ConfirmDelete(ctx))
		},
	}
}

func (a *App) reportsExportCommand(ctx context.Context) *Command {
	var (
		q   queryFlags
		out string
	)
	return &Command{
		Name:    "export",
		Summary: "Write the report table to an XLSX workbook",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
			q.register(fs, 0)
			fs.StringVarP(&out, "out", "o", "reports.xlsx", "output file")
			return fs
		},
		Run: func(args []string) error {
			query, err := q.query()
			if err != nil {
				return err
			}
			if err := a.load(ctx, q.mine); err != nil {
				return err
			}
			view := a.reports.View(query)

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteReports(f, view.Items, a.now()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %d reports to %s\n", len(view.Items), out)
			return nil
		},
	}
}
