package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/workflow"
	"github.com/spf13/pflag"
)

func (a *App) announcementsCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "announcements",
		Summary: "Read and manage announcements",
		Subcommands: []*Command{
			a.announcementsListCommand(ctx),
			a.announcementsPostCommand(ctx),
			a.announcementsImageCommand(ctx),
			a.announcementsDeleteCommand(ctx),
		},
	}
}

// openBoard connects and restores a session when one is stored. Listing works
// anonymously.
func (a *App) openBoard(ctx context.Context) error {
	if err := a.connect(); err != nil {
		return err
	}
	a.store.Restore(ctx)
	return nil
}

func (a *App) announcementsListCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "list",
		Summary: "List announcements, newest first",
		Run: func(args []string) error {
			if err := a.openBoard(ctx); err != nil {
				return err
			}
			items, err := a.board.List(ctx)
			if err != nil {
				return errors.New(apiclient.Message(err, "Failed to load announcements."))
			}
			if len(items) == 0 {
				fmt.Fprintln(a.stdout, "No announcements.")
				return nil
			}
			tw := newTable(a.stdout)
			fmt.Fprintln(tw, "ID\tDATE\tTITLE\tDESCRIPTION")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, formatDate(it.CreatedAt), it.Title, it.Description)
			}
			return tw.Flush()
		},
	}
}

func (a *App) announcementsPostCommand(ctx context.Context) *Command {
	var title, description, image string
	return &Command{
		Name:    "post",
		Summary: "Publish an announcement",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("post", pflag.ContinueOnError)
			fs.StringVar(&title, "title", "", "announcement title")
			fs.StringVar(&description, "description", "", "announcement text")
			fs.StringVar(&image, "image", "", "image file")
			return fs
		},
		Run: func(args []string) error {
			if err := a.signedIn(ctx); err != nil {
				return err
			}
			var upload apiclient.Upload
			if image != "" {
				u, err := readUpload(image)
				if err != nil {
					return err
				}
				upload = u
			}
			posted, err := a.board.Post(ctx, title, description, upload)
			if errors.Is(err, workflow.ErrIncomplete) {
				return errors.New(workflow.MsgIncomplete)
			}
			if err != nil {
				return a.result("", err)
			}
			if posted != nil {
				fmt.Fprintf(a.stdout, "Posted announcement %s\n", posted.ID)
			}
			return nil
		},
	}
}

func (a *App) announcementsImageCommand(ctx context.Context) *Command {
	var out string
	return &Command{
		Name:    "image",
		Summary: "Download an announcement's image",
		Usage:   "portal announcements image <id> [--out FILE]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("image", pflag.ContinueOnError)
			fs.StringVarP(&out, "out", "o", "", "output file (default <id> plus extension)")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: portal announcements image <id>")
			}
			if err := a.openBoard(ctx); err != nil {
				return err
			}
			img, err := a.board.Image(ctx, args[0])
			if err != nil {
				return errors.New(apiclient.Message(err, "Failed to load image."))
			}
			if out == "" {
				out = mediaFileName(args[0], img.ContentType)
			}
			if err := os.WriteFile(out, img.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Saved %s image (%d bytes) to %s\n", img.Kind, len(img.Data), out)
			return nil
		},
	}
}

func (a *App) announcementsDeleteCommand(ctx context.Context) *Command {
	var yes bool
	return &Command{
		Name:    "delete",
		Summary: "Delete an announcement",
		Usage:   "portal announcements delete <id> [--yes]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			fs.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: portal announcements delete <id>")
			}
			if err := a.signedIn(ctx); err != nil {
				return err
			}
			if !yes && !a.confirm(fmt.Sprintf("Delete announcement %s?", args[0])) {
				fmt.Fprintln(a.stdout, "Cancelled")
				return nil
			}
			return a.result("", a.board.Delete(ctx, args[0]))
		},
	}
}
