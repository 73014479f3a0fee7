package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/session"
	"github.com/ezfix/portal/internal/validator"
	"github.com/spf13/pflag"
)

func (a *App) profileCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "profile",
		Summary: "Edit the signed-in user's profile",
		Subcommands: []*Command{
			a.profileUpdateCommand(ctx),
			a.profileImageCommand(ctx),
			a.profileSetImageCommand(ctx),
		},
	}
}

func (a *App) profileUpdateCommand(ctx context.Context) *Command {
	var in validator.ProfileInput
	return &Command{
		Name:    "update",
		Summary: "Change username or email",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
			fs.StringVar(&in.Username, "username", "", "new username")
			fs.StringVar(&in.Email, "email", "", "new email")
			return fs
		},
		Run: func(args []string) error {
			if in.Username == "" && in.Email == "" {
				return errors.New("nothing to update; pass --username or --email")
			}
			if err := a.signedIn(ctx); err != nil {
				return err
			}
			u, err := a.store.UpdateProfile(ctx, in)
			if err != nil {
				return errors.New(session.Message(err))
			}
			fmt.Fprintf(a.stdout, "Profile updated: %s <%s>\n", u.Username, u.Email)
			return nil
		},
	}
}

func (a *App) profileImageCommand(ctx context.Context) *Command {
	var out string
	return &Command{
		Name:    "image",
		Summary: "Download the profile image",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("image", pflag.ContinueOnError)
			fs.StringVarP(&out, "out", "o", "", "output file (default profile plus extension)")
			return fs
		},
		Run: func(args []string) error {
			if err := a.signedIn(ctx); err != nil {
				return err
			}
			m, err := a.api.ProfileImage(ctx, a.store.User().ID)
			if err != nil {
				return errors.New(apiclient.Message(err, "Failed to load profile image."))
			}
			if out == "" {
				out = mediaFileName("profile", m.ContentType)
			}
			if err := os.WriteFile(out, m.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Saved profile image to %s\n", out)
			return nil
		},
	}
}

func (a *App) profileSetImageCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "set-image",
		Summary: "Upload a new profile image",
		Usage:   "portal profile set-image <file>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("usage: portal profile set-image <file>")
			}
			if err := a.signedIn(ctx); err != nil {
				return err
			}
			u, err := readUpload(args[0])
			if err != nil {
				return err
			}
			if err := a.api.UploadProfileImage(ctx, a.store.User().ID, u); err != nil {
				return errors.New(apiclient.Message(err, "Failed to upload profile image."))
			}
			fmt.Fprintln(a.stdout, "Profile image updated")
			return nil
		},
	}
}
