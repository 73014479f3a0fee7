package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ezfix/portal/internal/session"
	"github.com/ezfix/portal/internal/validator"
	"github.com/spf13/pflag"
)

func (a *App) loginCommand(ctx context.Context) *Command {
	var username, passwordFile string
	return &Command{
		Name:    "login",
		Summary: "Sign in and store the session",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
			fs.StringVarP(&username, "username", "u", "", "account username")
			fs.StringVar(&passwordFile, "password-file", "", "read the password from a file instead of prompting")
			return fs
		},
		Run: func(args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			if username == "" {
				username = a.readLine("Username: ")
			}
			password, err := a.readPassword(passwordFile, "Password: ")
			if err != nil {
				return err
			}

			if err := a.store.Login(ctx, validator.LoginInput{Username: username, Password: password}); err != nil {
				return errors.New(a.store.State().Error)
			}
			u := a.store.User()
			fmt.Fprintf(a.stdout, "Signed in as %s (%s)\n", u.Username, u.Role)
			return nil
		},
	}
}

func (a *App) registerCommand(ctx context.Context) *Command {
	var username, email, passwordFile string
	return &Command{
		Name:    "register",
		Summary: "Create an account",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
			fs.StringVarP(&username, "username", "u", "", "account username")
			fs.StringVar(&email, "email", "", "account email")
			fs.StringVar(&passwordFile, "password-file", "", "read the password from a file instead of prompting")
			return fs
		},
		Run: func(args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			password, err := a.readPassword(passwordFile, "Password: ")
			if err != nil {
				return err
			}
			confirm := password
			if passwordFile == "" {
				if confirm, err = a.readPassword("", "Confirm password: "); err != nil {
					return err
				}
			}

			res, err := a.store.Register(ctx, validator.RegisterInput{
				Username:        username,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return errors.New(a.store.State().Error)
			}
			if res.SignInRequired {
				fmt.Fprintln(a.stdout, "Account created. Run 'portal login' to sign in.")
				return nil
			}
			fmt.Fprintf(a.stdout, "Account created. Signed in as %s\n", a.store.User().Username)
			return nil
		},
	}
}

func (a *App) logoutCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "logout",
		Summary: "Sign out and forget the stored session",
		Run: func(args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			a.store.Restore(ctx)
			a.store.Logout(ctx)
			fmt.Fprintln(a.stdout, "Signed out")
			return nil
		},
	}
}

func (a *App) whoamiCommand(ctx context.Context) *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the signed-in user",
		Run: func(args []string) error {
			if err := a.connect(); err != nil {
				return err
			}
			st := a.store.Restore(ctx)
			switch st.Status {
			case session.StatusAuthenticated:
			case session.StatusUnreachable:
				if st.User == nil {
					return errors.New(st.Error)
				}
				fmt.Fprintf(a.stdout, "%s (offline: %s)\n", st.User.Username, st.Error)
				return nil
			default:
				return errSignInRequired
			}
			tw := newTable(a.stdout)
			fmt.Fprintf(tw, "ID\t%s\n", st.User.ID)
			fmt.Fprintf(tw, "Username\t%s\n", st.User.Username)
			fmt.Fprintf(tw, "Email\t%s\n", st.User.Email)
			fmt.Fprintf(tw, "Role\t%s\n", st.User.Role)
			return tw.Flush()
		},
	}
}
