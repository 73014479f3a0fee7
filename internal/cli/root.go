package cli

import "context"

// Root builds the portal command tree. ctx bounds every backend call.
func (a *App) Root(ctx context.Context) *Command {
	return &Command{
		Name:    "portal",
		Summary: "ezfix maintenance portal",
		Subcommands: []*Command{
			a.loginCommand(ctx),
			a.registerCommand(ctx),
			a.logoutCommand(ctx),
			a.whoamiCommand(ctx),
			a.reportsCommand(ctx),
			a.statsCommand(ctx),
			a.announcementsCommand(ctx),
			a.profileCommand(ctx),
			a.serveCommand(ctx),
		},
	}
}
