package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ezfix/portal/internal/stats"
	"github.com/spf13/pflag"
)

func (a *App) statsCommand(ctx context.Context) *Command {
	var mine bool
	return &Command{
		Name:    "stats",
		Summary: "Show dashboard statistics",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("stats", pflag.ContinueOnError)
			fs.BoolVar(&mine, "mine", false, "only reports submitted by the signed-in user")
			return fs
		},
		Run: func(args []string) error {
			if err := a.load(ctx, mine); err != nil {
				return err
			}
			s := stats.Compute(a.reports.Items(), a.now())

			tw := newTable(a.stdout)
			fmt.Fprintf(tw, "Total\t%d\n", s.Total)
			fmt.Fprintf(tw, "Priority\t%d\n", s.Priority)
			fmt.Fprintf(tw, "Resolved\t%d\n", s.Resolved)
			fmt.Fprintf(tw, "This week\t%d\n", s.ThisWeek)
			fmt.Fprintf(tw, "Last week\t%d\n", s.LastWeek)
			fmt.Fprintf(tw, "Oldest pending (days)\t%d\n", s.OldestPendingDays)
			writeCounts(tw, "By status", s.Statuses())
			writeCounts(tw, "By damage type", s.Categories())
			writeCounts(tw, "By block", s.Locations())
			return tw.Flush()
		},
	}
}

func writeCounts(w io.Writer, title string, counts []stats.Count) {
	fmt.Fprintf(w, "\n%s\t\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %s\t%d\n", c.Label, c.N)
	}
}
