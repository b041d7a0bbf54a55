package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/example/cafebook/internal/booking"
	"github.com/example/cafebook/internal/runs"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
	}
	cmd.AddCommand(newRunsListCmd(opts))
	return cmd
}

func newRunsListCmd(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		migrateUp bool
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := openDB(ctx, cfg, migrateUp)
			if err != nil {
				return err
			}
			defer d.Close()

			rs, err := runs.NewRepo(d).ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), rs, time.Now())
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	c.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations before listing")
	return c
}

func printRuns(out io.Writer, rs []runs.Run, now time.Time) error {
	if len(rs) == 0 {
		_, err := fmt.Fprintln(out, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVENUE\tDATE\tGUESTS\tWINDOW\tSTATUS\tTICKS\tSTARTED")
	for _, r := range rs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			r.ID, r.Venue, r.ReservationDate.Format(booking.DateLayout), r.Guests, r.Window(),
			r.Status, r.TickCount, humanize.RelTime(r.StartedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}
