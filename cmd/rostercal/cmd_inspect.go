package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rostercal/internal/ics"
	"rostercal/internal/shift"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <calendar.ics>",
		Short: "Print the shifts of a generated calendar in roster time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			loc, err := shift.LoadZone(cfg.Timezone)
			if err != nil {
				return err
			}

			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := ics.Inspect(body)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d shifts, %s)\n", doc.Owner, len(doc.Events), loc)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSTART\tEND\tHOURS\tUID")
			total := 0.0
			for _, ev := range doc.Events {
				start, end := ev.Start.In(loc), ev.End.In(loc)
				endClock := end.Format("15:04")
				if end.YearDay() != start.YearDay() {
					endClock += " +1"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n",
					start.Format("Mon 02/01/2006"), start.Format("15:04"), endClock, ev.Hours, ev.UID)
				total += ev.Hours
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "total %.2f hrs\n", total)
			return nil
		},
	}
}
