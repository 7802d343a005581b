package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// cmdXP shows the learner's XP and recently reconciled attempts
func cmdXP(args []string) error {
	fs := flag.NewFlagSet("xp", flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "reload the profile from the backend")
	history := fs.Int("history", 0, "show the last N reconciled attempts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return showXP(context.Background(), newDaemonClient(daemonURL()), *refresh, *history, os.Stdout)
}

func showXP(ctx context.Context, c *daemonClient, refresh bool, history int, out io.Writer) error {
	p, err := c.profile(ctx, refresh)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	fmt.Fprintf(out, "%s: %d XP", p.Username, p.XP)
	if p.Stale {
		fmt.Fprint(out, " (cached, backend unavailable)")
	}
	fmt.Fprintln(out)

	if history <= 0 {
		return nil
	}

	entries, err := c.history(ctx, history)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "\nNo attempts recorded yet.")
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tATTEMPT\tSTRATEGY\tSCORE\tXP\tTOTAL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t+%d\t%d\n",
			e.ReconciledAt.Local().Format("2006-01-02 15:04"), e.AttemptID, e.Strategy, e.Score, e.XPEarned, e.XPTotal)
	}
	return w.Flush()
}
