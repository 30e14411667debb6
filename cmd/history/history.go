// Package history provides the history command for datamerge
package history

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/datamerge/internal/conf"
	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/history"
)

// Command creates and returns the history command
func Command(app *conf.Context) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded merge runs",
		Long: `History lists the most recent merge runs from the run ledger, newest first.
Given a run id it prints that run's per-split and per-class breakdown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return Show(cmd.Context(), app, args[0])
			}
			return List(cmd.Context(), app, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Number of runs to list")

	return cmd
}

func openStore(app *conf.Context) (*history.Store, error) {
	if !app.Settings.History.Enabled {
		return nil, errors.Newf("run history is not enabled in configuration").
			Component("history").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return history.Open(app.Settings.History.Path, app.Log())
}

// List prints the most recent runs.
func List(ctx context.Context, app *conf.Context, limit int) error {
	store, err := openStore(app)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err = fmt.Fprintln(app.Stdout, "No merge runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(app.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tPOLICY\tDRY RUN\tDATASETS\tIMAGES\tBOXES\tDURATION")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Policy, r.DryRun,
			r.Datasets, r.Images, r.Boxes, r.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}

// Show prints one run with its split and class records.
func Show(ctx context.Context, app *conf.Context, id string) error {
	store, err := openStore(app)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	return writeRun(app.Stdout, run)
}

func writeRun(w io.Writer, r *history.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Started:\t%s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
	}
	fmt.Fprintf(tw, "Root:\t%s\n", r.Root)
	fmt.Fprintf(tw, "Output:\t%s\n", r.OutputDir)
	fmt.Fprintf(tw, "Policy:\t%s\n", r.Policy)
	fmt.Fprintf(tw, "Dry run:\t%t\n", r.DryRun)
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration().Round(time.Millisecond))

	if len(r.Splits) > 0 {
		fmt.Fprintln(tw, "\nDATASET\tSPLIT\tTARGET\tIMAGES\tLABELS\tBOXES\tFALLBACK")
		for _, s := range r.Splits {
			if !s.Found {
				fmt.Fprintf(tw, "%s\t%s\t%d\tmissing\t\t\t\n", s.Dataset, s.Split, s.Target)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				s.Dataset, s.Split, s.Target, s.Images, s.LabelFiles, s.Boxes, s.FallbackLines)
		}
	}
	if len(r.Classes) > 0 {
		fmt.Fprintln(tw, "\nCLASS\tNAME\tBOXES")
		for _, c := range r.Classes {
			fmt.Fprintf(tw, "%d\t%s\t%d\n", c.ClassID, c.Name, c.Boxes)
		}
		fmt.Fprintf(tw, "\ttotal\t%d\n", r.Boxes)
	}
	return tw.Flush()
}
