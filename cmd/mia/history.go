package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atinylittleshell/mia/internal/history"
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"
)

var errHistoryDisabled = errors.New("history is disabled (history.enabled is false)")

func newHistoryCmd(app *cli) *cobra.Command {
	var limit int
	var search string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent script runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := openHistory(cmd, app)
			if err != nil {
				return err
			}

			var runs []history.ScriptRun
			if search != "" {
				runs, err = manager.SearchScripts(search, limit)
			} else {
				runs, err = manager.GetRecentRuns(limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, styles.DIM("no script runs recorded"))
				return nil
			}
			for _, run := range runs {
				fmt.Fprintln(out, formatRun(run))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&search, "search", "", "only show runs whose script contains this text")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			manager, err := openHistory(cmd, app)
			if err != nil {
				return err
			}
			return manager.DeleteRun(uint(id))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := openHistory(cmd, app)
			if err != nil {
				return err
			}
			if err := manager.ResetHistory(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.SUCCESS("history cleared"))
			return nil
		},
	})

	return cmd
}

func openHistory(cmd *cobra.Command, app *cli) (*history.HistoryManager, error) {
	if err := app.Init(cmd.Context()); err != nil {
		return nil, err
	}
	if app.history == nil {
		return nil, errHistoryDisabled
	}
	return app.history, nil
}

func formatRun(run history.ScriptRun) string {
	first, _, _ := strings.Cut(strings.TrimSpace(run.Script), "\n")
	line := fmt.Sprintf("%5d  %-8s %-12s %s",
		run.ID,
		run.Trigger,
		run.Outcome,
		truncate.StringWithTail(first, 60, "…"),
	)

	when := styles.DIM(humanize.Time(run.CreatedAt))
	if run.Outcome == string(session.OutcomeError) {
		return styles.ERROR(line) + "  " + when
	}
	return line + "  " + when
}
