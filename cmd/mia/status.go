package main

import (
	"errors"
	"fmt"

	"github.com/atinylittleshell/mia/internal/health"
	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/spf13/cobra"
)

func newHealthCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the interpreter is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}

			prober, err := health.NewProber(health.Options{
				Checker:          app.client,
				MinServerVersion: app.cfg.MinServerVersion,
				Logger:           app.logger,
			})
			if err != nil {
				return err
			}

			report := prober.Probe(cmd.Context())
			out := cmd.OutOrStdout()
			if report.Status != health.StatusConnected {
				fmt.Fprintln(out, styles.ERROR(fmt.Sprintf("%s %s is unreachable", render.SymbolError, app.cfg.ServerURL)))
				if report.Err != nil {
					return report.Err
				}
				return errors.New("interpreter is unhealthy")
			}

			line := fmt.Sprintf("%s connected to %s", render.SymbolSuccess, app.cfg.ServerURL)
			if report.Version != "" {
				line += " (v" + report.Version + ")"
			}
			fmt.Fprintln(out, styles.SUCCESS(line))
			if report.Host != "" {
				fmt.Fprintln(out, styles.DIM("host: "+report.Host))
			}
			if report.Outdated {
				fmt.Fprintln(out, styles.PROMPT(fmt.Sprintf("server is older than the required %s", app.cfg.MinServerVersion)))
			}
			return nil
		},
	}
}
