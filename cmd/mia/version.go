package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinylittleshell/mia/internal/appupdate"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "mia %s\n", BUILD_VERSION)
			if err != nil {
				return err
			}
			if latest := appupdate.PendingUpdate(BUILD_VERSION); latest != "" {
				fmt.Fprintln(cmd.OutOrStdout(), styles.DIM("mia "+latest+" is available, run `mia update`"))
			}
			return nil
		},
	}
}

func newUpdateCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Install the latest mia release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			logger, err := initializeLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runUpdate(cmd.Context(), cmd, appupdate.DefaultUpdater{}, logger)
		},
	}
}

func runUpdate(ctx context.Context, cmd *cobra.Command, updater appupdate.Updater, logger *zap.Logger) error {
	version, err := appupdate.Update(ctx, BUILD_VERSION, "", logger, updater)
	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, appupdate.ErrUpToDate):
		fmt.Fprintln(out, styles.SUCCESS("mia "+version+" is the latest version"))
		return nil
	case errors.Is(err, appupdate.ErrDevBuild):
		return errors.New("development builds cannot update themselves")
	case err != nil:
		return err
	}
	fmt.Fprintln(out, styles.SUCCESS("updated mia to "+version))
	return nil
}
