package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/atinylittleshell/mia/internal/batch"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/spf13/cobra"
)

var BUILD_VERSION = "dev"

func main() {
	os.Exit(submain(context.Background(), os.Args[1:]))
}

func submain(ctx context.Context, args []string) int {
	app := &cli{}
	defer app.Close()

	root := newRootCmd(app)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		// a failed batch run has already printed its error chunk
		if !errors.Is(err, batch.ErrRunFailed) {
			fmt.Fprintln(os.Stderr, styles.ERROR("mia: "+err.Error()))
		}
		return 1
	}
	return 0
}

func newRootCmd(app *cli) *cobra.Command {
	var policy string
	var step bool

	root := &cobra.Command{
		Use:   "mia",
		Short: "Terminal console for the MIA file-system interpreter",
		Long: `mia - a terminal console for the MIA file-system interpreter

Without arguments mia opens the interactive console. When stdin is not a
terminal, the script read from stdin is run in batch mode.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}
			if isTerminal(os.Stdin) {
				return app.RunConsole(cmd.Context())
			}
			script, err := readScript(cmd.InOrStdin(), "-")
			if err != nil {
				return err
			}
			return app.RunBatch(cmd.Context(), cmd.OutOrStdout(), script, batchFlags{policy: policy, step: step})
		},
	}

	root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "path to config file (default ~/.mia/config.yaml)")
	root.PersistentFlags().StringVarP(&app.serverURL, "server", "s", "", "interpreter URL, overrides server_url")
	root.Flags().StringVar(&policy, "policy", "", "confirmation policy for piped scripts: ask, approve or deny")
	root.Flags().BoolVar(&step, "step", false, "wait for Enter before continuing a paused script")

	root.AddCommand(newRunCmd(app))
	root.AddCommand(newDisksCmd(app))
	root.AddCommand(newPartitionsCmd(app))
	root.AddCommand(newTreeCmd(app))
	root.AddCommand(newLoginCmd(app))
	root.AddCommand(newLogoutCmd(app))
	root.AddCommand(newHealthCmd(app))
	root.AddCommand(newHistoryCmd(app))
	root.AddCommand(newConfigCmd(app))
	root.AddCommand(newVersionCmd())
	root.AddCommand(newUpdateCmd(app))

	return root
}
