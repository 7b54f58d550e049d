package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd(app *cli) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a script file without the console (- reads stdin)",
		Long: `Run a script file to completion.

Paused scripts are continued automatically, or after Enter with --step.
Confirmations are answered by --policy: ask (default on a terminal),
approve, or deny (default otherwise).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}

			script, err := readScript(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if args[0] != "-" && isTerminal(os.Stdin) {
				flags.in = cmd.InOrStdin()
			}
			return app.RunBatch(cmd.Context(), cmd.OutOrStdout(), script, flags)
		},
	}

	cmd.Flags().StringVar(&flags.policy, "policy", "", "confirmation policy: ask, approve or deny")
	cmd.Flags().BoolVar(&flags.step, "step", false, "wait for Enter before continuing a paused script")
	return cmd
}
