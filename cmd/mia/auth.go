package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *cli) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login USER PARTITION_ID",
		Short: "Log in to a mounted partition",
		Long: `Log in to a mounted partition.

The password is prompted for on a terminal, or read from the first line of
stdin otherwise. --password skips both.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}

			if password == "" {
				var err error
				password, err = readPassword(cmd)
				if err != nil {
					return err
				}
			}

			if _, err := app.client.Login(cmd.Context(), args[0], password, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.SUCCESS(fmt.Sprintf("%s logged in as %s on %s", render.SymbolSuccess, args[0], args[1])))
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted for when omitted)")
	return cmd
}

func newLogoutCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}
			if _, err := app.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.SUCCESS(render.SymbolSuccess+" logged out"))
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	if stdin, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(stdin.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), styles.PROMPT("password: "))
		data, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
