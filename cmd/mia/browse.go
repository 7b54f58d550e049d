package main

import (
	"fmt"
	"strings"

	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newDisksCmd(app *cli) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "disks",
		Short: "List disks with mounted partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all {
				names, err := app.client.AllDisks(cmd.Context())
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Fprintln(out, styles.DIM("no disks"))
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			disks, err := app.client.ListDisks(cmd.Context())
			if err != nil {
				return err
			}
			if len(disks) == 0 {
				fmt.Fprintln(out, styles.DIM("no disks with mounted partitions"))
				return nil
			}

			t := newTable("DISK", "PATH", "MOUNTED")
			for _, disk := range disks {
				t.Row(disk.Name, disk.Path, strings.Join(disk.MountedPartitions, ", "))
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every disk file, mounted or not")
	return cmd
}

func newPartitionsCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "partitions DISK",
		Short: "List the mounted partitions of a disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}
			partitions, err := app.client.ListPartitions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(partitions) == 0 {
				fmt.Fprintln(out, styles.DIM("no mounted partitions"))
				return nil
			}

			t := newTable("NAME", "ID", "TYPE", "STATUS", "START", "SIZE", "SESSION")
			for _, p := range partitions {
				t.Row(p.Name, p.ID, p.Type, p.Status,
					fmt.Sprint(p.Start),
					humanize.Bytes(uint64(max(p.Size, 0))),
					lo.Ternary(p.LoggedIn, render.SymbolSuccess, ""),
				)
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
}

func newTreeCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tree PARTITION_ID",
		Short: "Print the content tree of a partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.Context()); err != nil {
				return err
			}
			root, err := app.client.ContentTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if root == nil {
				fmt.Fprintln(cmd.OutOrStdout(), styles.DIM("partition is empty"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.ContentTree(*root).String())
			return nil
		},
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(render.DimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(render.HeaderStyle)
			}
			return style
		})
}
