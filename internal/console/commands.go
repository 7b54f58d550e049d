package console

import (
	"context"
	"os"

	"github.com/atinylittleshell/mia/internal/health"
	"github.com/atinylittleshell/mia/internal/interpreter"
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// historyPickerLimit bounds how many scripts the history picker loads.
const historyPickerLimit = 200

type exchangeDoneMsg struct {
	trigger session.Trigger
	err     error
}

type healthMsg health.Report

type disksMsg struct {
	disks []interpreter.Disk
	err   error
}

type partitionsMsg struct {
	disk       string
	partitions []interpreter.Partition
	err        error
}

type treeMsg struct {
	partitionID string
	root        *interpreter.TreeNode
	err         error
}

type loginMsg struct {
	user        string
	partitionID string
	err         error
}

type logoutMsg struct {
	err error
}

type historyMsg struct {
	scripts []string
	err     error
}

type fileLoadedMsg struct {
	path    string
	content string
	err     error
}

type clipboardMsg struct {
	err error
}

// exchangeCmd runs one controller trigger off the UI goroutine.
func exchangeCmd(ctx context.Context, c *session.Controller, trigger session.Trigger, text string) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch trigger {
		case session.TriggerSubmit:
			err = c.Submit(ctx, text)
		case session.TriggerContinue:
			err = c.Continue(ctx)
		case session.TriggerApprove:
			err = c.Approve(ctx)
		case session.TriggerDeny:
			err = c.Deny(ctx)
		}
		return exchangeDoneMsg{trigger: trigger, err: err}
	}
}

// waitForHealth blocks until the prober publishes a report.
func waitForHealth(p *health.Prober) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		return healthMsg(<-p.Updates())
	}
}

func listDisksCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		disks, err := b.ListDisks(ctx)
		return disksMsg{disks: disks, err: err}
	}
}

func listPartitionsCmd(ctx context.Context, b Backend, disk string) tea.Cmd {
	return func() tea.Msg {
		partitions, err := b.ListPartitions(ctx, disk)
		return partitionsMsg{disk: disk, partitions: partitions, err: err}
	}
}

func contentTreeCmd(ctx context.Context, b Backend, partitionID string) tea.Cmd {
	return func() tea.Msg {
		root, err := b.ContentTree(ctx, partitionID)
		return treeMsg{partitionID: partitionID, root: root, err: err}
	}
}

func loginCmd(ctx context.Context, b Backend, user, password, partitionID string) tea.Cmd {
	return func() tea.Msg {
		_, err := b.Login(ctx, user, password, partitionID)
		return loginMsg{user: user, partitionID: partitionID, err: err}
	}
}

func logoutCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		_, err := b.Logout(ctx)
		return logoutMsg{err: err}
	}
}

func loadHistoryCmd(h HistorySource) tea.Cmd {
	return func() tea.Msg {
		scripts, err := h.GetRecentScripts(historyPickerLimit)
		return historyMsg{scripts: scripts, err: err}
	}
}

func loadFileCmd(readFile func(string) ([]byte, error), path string) tea.Cmd {
	return func() tea.Msg {
		data, err := readFile(path)
		return fileLoadedMsg{path: path, content: string(data), err: err}
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{err: write(text)}
	}
}

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(expandHome(path))
}

func defaultCopy(text string) error {
	return clipboard.WriteAll(text)
}
