package console

import (
	"fmt"
	"strings"

	"github.com/atinylittleshell/mia/internal/health"
	"github.com/atinylittleshell/mia/internal/render"
	"github.com/atinylittleshell/mia/internal/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
)

var (
	spinnerStyle  = lipgloss.NewStyle().Foreground(render.ColorYellow)
	selectedStyle = lipgloss.NewStyle().Foreground(render.ColorCyan).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(render.ColorGray).Width(14)
	paneStyle     = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(render.ColorGray)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	var keys help.KeyMap = browseHelp{keys: &m.keys}
	switch m.view {
	case viewLogin:
		body = m.loginView()
	case viewDisks:
		body = m.disksView()
	case viewPartitions:
		body = m.partitionsView()
	case viewTree:
		body = m.treeView()
	case viewHistory:
		body = m.historyView()
	case viewLoad:
		body = m.loadView()
	default:
		body = m.scriptView()
		keys = scriptHelp{keys: &m.keys}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.statusView(),
		m.help.View(keys),
	)
}

func (m Model) headerView() string {
	title := render.HeaderStyle.Render("mia")

	var conn string
	switch m.report.Status {
	case health.StatusConnected:
		conn = render.SuccessStyle.Render("● connected")
		if m.report.Host != "" {
			conn += render.DimStyle.Render(" " + m.report.Host)
		}
		if m.report.Version != "" {
			conn += render.DimStyle.Render(" v" + m.report.Version)
		}
		if m.report.Outdated {
			conn += " " + render.PausedStyle.Render("(server outdated)")
		}
	case health.StatusDisconnected:
		conn = render.ErrorStyle.Render("● disconnected")
	default:
		conn = render.DimStyle.Render("● checking")
	}
	if !m.report.CheckedAt.IsZero() {
		conn += render.DimStyle.Render(" · checked " + humanize.Time(m.report.CheckedAt))
	}

	user := render.DimStyle.Render("not logged in")
	if m.loggedIn {
		user = render.SuccessStyle.Render(fmt.Sprintf("%s@%s", m.user, m.partitionID))
	}

	return strings.Join([]string{title, conn, user}, "  ")
}

func (m Model) scriptView() string {
	parts := []string{paneStyle.Render(m.output.View())}

	switch m.snapshot.Mode {
	case session.ModeAwaitingConfirmation:
		parts = append(parts, m.confirmView())
	case session.ModePaused:
		parts = append(parts, render.PausedStyle.Render(fmt.Sprintf(
			"%s paused, %s left · ctrl+n to continue",
			render.SymbolPaused,
			pluralLines(len(m.snapshot.Remaining)),
		)))
	}

	parts = append(parts, paneStyle.Render(m.editor.View()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) confirmView() string {
	var message string
	if m.snapshot.Pending != nil {
		message = m.controller.Resolver().StripMarker(m.snapshot.Pending.Message)
	}
	question := render.PromptStyle.Render(render.SymbolConfirm+" Confirmation required") + "\n" +
		wordwrap.String(message, max(20, m.width-8)) + "\n" +
		render.DimStyle.Render("y approve · n deny")
	return render.ConfirmBoxStyle.Render(question)
}

// renderOutput formats the output log for the output pane.
func (m Model) renderOutput() string {
	if len(m.snapshot.Output) == 0 {
		return m.welcome
	}
	width := max(20, m.output.Width-2)
	chunks := lo.Map(m.snapshot.Output, func(chunk string, i int) string {
		wrapped := wordwrap.String(chunk, width)
		if m.snapshot.ChunkFailed(i) {
			return render.ErrorStyle.Render(render.SymbolError + " " + wrapped)
		}
		return render.OutputStyle.Render(wrapped)
	})
	return strings.Join(chunks, "\n")
}

func (m Model) statusView() string {
	if m.busy() {
		return m.spinner.View() + " " + render.PausedStyle.Render(render.ModeLabel(session.ModeBusy))
	}
	if m.status == "" {
		return render.ModeSymbol(m.snapshot.Mode) + " " + render.DimStyle.Render(render.ModeLabel(m.snapshot.Mode))
	}
	if m.statusErr {
		return render.ErrorStyle.Render(render.SymbolError + " " + m.status)
	}
	return render.DimStyle.Render(render.SymbolSystem + " " + m.status)
}

func (m Model) loginView() string {
	labels := []string{"User", "Password", "Partition ID"}
	rows := make([]string, 0, fieldCount+1)
	rows = append(rows, render.HeaderStyle.Render("Log in"))
	for i, input := range m.loginInputs {
		rows = append(rows, labelStyle.Render(labels[i])+input.View())
	}
	return paneStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) disksView() string {
	rows := []string{render.HeaderStyle.Render("Disks")}
	if len(m.disks) == 0 {
		rows = append(rows, render.DimStyle.Render("no disks with mounted partitions"))
	}
	for i, disk := range m.disks {
		line := fmt.Sprintf("%-12s %s  %s", disk.Name,
			render.DimStyle.Render(disk.Path),
			strings.Join(disk.MountedPartitions, ", "))
		rows = append(rows, m.listRow(i, line))
	}
	return paneStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) partitionsView() string {
	rows := []string{render.HeaderStyle.Render("Partitions of " + m.currentDisk)}
	if len(m.partitions) == 0 {
		rows = append(rows, render.DimStyle.Render("no mounted partitions"))
	}
	for i, p := range m.partitions {
		line := fmt.Sprintf("%-10s %-8s %-4s %-10s %9s", p.Name, p.ID, p.Type, p.Status, humanize.Bytes(uint64(max(p.Size, 0))))
		if p.LoggedIn {
			line += " " + render.SuccessStyle.Render(render.SymbolSuccess+" session")
		}
		rows = append(rows, m.listRow(i, line))
	}
	return paneStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) listRow(i int, line string) string {
	if i == m.cursor {
		return selectedStyle.Render("> ") + line
	}
	return "  " + line
}

func (m Model) treeView() string {
	header := render.HeaderStyle.Render("Content of " + m.currentPartition)
	if m.tree == nil {
		return paneStyle.Render(header + "\n" + render.DimStyle.Render("loading..."))
	}
	return paneStyle.Render(header + "\n" + render.ContentTree(*m.tree).String())
}

func (m Model) historyView() string {
	rows := []string{render.HeaderStyle.Render("History"), m.historyQuery.View()}
	if len(m.historyMatches) == 0 {
		rows = append(rows, render.DimStyle.Render("no matching scripts"))
	}
	width := uint(max(20, m.width-8))
	for i, idx := range m.historyMatches {
		script := m.historyScripts[idx]
		first, _, _ := strings.Cut(strings.TrimSpace(script), "\n")
		line := truncate.StringWithTail(first, width, "…")
		if n := strings.Count(strings.TrimSpace(script), "\n"); n > 0 {
			line += render.DimStyle.Render(fmt.Sprintf(" (+%d)", n))
		}
		rows = append(rows, m.listRow(i, line))
	}
	return paneStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) loadView() string {
	return paneStyle.Render(render.HeaderStyle.Render("Load script file") + "\n" + m.pathInput.View())
}

func pluralLines(n int) string {
	if n == 1 {
		return "1 line"
	}
	return fmt.Sprintf("%d lines", n)
}

func humanBytes(n int) string {
	return humanize.Bytes(uint64(n))
}
