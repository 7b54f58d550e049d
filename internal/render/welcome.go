package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// WelcomeInfo contains information to display in the welcome screen.
type WelcomeInfo struct {
	Version   string
	ServerURL string
	// LatestVersion is set when a newer release was found by the update check.
	LatestVersion string
}

// tips is the list of tips to display in the welcome screen.
// A "tip of the day" is selected based on the current date.
var tips = []string{
	"press Ctrl+R to run the script in the editor",
	"a pause line stops the script; press Ctrl+N to continue",
	"press Ctrl+O to load a script file into the editor",
	"press Ctrl+P to pick a script from history",
	"press Ctrl+L to clear the editor and the output",
	"press Ctrl+Y to copy the output to the clipboard",
	"log in with Ctrl+G to browse disks and partitions",
	"run a script file without the console: mia run script.mia",
	"pipe a script into mia to run it in batch mode",
	"set server_url in ~/.mia/config.yaml or MIA_SERVER_URL",
	"set log_level: debug in ~/.mia/config.yaml for troubleshooting",
	"rmdisk asks for confirmation; answer y or n",
}

var miaLogo = []string{
	"           _       ",
	" _ __ ___ (_) __ _ ",
	"| '_ ` _ \\| |/ _` |",
	"| | | | | | | (_| |",
	"|_| |_| |_|_|\\__,_|",
}

// getTipOfTheDay returns the same tip for a whole calendar day.
func getTipOfTheDay(now time.Time) string {
	if len(tips) == 0 {
		return ""
	}
	return tips[now.YearDay()%len(tips)]
}

// RenderWelcome renders the welcome screen to the given writer.
func RenderWelcome(w io.Writer, info WelcomeInfo, termWidth int) {
	fmt.Fprint(w, Welcome(info, termWidth, time.Now()))
}

// Welcome builds the welcome screen: the logo on the left and session info on the right.
func Welcome(info WelcomeInfo, termWidth int, now time.Time) string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	logoStyle := lipgloss.NewStyle().Foreground(ColorYellow)
	labelStyle := lipgloss.NewStyle().Foreground(ColorGray)
	valueStyle := lipgloss.NewStyle().Foreground(ColorYellow)
	dimStyle := lipgloss.NewStyle().Foreground(ColorGray).Italic(true)

	logoWidth := lipgloss.Width(miaLogo[0])
	minGap := 4
	maxInfoWidth := 48

	var infoLines []string
	infoLines = append(infoLines, titleStyle.Render("MIA file-system console"))
	infoLines = append(infoLines, "")

	switch info.Version {
	case "":
	case "dev":
		infoLines = append(infoLines, labelStyle.Render("version: ")+dimStyle.Render("development"))
	default:
		infoLines = append(infoLines, labelStyle.Render("version: ")+valueStyle.Render(info.Version))
	}

	if info.ServerURL != "" {
		infoLines = append(infoLines, labelStyle.Render("server:  ")+valueStyle.Render(info.ServerURL))
	} else {
		infoLines = append(infoLines, labelStyle.Render("server:  ")+dimStyle.Render("not configured"))
	}

	if info.LatestVersion != "" {
		infoLines = append(infoLines, SuccessStyle.Render("update available: "+info.LatestVersion+" (mia update)"))
	}

	tip := getTipOfTheDay(now)

	infoWidth := termWidth - logoWidth - minGap
	if infoWidth > maxInfoWidth {
		infoWidth = maxInfoWidth
	}

	var output strings.Builder
	if infoWidth < 20 {
		// Too narrow for the logo.
		for _, line := range infoLines {
			output.WriteString(line + "\n")
		}
		output.WriteString("\n")
		if tip != "" {
			output.WriteString(dimStyle.Render("tip: "+tip) + "\n")
		}
		output.WriteString("\n")
		return output.String()
	}

	numLines := max(len(miaLogo), len(infoLines))
	gap := strings.Repeat(" ", minGap)

	output.WriteString("\n")
	for i := 0; i < numLines; i++ {
		logoLine := strings.Repeat(" ", logoWidth)
		if i < len(miaLogo) {
			logoLine = logoStyle.Render(miaLogo[i])
		}

		var infoLine string
		if i < len(infoLines) {
			infoLine = infoLines[i]
		}

		output.WriteString(logoLine + gap + infoLine + "\n")
	}

	output.WriteString("\n")
	if tip != "" {
		output.WriteString(dimStyle.Render("tip: "+tip) + "\n")
	}
	output.WriteString("\n")

	return output.String()
}
