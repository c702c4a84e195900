package tui

import (
	"strings"

	"github.com/Veraticus/recon/internal/cli"
	"github.com/Veraticus/recon/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.workflow.Session()

	header := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("AI-Powered Financial Reconciliation"),
		m.theme.Subtitle.Render("Upload a bank statement and an invoice file, then let the backend match them."),
	)

	side := m.theme.Panel.Render(strings.TrimRight(
		cli.FormatHealth(s)+"\n\n"+
			cli.FormatProgress(s, m.config.BackendURL, m.config.Timeout)+"\n"+
			m.renderFiles(), "\n"))

	sections := []string{header, side}
	if out := m.renderOutput(lipgloss.Height(header) + lipgloss.Height(side)); out != "" {
		sections = append(sections, out)
	}
	sections = append(sections, m.renderStatus(), m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderFiles() string {
	var b strings.Builder
	b.WriteString(cli.SubtitleStyle.Render("Files") + "\n")
	for _, f := range []struct {
		label string
		name  string
	}{
		{"Bank statement", m.fileName(m.config.Bank)},
		{"Invoices", m.fileName(m.config.Invoices)},
	} {
		b.WriteString("  " + f.label + ": " + f.name + "\n")
	}
	return b.String()
}

// renderOutput shows the last result, clipped to the space the other sections
// leave free.
func (m Model) renderOutput(used int) string {
	if m.output == "" {
		return ""
	}
	available := m.height - used - 6
	if available < 3 {
		available = 3
	}
	lines := strings.Split(strings.TrimRight(m.output, "\n"), "\n")
	if len(lines) > available {
		lines = append(lines[:available-1], "...")
	}
	return m.theme.Output.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	switch {
	case m.running != actionNone:
		return m.spinner.View() + " " + m.theme.StatusPending.Render(m.status)
	case m.status == "":
		return ""
	case m.statusErr:
		return m.theme.StatusError.Render(m.status)
	default:
		return m.theme.StatusSuccess.Render(m.status)
	}
}

func (m Model) fileName(f *model.FileCandidate) string {
	if f == nil {
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render("not selected")
	}
	return f.Name
}
