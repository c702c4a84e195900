package tui

import (
	"context"
	"strings"

	"github.com/Veraticus/recon/internal/cli"
	tea "github.com/charmbracelet/bubbletea"
)

// runAction performs a workflow action off the UI goroutine.
func (m Model) runAction(a action, seq int) tea.Cmd {
	ctx, wf, cfg := m.ctx, m.workflow, m.config
	return func() tea.Msg {
		output, err := perform(ctx, wf, cfg, a)
		return operationDoneMsg{action: a, seq: seq, output: output, err: err}
	}
}

func perform(ctx context.Context, wf Workflow, cfg Config, a action) (string, error) {
	switch a {
	case actionHealth:
		if _, err := wf.CheckHealth(ctx); err != nil {
			return cli.FormatHealth(wf.Session()), err
		}
		return cli.FormatHealth(wf.Session()), nil

	case actionUpload:
		result, err := wf.Upload(ctx, cfg.Bank, cfg.Invoices)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString(cli.FormatFileLoaded("Bank statement", cfg.Bank) + "\n")
		b.WriteString(cli.FormatFileLoaded("Invoices", cfg.Invoices) + "\n\n")
		b.WriteString(cli.FormatUploadSummary(result))
		return b.String(), nil

	case actionIdentify:
		info, err := wf.IdentifyColumns(ctx)
		if err != nil {
			return "", err
		}
		return cli.FormatColumnInfo(info), nil

	case actionMatch:
		result, err := wf.Match(ctx)
		if err != nil {
			return "", err
		}
		return cli.FormatMatchSummary(result), nil

	case actionExport:
		return cfg.Export(ctx, wf.Session())

	default:
		return "", nil
	}
}
