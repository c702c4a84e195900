package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive interface and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, wf Workflow, opts ...Option) error {
	if wf == nil {
		return errors.New("workflow is required")
	}

	p := tea.NewProgram(New(ctx, wf, opts...),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
