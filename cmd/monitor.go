package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/textaudit/collector/internal/shared"
	"github.com/textaudit/collector/internal/ui"
	"github.com/urfave/cli/v3"
)

// Monitor launches the interactive terminal UI for watching tasks.
func (r *Runner) Monitor(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/collector-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	orchestrator := r.newOrchestrator(store)

	model := ui.NewModel(ctx, orchestrator)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
