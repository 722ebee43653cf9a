package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/dir-sync/internal/tui/shared"
)

// Run shows the running job until it ends or the user leaves, and returns
// the final model.
func Run(ctrl Controller, bridge *shared.EventBridge, title string, opts ...tea.ProgramOption) (Model, error) {
	program := tea.NewProgram(NewModel(ctrl, bridge, title), opts...)

	final, err := program.Run()
	if err != nil {
		return Model{}, fmt.Errorf("failed to run terminal view: %w", err)
	}

	model, ok := final.(Model)
	if !ok {
		return Model{}, fmt.Errorf("unexpected model type %T", final)
	}

	return model, nil
}
