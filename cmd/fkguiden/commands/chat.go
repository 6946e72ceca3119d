// ABOUTME: CLI command for an interactive chat session
// ABOUTME: Runs the Bubble Tea chat UI over the query pipeline
package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/tui"
)

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat in the terminal.

The running conversation is sent as history with every question,
so follow-ups like "Och för tvillingar?" are understood in context.`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Two stages plus composition
	timeout := 3 * cfg.StageTimeout
	p := tea.NewProgram(tui.New(a.pipeline, timeout), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI: %w", err)
	}
	return nil
}
