// ABOUTME: Root command and global flags for the FK-Guiden CLI
// ABOUTME: Loads .env and configuration and installs the process logger
package commands

import (
	"errors"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/logging"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
███████ ██   ██        ██████  ██    ██ ██ ██████  ███████ ███    ██
██      ██  ██        ██       ██    ██ ██ ██   ██ ██      ████   ██
█████   █████   █████ ██   ███ ██    ██ ██ ██   ██ █████   ██ ██  ██
██      ██  ██        ██    ██ ██    ██ ██ ██   ██ ██      ██  ██ ██
██      ██   ██        ██████   ██████  ██ ██████  ███████ ██   ████
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fkguiden",
		Short: "Answer questions about Försäkringskassan",
		Long: banner + `
FK-Guiden answers questions about Försäkringskassan (the Swedish Social
Insurance Agency) in Swedish, grounded in indexed forsakringskassan.se
content. It can be used one-shot, as an interactive chat, as an HTTP
API, or as an MCP server for LLM agents.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return errors.New("--verbose and --quiet are mutually exclusive")
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format (auto, text, json)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads .env, the optional config file and the environment,
// then installs the logger implied by the config and global flags
func loadConfig() (*config.Config, *slog.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	return cfg, logging.Setup(level, cfg.LogFormat), nil
}

// jsonOutput reports whether results should be printed as JSON
func jsonOutput() bool {
	return outputFormat == "json"
}
