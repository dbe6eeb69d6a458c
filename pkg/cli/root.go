// Package cli implements the vectorctl commands.
//
// Each command maps onto one vector.Service operation. Failures of the
// operation itself are logged and printed, not returned, so only malformed
// invocations produce a non-zero exit.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/andrew/vecdash/pkg/config"
	"github.com/andrew/vecdash/pkg/logging"
	"github.com/andrew/vecdash/pkg/vector"
)

var (
	configPath string
	qdrantHost string
	qdrantPort int
	ollamaURL  string
	debugMode  bool
	jsonOutput bool

	// service is set up before each command; tests assign it directly
	service vector.Service
	logger  = logging.Discard()
	closer  io.Closer

	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldRed   = color.New(color.FgRed, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "vectorctl",
	Short: "Manage vector collections: create, load, browse and search",
	Long: `vectorctl drives a Qdrant vector database with Ollama embeddings.

Each command also answers to a numeric code:
  0 create, 1 get, 2 list, 3 load, 4 search, 5 load-file, 6 delete, 7 see`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.New("a command is required")
	},
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultFile, "path to the TOML config file")
	flags.StringVar(&qdrantHost, "qdrant-host", "", "Qdrant server host (overrides config)")
	flags.IntVar(&qdrantPort, "qdrant-port", 0, "Qdrant server gRPC port (overrides config)")
	flags.StringVar(&ollamaURL, "ollama-url", "", "Ollama API URL (overrides config)")
	flags.BoolVar(&debugMode, "debug", false, "enable debug output")
	flags.BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and builds the vector service unless one is already set
func setup(cmd *cobra.Command, args []string) error {
	if service != nil || !cmd.HasParent() {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		cmd.SilenceUsage = true
		return err
	}

	level := cfg.Log.Level
	var extra []io.Writer
	if debugMode {
		level = "DEBUG"
		extra = append(extra, os.Stderr)
	}

	var l *slog.Logger
	l, closer, err = logging.Open(cfg.Log.File, level, extra...)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	logger = l

	store, err := vector.NewFromConfig(cfg, logger)
	if err != nil {
		cmd.SilenceUsage = true
		return fmt.Errorf("failed to configure vector store: %w", err)
	}
	service = store
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if closer != nil {
		err := closer.Close()
		closer = nil
		return err
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("qdrant-host") {
		cfg.Qdrant.Host = qdrantHost
	}
	if flags.Changed("qdrant-port") {
		cfg.Qdrant.Port = qdrantPort
	}
	if flags.Changed("ollama-url") {
		cfg.Ollama.URL = ollamaURL
	}
}

// report prints an operation failure and logs it; the command itself still succeeds
func report(cmd *cobra.Command, what string, err error) {
	logger.Error(what, "error", err)
	cmd.PrintErrln(boldRed("Error: ") + what + ": " + err.Error())
}

func success(cmd *cobra.Command, format string, args ...any) {
	cmd.Println(boldGreen("✅ ") + fmt.Sprintf(format, args...))
}
