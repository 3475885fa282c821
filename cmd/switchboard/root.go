package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"switchboard/internal/config"
)

// Version is the CLI and daemon version.
const Version = "0.2.0"

// Color helpers for CLI output.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func errorText(msg string) string   { return red("✗ " + msg) }
func successText(msg string) string { return green("✓ " + msg) }
func warnText(msg string) string    { return yellow("! " + msg) }

// isTTY reports whether stdin and stdout are terminals, gating the
// interactive picker.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// CLI holds flag state shared across subcommands.
type CLI struct {
	configPath string
	verbose    bool

	tabID    int
	iface    string
	thinking bool

	cfg config.Config
}

// loadConfig resolves the runtime configuration: an explicit --config wins,
// otherwise viper searches ~/.switchboard and the working directory for
// switchboard.yaml.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		viper.SetConfigName("switchboard")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".switchboard"))
		}
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err == nil {
			path = viper.ConfigFileUsed()
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	c.cfg = cfg
	return nil
}

// NewRootCommand builds the switchboard command tree.
func NewRootCommand() *cobra.Command {
	cli := &CLI{}

	rootCmd := &cobra.Command{
		Use:   "switchboard",
		Short: "Platform and parameter resolution engine for AI chat surfaces",
		Long: fmt.Sprintf(`%s

switchboard decides which AI platform and model are active for a browser
tab or extension surface and resolves the exact API parameter set for one
call: token limits, sampling controls, and thinking-mode budgets, merged
from the capability catalog and stored user overrides.

%s
  switchboard platforms                 # list platforms and credential status
  switchboard models openai             # live model list for a platform
  switchboard use                       # interactive platform/model picker
  switchboard resolve openai gpt-4o     # print resolved API parameters
  switchboard overrides set openai gpt-4o base --temperature 0.3
  switchboard serve                     # HTTP/WebSocket daemon`,
			bold("switchboard "+Version), bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cli.configPath, "config", "", "Config file (default ~/.switchboard/switchboard.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().IntVar(&cli.tabID, "tab", 0, "Tab id scoping the platform preference (0 = none)")
	rootCmd.PersistentFlags().StringVar(&cli.iface, "interface", "sidepanel", "Surface the preferences belong to (popup|sidepanel)")
	rootCmd.PersistentFlags().BoolVar(&cli.thinking, "thinking", false, "Resolve with thinking mode requested")

	rootCmd.AddCommand(newPlatformsCommand(cli))
	rootCmd.AddCommand(newModelsCommand(cli))
	rootCmd.AddCommand(newResolveCommand(cli))
	rootCmd.AddCommand(newUseCommand(cli))
	rootCmd.AddCommand(newOverridesCommand(cli))
	rootCmd.AddCommand(newCredentialsCommand(cli))
	rootCmd.AddCommand(newServeCommand(cli))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("switchboard %s\n", Version)
		},
	}
}
