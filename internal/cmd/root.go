// Package cmd provides the command-line interface for the Bumbeez CLI.
// It contains all cobra commands and their implementations.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bumbeez/bumbeez-cli/internal/api"
	"github.com/bumbeez/bumbeez-cli/internal/di"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

// RootCommand represents the root CLI command
type RootCommand struct {
	container *di.Container
	cmd       *cobra.Command

	// Subcommands
	loginCmd    *LoginCommand
	registerCmd *RegisterCommand
	logoutCmd   *LogoutCommand
	statusCmd   *StatusCommand
	refreshCmd  *RefreshCommand
	profileCmd  *ProfileCommand
	requestCmd  *RequestCommand
}

// NewRootCommand creates a new root command
func NewRootCommand() *RootCommand {
	r := &RootCommand{}

	r.cmd = &cobra.Command{
		Use:   "bumbeez",
		Short: "Bumbeez CLI - Command line interface for the Bumbeez API",
		Long: `Bumbeez CLI is a command-line tool for signing in to Bumbeez and calling its API.

Access tokens live only for the duration of a command. The refresh token is
stored encrypted under ~/.bumbeez and is used to restore the session on the
first call that needs it.

To get started, run:
  bumbeez login  - Sign in with your Bumbeez account
  bumbeez me     - Show your profile`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			r.finish()
		},
	}

	// Global flags
	r.cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text, json)")
	r.cmd.PersistentFlags().Bool("debug", false, "Log requests and metrics to stderr")

	r.loginCmd = NewLoginCommand(r)
	r.registerCmd = NewRegisterCommand(r)
	r.logoutCmd = NewLogoutCommand(r)
	r.statusCmd = NewStatusCommand(r)
	r.refreshCmd = NewRefreshCommand(r)
	r.profileCmd = NewProfileCommand(r)
	r.requestCmd = NewRequestCommand(r)

	r.cmd.AddCommand(r.loginCmd.Command())
	r.cmd.AddCommand(r.registerCmd.Command())
	r.cmd.AddCommand(r.logoutCmd.Command())
	r.cmd.AddCommand(r.statusCmd.Command())
	r.cmd.AddCommand(r.refreshCmd.Command())
	r.cmd.AddCommand(r.profileCmd.Command())
	r.cmd.AddCommand(r.requestCmd.Command())

	return r
}

// initialize sets up the DI container
func (r *RootCommand) initialize(cmd *cobra.Command) error {
	// Skip if container is already set (e.g., for testing)
	if r.container != nil {
		return nil
	}

	debug, _ := cmd.Flags().GetBool("debug")

	var err error
	r.container, err = di.NewContainer(di.Options{Debug: debug})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	return nil
}

// finish logs the request counters at debug level and releases connections
func (r *RootCommand) finish() {
	if r.container == nil {
		return
	}
	defer r.container.Close()

	recorder := r.container.Metrics()
	if recorder == nil {
		return
	}
	snapshot, err := recorder.Snapshot()
	if err != nil {
		return
	}

	logger := r.container.Logger()
	event := logger.Debug()
	for name, value := range snapshot {
		event = event.Float64(name, value)
	}
	event.Msg("metrics")
}

// Execute runs the root command
func (r *RootCommand) Execute() error {
	return r.cmd.Execute()
}

// Command returns the underlying cobra command
func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

// Container returns the DI container
func (r *RootCommand) Container() *di.Container {
	return r.container
}

// SetContainer sets a custom container (for testing)
func (r *RootCommand) SetContainer(c *di.Container) {
	r.container = c
}

// Execute is the main entry point for the CLI.
// Classified API failures were already shown by the notifier, so only the
// rest are printed here.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil && api.KindOf(err) == api.KindUnclassified {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// outputFormat returns the value of the global --output flag
func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
