package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RefreshCommand represents the refresh command
type RefreshCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewRefreshCommand creates a new refresh command
func NewRefreshCommand(root *RootCommand) *RefreshCommand {
	r := &RefreshCommand{
		root: root,
	}

	r.cmd = &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new access token",
		Long: `Exchange the stored refresh token for a new access token.

The refresh token is rotated and stored again. If the server rejects it,
stored credentials are removed and you need to sign in again.

Examples:
  bumbeez refresh
  bumbeez refresh -o json`,
		Args: cobra.NoArgs,
		RunE: r.Run,
	}

	return r
}

// Command returns the underlying cobra command
func (r *RefreshCommand) Command() *cobra.Command {
	return r.cmd
}

// Run executes the refresh command
func (r *RefreshCommand) Run(cmd *cobra.Command, args []string) error {
	status, err := r.root.Container().AuthService().Refresh(cmd.Context())
	if err != nil {
		return err
	}

	if outputFormat(cmd) == "json" {
		return printJSON(status)
	}
	fmt.Println("✓ Access token refreshed")
	printStatus(status)
	return nil
}
