package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// StatusCommand represents the status command
type StatusCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewStatusCommand creates a new status command
func NewStatusCommand(root *RootCommand) *StatusCommand {
	s := &StatusCommand{
		root: root,
	}

	s.cmd = &cobra.Command{
		Use:   "status",
		Short: "Show local sign-in state",
		Long: `Show whether credentials are stored locally. No request is sent.

Examples:
  bumbeez status
  bumbeez status -o json`,
		Args: cobra.NoArgs,
		RunE: s.Run,
	}

	return s
}

// Command returns the underlying cobra command
func (s *StatusCommand) Command() *cobra.Command {
	return s.cmd
}

// Run executes the status command
func (s *StatusCommand) Run(cmd *cobra.Command, args []string) error {
	status, err := s.root.Container().AuthService().Status(cmd.Context())
	if err != nil {
		return err
	}

	if outputFormat(cmd) == "json" {
		return printJSON(status)
	}
	printStatus(status)
	return nil
}

func printStatus(status *iface.AuthStatus) {
	if !status.SignedIn() {
		fmt.Println("Not logged in.")
		fmt.Println("\nSign in with: bumbeez login")
		return
	}

	if status.User != nil {
		fmt.Printf("User:          %s (%s)\n", status.User.Email, status.User.ID)
	}
	if status.SessionActive {
		fmt.Println("Session:       active")
	} else {
		fmt.Println("Session:       restored on next request")
	}
	if status.ExpiresAt != nil {
		fmt.Printf("Expires:       %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	if status.HasRefreshToken {
		fmt.Println("Refresh token: stored")
	} else {
		fmt.Println("Refresh token: none")
	}
}
