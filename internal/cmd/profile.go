package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// ProfileCommand represents the me command
type ProfileCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewProfileCommand creates a new me command
func NewProfileCommand(root *RootCommand) *ProfileCommand {
	p := &ProfileCommand{
		root: root,
	}

	p.cmd = &cobra.Command{
		Use:   "me",
		Short: "Show your profile",
		Long: `Show the profile of the signed-in user.

Examples:
  bumbeez me
  bumbeez me -o json`,
		Args: cobra.NoArgs,
		RunE: p.Run,
	}

	return p
}

// Command returns the underlying cobra command
func (p *ProfileCommand) Command() *cobra.Command {
	return p.cmd
}

// Run executes the me command
func (p *ProfileCommand) Run(cmd *cobra.Command, args []string) error {
	profile, err := p.root.Container().ProfileService().Me(cmd.Context())
	if err != nil {
		return err
	}

	switch outputFormat(cmd) {
	case "json":
		return printJSON(profile)
	default:
		p.outputDetail(profile)
		return nil
	}
}

// outputDetail outputs the profile in human-readable format
func (p *ProfileCommand) outputDetail(profile *iface.Profile) {
	name := strings.TrimSpace(profile.Firstname + " " + profile.Lastname)
	if name == "" {
		name = "-"
	}
	fmt.Printf("Name:  %s\n", name)
	fmt.Printf("Email: %s\n", profile.Email)
	fmt.Printf("ID:    %s\n", profile.ID)
}
