package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// LoginCommand represents the login command
type LoginCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewLoginCommand creates a new login command
func NewLoginCommand(root *RootCommand) *LoginCommand {
	l := &LoginCommand{
		root: root,
	}

	l.cmd = &cobra.Command{
		Use:   "login",
		Short: "Sign in to Bumbeez",
		Long: `Sign in to Bumbeez with your email and password.

Missing credentials are prompted for. On success the refresh token is stored
encrypted in ~/.bumbeez so later commands can restore the session.

Examples:
  bumbeez login
  bumbeez login --email you@example.com`,
		Args: cobra.NoArgs,
		RunE: l.Run,
	}

	l.cmd.Flags().String("email", "", "Account email")
	l.cmd.Flags().String("password", "", "Account password (prompted when omitted)")

	return l
}

// Command returns the underlying cobra command
func (l *LoginCommand) Command() *cobra.Command {
	return l.cmd
}

// Run executes the login command
func (l *LoginCommand) Run(cmd *cobra.Command, args []string) error {
	authService := l.root.Container().AuthService()

	input := &iface.LoginInput{}
	input.Email, _ = cmd.Flags().GetString("email")
	input.Password, _ = cmd.Flags().GetString("password")

	if input.Email == "" {
		if err := survey.AskOne(&survey.Input{
			Message: "Email:",
		}, &input.Email, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if input.Password == "" {
		if err := survey.AskOne(&survey.Password{
			Message: "Password:",
		}, &input.Password, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	user, err := authService.Login(cmd.Context(), input)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Successfully logged in as %s\n", user.Email)
	return nil
}
