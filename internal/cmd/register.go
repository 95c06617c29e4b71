package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// openBrowser is replaced in tests
var openBrowser = browser.OpenURL

// RegisterCommand represents the register command
type RegisterCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewRegisterCommand creates a new register command
func NewRegisterCommand(root *RootCommand) *RegisterCommand {
	r := &RegisterCommand{
		root: root,
	}

	r.cmd = &cobra.Command{
		Use:   "register",
		Short: "Create a Bumbeez account",
		Long: `Create a Bumbeez account and sign in with it.

Missing fields are prompted for. Use --web to sign up in the browser instead.

Examples:
  bumbeez register
  bumbeez register --email you@example.com --firstname Maya --lastname Bee
  bumbeez register --web`,
		Args: cobra.NoArgs,
		RunE: r.Run,
	}

	r.cmd.Flags().String("email", "", "Account email")
	r.cmd.Flags().String("password", "", "Account password, at least 6 characters (prompted when omitted)")
	r.cmd.Flags().String("firstname", "", "First name")
	r.cmd.Flags().String("lastname", "", "Last name")
	r.cmd.Flags().Bool("web", false, "Open the sign-up page in a browser")

	return r
}

// Command returns the underlying cobra command
func (r *RegisterCommand) Command() *cobra.Command {
	return r.cmd
}

// Run executes the register command
func (r *RegisterCommand) Run(cmd *cobra.Command, args []string) error {
	if web, _ := cmd.Flags().GetBool("web"); web {
		url := r.root.Container().Config().WebURL + "/register"
		fmt.Printf("Opening %s in your browser...\n", url)
		if err := openBrowser(url); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
		return nil
	}

	input := &iface.RegisterInput{}
	input.Email, _ = cmd.Flags().GetString("email")
	input.Password, _ = cmd.Flags().GetString("password")
	input.Firstname, _ = cmd.Flags().GetString("firstname")
	input.Lastname, _ = cmd.Flags().GetString("lastname")

	prompts := []struct {
		value  *string
		prompt survey.Prompt
	}{
		{&input.Email, &survey.Input{Message: "Email:"}},
		{&input.Firstname, &survey.Input{Message: "First name:"}},
		{&input.Lastname, &survey.Input{Message: "Last name:"}},
		{&input.Password, &survey.Password{Message: "Password:"}},
	}
	for _, p := range prompts {
		if *p.value != "" {
			continue
		}
		if err := survey.AskOne(p.prompt, p.value, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	user, err := r.root.Container().AuthService().Register(cmd.Context(), input)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Successfully registered and logged in as %s\n", user.Email)
	return nil
}
