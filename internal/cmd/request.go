package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// RequestCommand represents the request command
type RequestCommand struct {
	root *RootCommand
	cmd  *cobra.Command
}

// NewRequestCommand creates a new request command
func NewRequestCommand(root *RootCommand) *RequestCommand {
	r := &RequestCommand{
		root: root,
	}

	r.cmd = &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an authenticated request to the API",
		Long: `Send an arbitrary request through the authenticated client.

The access token is attached automatically and refreshed once on a 401.
The response body is printed to stdout; JSON bodies are indented in text mode.

Examples:
  bumbeez request GET /users/me
  bumbeez request POST /hives --data '{"name":"north"}'
  bumbeez request PUT /hives/1 --data @hive.json
  bumbeez request DELETE /hives/1 --silent`,
		Args: cobra.ExactArgs(2),
		RunE: r.Run,
	}

	r.cmd.Flags().StringP("data", "d", "", "JSON body, or @file to read it from a file")
	r.cmd.Flags().Bool("silent", false, "Do not print error notifications")

	return r
}

// Command returns the underlying cobra command
func (r *RequestCommand) Command() *cobra.Command {
	return r.cmd
}

// Run executes the request command
func (r *RequestCommand) Run(cmd *cobra.Command, args []string) error {
	data, _ := cmd.Flags().GetString("data")
	silent, _ := cmd.Flags().GetBool("silent")

	body, err := readData(data)
	if err != nil {
		return err
	}

	resp, err := r.root.Container().RequestService().Do(cmd.Context(), &iface.RequestInput{
		Method: args[0],
		Path:   args[1],
		Data:   body,
		Silent: silent,
	})
	if err != nil {
		return err
	}

	if outputFormat(cmd) == "json" {
		if len(resp.Body) > 0 {
			os.Stdout.Write(resp.Body)
			fmt.Println()
		}
		return nil
	}

	fmt.Printf("HTTP %d\n", resp.StatusCode)
	if len(resp.Body) == 0 {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body, "", "  "); err == nil {
		fmt.Println(pretty.String())
		return nil
	}
	fmt.Println(string(resp.Body))
	return nil
}

// readData resolves the --data flag
func readData(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(data, "@"); ok {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return content, nil
	}
	return []byte(data), nil
}
