package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bumbeez/bumbeez-cli/internal/di"
	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

func TestRequestCommand_Run(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "hive.json")
	if err := os.WriteFile(dataFile, []byte(`{"name":"north"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		args       []string
		response   *iface.Response
		wantInput  iface.RequestInput
		wantOutput []string
		wantErr    bool
	}{
		{
			name:       "get pretty prints json",
			args:       []string{"request", "GET", "/users/me"},
			response:   &iface.Response{StatusCode: 200, Body: []byte(`{"id":"user-1"}`)},
			wantInput:  iface.RequestInput{Method: "GET", Path: "/users/me"},
			wantOutput: []string{"HTTP 200", "\"id\": \"user-1\""},
		},
		{
			name:       "post inline data",
			args:       []string{"request", "POST", "/hives", "--data", `{"name":"south"}`},
			response:   &iface.Response{StatusCode: 201},
			wantInput:  iface.RequestInput{Method: "POST", Path: "/hives", Data: []byte(`{"name":"south"}`)},
			wantOutput: []string{"HTTP 201"},
		},
		{
			name:      "data from file and silent",
			args:      []string{"request", "PUT", "/hives/1", "--data", "@" + dataFile, "--silent"},
			response:  &iface.Response{StatusCode: 200},
			wantInput: iface.RequestInput{Method: "PUT", Path: "/hives/1", Data: []byte(`{"name":"north"}`), Silent: true},
		},
		{
			name:       "json output is raw",
			args:       []string{"request", "GET", "/echo", "-o", "json"},
			response:   &iface.Response{StatusCode: 200, Body: []byte(`{"ok":true}`)},
			wantInput:  iface.RequestInput{Method: "GET", Path: "/echo"},
			wantOutput: []string{`{"ok":true}`},
		},
		{
			name:    "missing data file",
			args:    []string{"request", "POST", "/hives", "--data", "@/does/not/exist.json"},
			wantErr: true,
		},
		{
			name:    "requires method and path",
			args:    []string{"request", "GET"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *iface.RequestInput
			mockRequest := &MockRequestService{
				DoFunc: func(ctx context.Context, input *iface.RequestInput) (*iface.Response, error) {
					got = input
					return tt.response, nil
				},
			}
			container := di.NewContainerWithServices(&MockAuthService{}, &MockProfileService{}, mockRequest)

			output, err := runCommand(t, container, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if got != nil {
					t.Errorf("Do() should not be called, got %+v", got)
				}
				return
			}

			if got == nil {
				t.Fatal("Do() was not called")
			}
			if got.Method != tt.wantInput.Method || got.Path != tt.wantInput.Path ||
				string(got.Data) != string(tt.wantInput.Data) || got.Silent != tt.wantInput.Silent {
				t.Errorf("Do() input = %+v, want %+v", got, tt.wantInput)
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(output, want) {
					t.Errorf("Output should contain %q, got: %s", want, output)
				}
			}
		})
	}
}
