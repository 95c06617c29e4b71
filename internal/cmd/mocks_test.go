package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/bumbeez/bumbeez-cli/internal/di"
	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
)

// MockAuthService is a mock implementation of iface.AuthService
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, input *iface.RegisterInput) (*iface.User, error)
	LoginFunc    func(ctx context.Context, input *iface.LoginInput) (*iface.User, error)
	LogoutFunc   func(ctx context.Context) error
	RefreshFunc  func(ctx context.Context) (*iface.AuthStatus, error)
	StatusFunc   func(ctx context.Context) (*iface.AuthStatus, error)
}

func (m *MockAuthService) Register(ctx context.Context, input *iface.RegisterInput) (*iface.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return &iface.User{ID: "user-1", Email: input.Email}, nil
}

func (m *MockAuthService) Login(ctx context.Context, input *iface.LoginInput) (*iface.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, input)
	}
	return &iface.User{ID: "user-1", Email: input.Email}, nil
}

func (m *MockAuthService) Logout(ctx context.Context) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockAuthService) Refresh(ctx context.Context) (*iface.AuthStatus, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return &iface.AuthStatus{SessionActive: true, HasRefreshToken: true}, nil
}

func (m *MockAuthService) Status(ctx context.Context) (*iface.AuthStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &iface.AuthStatus{}, nil
}

// MockProfileService is a mock implementation of iface.ProfileService
type MockProfileService struct {
	MeFunc func(ctx context.Context) (*iface.Profile, error)
}

func (m *MockProfileService) Me(ctx context.Context) (*iface.Profile, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return nil, nil
}

// MockRequestService is a mock implementation of iface.RequestService
type MockRequestService struct {
	DoFunc func(ctx context.Context, input *iface.RequestInput) (*iface.Response, error)
}

func (m *MockRequestService) Do(ctx context.Context, input *iface.RequestInput) (*iface.Response, error) {
	if m.DoFunc != nil {
		return m.DoFunc(ctx, input)
	}
	return &iface.Response{StatusCode: 200}, nil
}

// runCommand executes args against a root wired to container and returns stdout
func runCommand(t *testing.T, container *di.Container, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	root.SetContainer(container)

	// Capture stdout
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	root.Command().SetArgs(args)
	runErr := root.Command().Execute()

	// Restore stdout and read output
	w.Close()
	os.Stdout = oldStdout
	output := <-done
	r.Close()

	return output, runErr
}
