// Package di provides dependency injection for the Bumbeez CLI.
// It contains the service container and factory functions.
package di

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bumbeez/bumbeez-cli/internal/api"
	"github.com/bumbeez/bumbeez-cli/internal/config"
	"github.com/bumbeez/bumbeez-cli/internal/logging"
	"github.com/bumbeez/bumbeez-cli/internal/metrics"
	"github.com/bumbeez/bumbeez-cli/internal/notify"
	"github.com/bumbeez/bumbeez-cli/internal/securestore"
	"github.com/bumbeez/bumbeez-cli/internal/service"
	iface "github.com/bumbeez/bumbeez-cli/internal/service/interface"
	"github.com/bumbeez/bumbeez-cli/internal/session"
)

// Options adjust how the default container is built
type Options struct {
	// Debug forces debug logging regardless of BUMBEEZ_LOG_LEVEL
	Debug bool

	// Stderr receives logs and notifications; defaults to os.Stderr
	Stderr io.Writer
}

// Container holds all service dependencies for the CLI.
// Services are accessed via interfaces to enable mocking in tests.
type Container struct {
	config   *config.Config
	logger   zerolog.Logger
	session  *session.State
	store    securestore.Store
	notifier notify.Notifier
	metrics  *metrics.Recorder
	client   *api.Client

	authService    iface.AuthService
	profileService iface.ProfileService
	requestService iface.RequestService
}

// NewContainer creates a new dependency container with default implementations
func NewContainer(opts Options) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainerFromConfig(cfg, opts)
}

// NewContainerFromConfig wires the default implementations around cfg.
// The session starts empty; the first protected call restores it from the
// persisted refresh token.
func NewContainerFromConfig(cfg *config.Config, opts Options) (*Container, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	level := cfg.LogLevel
	if opts.Debug {
		level = "debug"
	}
	logger := logging.New(stderr, level)

	secret, err := securestore.MasterSecret(cfg.StoreKey, cfg.KeyPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load store key: %w", err)
	}
	store, err := securestore.NewFileStore(cfg.CredentialsPath(), secret)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	sess := session.New()
	notifier := notify.NewConsole(stderr)
	recorder := metrics.New()

	client := api.NewClient(cfg.APIURL, sess, store,
		api.WithNotifier(notifier),
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger),
		api.WithMetrics(recorder),
	)

	logger.Debug().
		Str("api_url", cfg.APIURL).
		Dur("timeout", cfg.Timeout).
		Str("credentials", cfg.CredentialsPath()).
		Msg("container initialized")

	return &Container{
		config:         cfg,
		logger:         logger,
		session:        sess,
		store:          store,
		notifier:       notifier,
		metrics:        recorder,
		client:         client,
		authService:    service.NewAuthService(client, sess, store, logger),
		profileService: service.NewProfileService(client),
		requestService: service.NewRequestService(client),
	}, nil
}

// NewContainerWithServices creates a container with custom service implementations.
// This is useful for testing with mock services.
func NewContainerWithServices(
	authService iface.AuthService,
	profileService iface.ProfileService,
	requestService iface.RequestService,
) *Container {
	return &Container{
		config:         &config.Config{APIURL: config.DefaultAPIURL, WebURL: config.DefaultAPIURL},
		logger:         zerolog.Nop(),
		authService:    authService,
		profileService: profileService,
		requestService: requestService,
	}
}

// AuthService returns the authentication service
func (c *Container) AuthService() iface.AuthService {
	return c.authService
}

// ProfileService returns the profile service
func (c *Container) ProfileService() iface.ProfileService {
	return c.profileService
}

// RequestService returns the generic request service
func (c *Container) RequestService() iface.RequestService {
	return c.requestService
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the CLI logger
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// Metrics returns the metrics recorder, nil for containers built from mocks
func (c *Container) Metrics() *metrics.Recorder {
	return c.metrics
}

// Close releases pooled connections
func (c *Container) Close() {
	if c.client != nil {
		c.client.CloseIdleConnections()
	}
}
