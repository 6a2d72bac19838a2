package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zjrubin/philips-hue/internal/config"
	"github.com/zjrubin/philips-hue/internal/credentials"
	"github.com/zjrubin/philips-hue/internal/db"
	"github.com/zjrubin/philips-hue/internal/hue"
)

// ErrNotPaired is returned when no application key is configured or stored.
var ErrNotPaired = errors.New("no paired bridge: run `hue pair` first")

// Pairer obtains an application key from a bridge.
type Pairer interface {
	Pair(ctx context.Context, host, deviceType string, timeout time.Duration) (string, error)
}

// Compile-time check that hue.Pairer implements Pairer
var _ Pairer = (*hue.Pairer)(nil)

// App is the application container. It owns the credential store and builds bridge sessions.
type App struct {
	cfg         *config.Config
	db          *db.DB
	credentials *credentials.Store
	pairer      Pairer
	discover    func(ctx context.Context, timeout time.Duration) ([]hue.DiscoveredBridge, error)
}

// New opens the credential store described by cfg.
func New(cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.Credentials.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	return &App{
		cfg:         cfg,
		db:          database,
		credentials: credentials.NewStore(database.DB),
		pairer:      hue.NewPairer(),
		discover:    hue.Discover,
	}, nil
}

// Close releases all resources.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Credentials exposes the credential store.
func (a *App) Credentials() *credentials.Store {
	return a.credentials
}

// Session resolves the bridge address and application key and returns a session for them.
// Explicit config wins; otherwise the stored credential for the configured bridge,
// otherwise the most recently paired bridge.
func (a *App) Session(ctx context.Context) (*Session, error) {
	host, token := a.cfg.Hue.Bridge, a.cfg.Hue.Token

	switch {
	case token != "" && host == "":
		return nil, errors.New("hue.bridge is required when hue.token is set")
	case token == "" && host != "":
		cred, err := a.credentials.Get(ctx, host)
		if errors.Is(err, credentials.ErrNotFound) {
			return nil, fmt.Errorf("bridge %s: %w", host, ErrNotPaired)
		}
		if err != nil {
			return nil, err
		}
		token = cred.Username
	case token == "":
		cred, err := a.credentials.Latest(ctx)
		if errors.Is(err, credentials.ErrNotFound) {
			return nil, ErrNotPaired
		}
		if err != nil {
			return nil, err
		}
		host, token = cred.Host, cred.Username
	}

	client := hue.NewClient(host, token, a.cfg.Hue.Timeout.Duration())
	log.Debug().Str("bridge", client.Address()).Msg("Using bridge")
	return newSession(client, a.cfg.Hue.Transition()), nil
}

// Discover finds bridges on the local network.
func (a *App) Discover(ctx context.Context) ([]hue.DiscoveredBridge, error) {
	return a.discover(ctx, a.cfg.Discovery.Timeout.Duration())
}

// Pair creates an application key on the bridge at host and stores it.
// With an empty host the first discovered bridge is used.
func (a *App) Pair(ctx context.Context, host string) (*credentials.Credential, error) {
	if host == "" {
		bridges, err := a.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("bridge discovery failed: %w", err)
		}
		if len(bridges) == 0 {
			return nil, errors.New("no bridge found on the network; pass --bridge")
		}
		host = bridges[0].Host
		log.Info().Str("host", host).Msg("Discovered bridge")
	}

	username, err := a.pairer.Pair(ctx, host, deviceType(a.cfg.Hue.DeviceType), a.cfg.Pairing.Timeout.Duration())
	if err != nil {
		return nil, err
	}

	client := hue.NewClient(host, username, a.cfg.Hue.Timeout.Duration())
	defer client.Close()

	bridgeID, err := client.BridgeID(ctx)
	if err != nil {
		log.Warn().Err(err).Str("host", host).Msg("Could not read bridge id")
	}

	return a.credentials.Save(ctx, credentials.Credential{
		Host:     host,
		BridgeID: bridgeID,
		Username: username,
	})
}

// deviceType builds the "<app>#<device>" name the bridge shows for the key
func deviceType(app string) string {
	device, err := os.Hostname()
	if err != nil || device == "" {
		return app
	}
	device = strings.SplitN(device, ".", 2)[0]
	if len(device) > 19 {
		device = device[:19]
	}
	return app + "#" + device
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
