package hue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// userCreator is the part of huego.Bridge used for pairing
type userCreator interface {
	CreateUserContext(ctx context.Context, deviceType string) (string, error)
}

// Pairer creates application keys by polling the bridge until its link button is pressed
type Pairer struct {
	newBridge func(host string) userCreator
	interval  time.Duration
}

// NewPairer creates a pairer backed by huego
func NewPairer() *Pairer {
	return &Pairer{
		newBridge: func(host string) userCreator { return huego.New(host, "") },
		interval:  time.Second,
	}
}

// Pair requests an application key from the bridge at host.
// The user must press the link button on the bridge within the timeout.
func (p *Pairer) Pair(ctx context.Context, host, deviceType string, timeout time.Duration) (string, error) {
	bridge := p.newBridge(host)
	deadline := time.Now().Add(timeout)

	log.Info().Str("host", host).Dur("timeout", timeout).Msg("Waiting for link button")

	for {
		username, err := bridge.CreateUserContext(ctx, deviceType)
		if err == nil {
			log.Info().Str("host", host).Msg("Paired with bridge")
			return username, nil
		}

		var apiErr *huego.APIError
		if !errors.As(err, &apiErr) || apiErr.Type != errTypeLinkButtonNotPressed {
			return "", bridgeError("pair", fmt.Errorf("failed to create user: %w", err))
		}

		if !time.Now().Add(p.interval).Before(deadline) {
			return "", bridgeError("pair", ErrPairingTimeout)
		}

		select {
		case <-ctx.Done():
			return "", bridgeError("pair", ctx.Err())
		case <-time.After(p.interval):
		}
	}
}
