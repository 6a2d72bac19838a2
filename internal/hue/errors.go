package hue

import (
	"errors"
	"fmt"
)

// v1 API error types we react to
const (
	errTypeUnauthorized         = 1
	errTypeLinkButtonNotPressed = 101
)

var (
	// ErrUnauthorized matches an APIError for an unknown or revoked application key.
	ErrUnauthorized = errors.New("unauthorized user")
	// ErrPairingTimeout is returned when the link button was not pressed in time.
	ErrPairingTimeout = errors.New("pairing timeout - link button was not pressed")
)

// APIError is an error object returned in a v1 response envelope.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d at %s: %s", e.Type, e.Address, e.Description)
}

// Is lets errors.Is(err, ErrUnauthorized) match type 1 API errors.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Type == errTypeUnauthorized
}

// BridgeError wraps any failure talking to the bridge.
type BridgeError struct {
	Op  string
	Err error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("hue bridge: %s: %v", e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

func bridgeError(op string, err error) error {
	return &BridgeError{Op: op, Err: err}
}
