package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client provides access to the Hue v1 REST API of one bridge
type Client struct {
	address    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Hue client
func NewClient(address, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		address: address,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) v1URL(path string) string {
	if path == "" {
		return fmt.Sprintf("http://%s/api/%s", c.address, c.token)
	}
	return fmt.Sprintf("http://%s/api/%s/%s", c.address, c.token, path)
}

func (c *Client) v1Request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.v1URL(path), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("path", path).Msg("Hue request")
	return c.httpClient.Do(req)
}

// readBody reads a v1 response, turning non-200 statuses and error envelopes into errors
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if apiErr := envelopeError(body); apiErr != nil {
		return nil, apiErr
	}

	return body, nil
}

// envelopeError returns the first error in a v1 result array, if any.
// Object-shaped bodies are successful reads and yield nil.
func envelopeError(body []byte) *APIError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var results []struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil
	}

	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}

// FetchRaw returns the full datastore document (GET /api/<key>) in one round trip
func (c *Client) FetchRaw(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.v1Request(ctx, "GET", "", nil)
	if err != nil {
		return nil, bridgeError("fetch datastore", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, bridgeError("fetch datastore", err)
	}

	return json.RawMessage(body), nil
}

// Snapshot fetches and validates the bridge's groups and scenes
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	raw, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := ParseSnapshot(raw)
	if err != nil {
		return nil, bridgeError("parse datastore", err)
	}

	log.Debug().
		Int("groups", len(snap.Groups)).
		Int("scenes", len(snap.Scenes)).
		Msg("Snapshot fetched")

	return snap, nil
}

// groupAction is the body of PUT groups/<id>/action
type groupAction struct {
	On             *bool  `json:"on,omitempty"`
	Scene          string `json:"scene,omitempty"`
	TransitionTime *int   `json:"transitiontime,omitempty"`
}

// ActivateScene recalls a scene on a group (v1 API)
func (c *Client) ActivateScene(ctx context.Context, groupID, sceneID string, transitionTime int) error {
	action := groupAction{Scene: sceneID, TransitionTime: &transitionTime}
	if err := c.setGroupAction(ctx, groupID, action); err != nil {
		return bridgeError("activate scene", err)
	}

	log.Debug().
		Str("group", groupID).
		Str("scene", sceneID).
		Int("transition_time", transitionTime).
		Msg("Scene activated")

	return nil
}

// SetGroupPower turns all lights of a group on or off (v1 API)
func (c *Client) SetGroupPower(ctx context.Context, groupID string, on bool) error {
	if err := c.setGroupAction(ctx, groupID, groupAction{On: &on}); err != nil {
		return bridgeError("set group power", err)
	}

	log.Debug().Str("group", groupID).Bool("on", on).Msg("Group power set")
	return nil
}

func (c *Client) setGroupAction(ctx context.Context, groupID string, action groupAction) error {
	bodyBytes, err := json.Marshal(action)
	if err != nil {
		return err
	}

	resp, err := c.v1Request(ctx, "PUT", fmt.Sprintf("groups/%s/action", groupID), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = readBody(resp)
	return err
}

// BridgeID reads the bridge identifier from the unauthenticated config endpoint
func (c *Client) BridgeID(ctx context.Context) (string, error) {
	url := fmt.Sprintf("http://%s/api/0/config", c.address)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", bridgeError("read config", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", bridgeError("read config", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", bridgeError("read config", err)
	}

	var config struct {
		BridgeID string `json:"bridgeid"`
	}
	if err := json.Unmarshal(body, &config); err != nil {
		return "", bridgeError("read config", fmt.Errorf("failed to decode bridge config: %w", err))
	}
	if config.BridgeID == "" {
		return "", bridgeError("read config", errors.New("bridge config has no bridgeid"))
	}

	return config.BridgeID, nil
}
