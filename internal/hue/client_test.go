package hue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testDatastore = `{
	"lights": {"1": {"name": "Desk"}},
	"groups": {
		"1": {"name": "Office", "type": "Room", "lights": ["1"]},
		"2": {"name": "Kitchen", "type": "Room", "lights": []}
	},
	"scenes": {
		"a": {"name": "Relax", "group": "1", "type": "GroupScene"},
		"b": {"name": "Relax", "group": "2", "type": "GroupScene"}
	},
	"config": {"name": "Philips hue"}
}`

// fakeBridge records v1 requests and serves canned responses
type fakeBridge struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request, body []byte)
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeBridge(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) (*fakeBridge, *Client) {
	t.Helper()
	fb := &fakeBridge{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		fb.mu.Unlock()
		fb.handler(w, r, body)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(strings.TrimPrefix(srv.URL, "http://"), "test-key", 0)
	t.Cleanup(func() { client.Close() })
	return fb, client
}

func (fb *fakeBridge) recorded() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedRequest(nil), fb.requests...)
}

func TestClientSnapshot(t *testing.T) {
	fb, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(testDatastore))
	})

	snap, err := client.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if len(snap.Groups) != 2 || snap.Groups[0].ID != "1" || snap.Groups[0].Name != "Office" {
		t.Errorf("Groups = %+v", snap.Groups)
	}
	if len(snap.Scenes) != 2 || snap.Scenes[1].ID != "b" || snap.Scenes[1].Group != "2" {
		t.Errorf("Scenes = %+v", snap.Scenes)
	}

	reqs := fb.recorded()
	if len(reqs) != 1 {
		t.Fatalf("Expected one round trip, got %d", len(reqs))
	}
	if reqs[0].Method != "GET" || reqs[0].Path != "/api/test-key" {
		t.Errorf("Request = %+v", reqs[0])
	}
}

func TestClientSnapshotUnauthorized(t *testing.T) {
	_, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`[{"error":{"type":1,"address":"/","description":"unauthorized user"}}]`))
	})

	_, err := client.Snapshot(context.Background())
	if err == nil {
		t.Fatal("Expected error")
	}

	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected BridgeError, got %T", err)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestClientSnapshotMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not_json", `<html>`},
		{"no_groups", `{"scenes": {}}`},
		{"unnamed_group", `{"groups": {"1": {"type": "Room"}}, "scenes": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
				w.Write([]byte(tt.body))
			})

			_, err := client.Snapshot(context.Background())
			var bridgeErr *BridgeError
			if !errors.As(err, &bridgeErr) {
				t.Errorf("Expected BridgeError, got %v", err)
			}
		})
	}
}

func TestClientSnapshotHTTPStatus(t *testing.T) {
	_, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Snapshot(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestClientActivateScene(t *testing.T) {
	fb, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`[{"success":{"/groups/1/action/scene":"a"}}]`))
	})

	if err := client.ActivateScene(context.Background(), "1", "a", 1); err != nil {
		t.Fatalf("ActivateScene() error = %v", err)
	}

	reqs := fb.recorded()
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Method != "PUT" || reqs[0].Path != "/api/test-key/groups/1/action" {
		t.Errorf("Request = %+v", reqs[0])
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(reqs[0].Body), &body); err != nil {
		t.Fatalf("Invalid body %q: %v", reqs[0].Body, err)
	}
	if body["scene"] != "a" || body["transitiontime"] != float64(1) {
		t.Errorf("Body = %v", body)
	}
	if _, ok := body["on"]; ok {
		t.Errorf("Scene recall must not send on: %v", body)
	}
}

func TestClientActivateSceneZeroTransition(t *testing.T) {
	fb, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`[]`))
	})

	if err := client.ActivateScene(context.Background(), "1", "a", 0); err != nil {
		t.Fatalf("ActivateScene() error = %v", err)
	}
	if !strings.Contains(fb.recorded()[0].Body, `"transitiontime":0`) {
		t.Errorf("Expected explicit zero transition, got %s", fb.recorded()[0].Body)
	}
}

func TestClientSetGroupPower(t *testing.T) {
	fb, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`[{"success":{"/groups/2/action/on":false}}]`))
	})

	if err := client.SetGroupPower(context.Background(), "2", false); err != nil {
		t.Fatalf("SetGroupPower() error = %v", err)
	}

	req := fb.recorded()[0]
	if req.Path != "/api/test-key/groups/2/action" || req.Body != `{"on":false}` {
		t.Errorf("Request = %+v", req)
	}
}

func TestClientGroupActionAPIError(t *testing.T) {
	_, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`[{"error":{"type":3,"address":"/groups/9/action","description":"resource not available"}}]`))
	})

	err := client.SetGroupPower(context.Background(), "9", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Type != 3 {
		t.Fatalf("Expected APIError type 3, got %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("Type 3 must not match ErrUnauthorized")
	}
	if !strings.Contains(err.Error(), "set group power") {
		t.Errorf("Error should name the operation: %v", err)
	}
}

func TestClientBridgeID(t *testing.T) {
	fb, client := newFakeBridge(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Write([]byte(`{"name":"Philips hue","bridgeid":"001788FFFE123456"}`))
	})

	id, err := client.BridgeID(context.Background())
	if err != nil {
		t.Fatalf("BridgeID() error = %v", err)
	}
	if id != "001788FFFE123456" {
		t.Errorf("BridgeID() = %q", id)
	}
	if fb.recorded()[0].Path != "/api/0/config" {
		t.Errorf("Path = %q", fb.recorded()[0].Path)
	}
}

func TestClientFetchRawNetworkError(t *testing.T) {
	client := NewClient("127.0.0.1:1", "key", 0)
	_, err := client.FetchRaw(context.Background())

	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) || bridgeErr.Op != "fetch datastore" {
		t.Errorf("Expected BridgeError for fetch datastore, got %v", err)
	}
}
