package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zjrubin/philips-hue/internal/action"
	"github.com/zjrubin/philips-hue/internal/hue"
	"github.com/zjrubin/philips-hue/internal/resolver"
)

// Session is one run against one bridge. The snapshot is fetched at most once.
type Session struct {
	Client     *hue.Client
	dispatcher *action.Dispatcher
	snapshot   *hue.Snapshot
}

func newSession(client *hue.Client, transitionTime int) *Session {
	return &Session{
		Client:     client,
		dispatcher: action.NewDispatcher(client, transitionTime),
	}
}

// Close releases the HTTP client.
func (s *Session) Close() error {
	return s.Client.Close()
}

// Snapshot returns the bridge snapshot, fetching it on first use.
func (s *Session) Snapshot(ctx context.Context) (*hue.Snapshot, error) {
	if s.snapshot != nil {
		return s.snapshot, nil
	}
	snap, err := s.Client.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.snapshot = snap
	return snap, nil
}

// ListRooms prints every room name under a "Rooms:" header.
func (s *Session) ListRooms(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	return printList(w, "Rooms:", resolver.ListRoomNames(snap))
}

// ListScenes prints every scene name under a "Scenes:" header, "Off" last.
func (s *Session) ListScenes(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	return printList(w, "Scenes:", resolver.ListSceneNames(snap))
}

// Activate applies act to room.
func (s *Session) Activate(ctx context.Context, room string, act action.Action) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	return s.dispatcher.Activate(ctx, snap, room, act)
}

// Dump writes the raw bridge datastore as indented JSON.
func (s *Session) Dump(ctx context.Context, w io.Writer) error {
	raw, err := s.Client.FetchRaw(ctx)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return fmt.Errorf("failed to format datastore: %w", err)
	}
	out.WriteByte('\n')

	_, err = w.Write(out.Bytes())
	return err
}

func printList(w io.Writer, header string, names []string) error {
	var buf bytes.Buffer
	buf.WriteString(header + "\n")
	for _, name := range names {
		fmt.Fprintf(&buf, "\t%s\n", name)
	}
	buf.WriteString("\n")

	_, err := w.Write(buf.Bytes())
	return err
}
