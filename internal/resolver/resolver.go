// Package resolver maps human-readable room and scene names onto bridge
// identifiers within a snapshot, and enumerates names for listings.
package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zjrubin/philips-hue/internal/hue"
)

// OffSceneName is the pseudo-scene that turns a room off. It never exists on the bridge.
const OffSceneName = "Off"

// NotFoundError reports a room or scene name that does not resolve.
type NotFoundError struct {
	Kind      string // "room" or "scene"
	Name      string
	GroupID   string   // scene lookups only
	Available []string // scene names of the group, sorted
}

func (e *NotFoundError) Error() string {
	if e.Kind != "scene" {
		return fmt.Sprintf("could not find %s [%s]", e.Kind, e.Name)
	}
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("could not find scene [%s] for group [%s]; available scenes: %s", e.Name, e.GroupID, available)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ResolveGroup returns the identifier of the first group named roomName.
func ResolveGroup(snap *hue.Snapshot, roomName string) (string, error) {
	for _, group := range snap.Groups {
		if group.Name == roomName {
			log.Debug().Str("room", roomName).Str("group", group.ID).Msg("Room resolved")
			return group.ID, nil
		}
	}
	return "", &NotFoundError{Kind: "room", Name: roomName}
}

// ResolveScene returns the identifier of the scene named sceneName that belongs to groupID.
// A scene with the same name in another group never matches.
func ResolveScene(snap *hue.Snapshot, groupID, sceneName string) (string, error) {
	for _, scene := range snap.Scenes {
		if scene.Group == groupID && scene.Name == sceneName {
			log.Debug().Str("scene", sceneName).Str("group", groupID).Str("id", scene.ID).Msg("Scene resolved")
			return scene.ID, nil
		}
	}
	return "", &NotFoundError{
		Kind:      "scene",
		Name:      sceneName,
		GroupID:   groupID,
		Available: ScenesForGroup(snap, groupID),
	}
}

// ScenesForGroup returns the distinct scene names of one group, sorted.
func ScenesForGroup(snap *hue.Snapshot, groupID string) []string {
	names := make([]string, 0)
	for _, scene := range snap.Scenes {
		if scene.Group == groupID {
			names = append(names, scene.Name)
		}
	}
	return dedupeSorted(names)
}

// ListRoomNames returns every group name, sorted ascending.
func ListRoomNames(snap *hue.Snapshot) []string {
	names := make([]string, 0, len(snap.Groups))
	for _, group := range snap.Groups {
		names = append(names, group.Name)
	}
	sort.Strings(names)
	return names
}

// ListSceneNames returns every distinct scene name, sorted, followed by "Off".
func ListSceneNames(snap *hue.Snapshot) []string {
	names := make([]string, 0, len(snap.Scenes)+1)
	for _, scene := range snap.Scenes {
		names = append(names, scene.Name)
	}
	return append(dedupeSorted(names), OffSceneName)
}

func dedupeSorted(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for _, name := range names {
		if len(out) > 0 && out[len(out)-1] == name {
			continue
		}
		out = append(out, name)
	}
	return out
}
