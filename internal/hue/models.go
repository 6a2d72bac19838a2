package hue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Group represents a Hue group (v1 API). Rooms, zones and light groups are all groups.
type Group struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Lights []string `json:"lights"`
}

// Scene represents a Hue scene (v1 API).
// Group is empty for LightScene-type scenes, which belong to no group.
type Scene struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Group  string   `json:"group"`
	Type   string   `json:"type"`
	Lights []string `json:"lights"`
}

// Snapshot is a read-only view of bridge state taken at one point in time.
// Groups and Scenes are ordered by identifier.
type Snapshot struct {
	Groups []Group
	Scenes []Scene
}

// datastore is the subset of the full v1 datastore (GET /api/<key>) we read.
type datastore struct {
	Groups map[string]Group `json:"groups"`
	Scenes map[string]Scene `json:"scenes"`
}

// ParseSnapshot decodes and validates a full v1 datastore document.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw datastore
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode datastore: %w", err)
	}
	if raw.Groups == nil {
		return nil, errors.New("datastore has no groups section")
	}
	if raw.Scenes == nil {
		return nil, errors.New("datastore has no scenes section")
	}

	snap := &Snapshot{
		Groups: make([]Group, 0, len(raw.Groups)),
		Scenes: make([]Scene, 0, len(raw.Scenes)),
	}

	for id, group := range raw.Groups {
		if group.Name == "" {
			return nil, fmt.Errorf("group %s has no name", id)
		}
		group.ID = id
		snap.Groups = append(snap.Groups, group)
	}

	for id, scene := range raw.Scenes {
		if scene.Name == "" {
			return nil, fmt.Errorf("scene %s has no name", id)
		}
		scene.ID = id
		snap.Scenes = append(snap.Scenes, scene)
	}

	sort.Slice(snap.Groups, func(i, j int) bool { return lessID(snap.Groups[i].ID, snap.Groups[j].ID) })
	sort.Slice(snap.Scenes, func(i, j int) bool { return lessID(snap.Scenes[i].ID, snap.Scenes[j].ID) })

	return snap, nil
}

// GroupByID returns the group with the given identifier, or nil.
func (s *Snapshot) GroupByID(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// lessID orders numeric identifiers numerically and before any non-numeric one.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
