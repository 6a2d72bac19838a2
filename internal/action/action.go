// Package action executes a room action against the bridge: recall a scene,
// or power the room off.
package action

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zjrubin/philips-hue/internal/hue"
	"github.com/zjrubin/philips-hue/internal/resolver"
)

// Action is what to do with a room. It is either ActivateScene or PowerOff.
type Action interface {
	isAction()
	String() string
}

// ActivateScene recalls the named scene in the room.
type ActivateScene struct {
	Name string
}

func (ActivateScene) isAction() {}
func (a ActivateScene) String() string { return a.Name }

// PowerOff turns every light of the room off.
type PowerOff struct{}

func (PowerOff) isAction() {}
func (PowerOff) String() string { return resolver.OffSceneName }

// Parse maps a user-supplied scene name to an action. "Off" selects PowerOff.
func Parse(sceneName string) Action {
	if sceneName == resolver.OffSceneName {
		return PowerOff{}
	}
	return ActivateScene{Name: sceneName}
}

// Bridge is the subset of the Hue client the dispatcher drives.
type Bridge interface {
	ActivateScene(ctx context.Context, groupID, sceneID string, transitionTime int) error
	SetGroupPower(ctx context.Context, groupID string, on bool) error
}

// Compile-time check that hue.Client implements Bridge
var _ Bridge = (*hue.Client)(nil)

// Dispatcher resolves rooms and scenes and applies actions through a Bridge.
type Dispatcher struct {
	bridge         Bridge
	transitionTime int
}

// NewDispatcher creates a dispatcher. transitionTime is in 100ms units.
func NewDispatcher(bridge Bridge, transitionTime int) *Dispatcher {
	return &Dispatcher{
		bridge:         bridge,
		transitionTime: transitionTime,
	}
}

// Activate applies act to the room named room.
// Resolution failures are *resolver.NotFoundError; bridge failures come back unchanged.
func (d *Dispatcher) Activate(ctx context.Context, snap *hue.Snapshot, room string, act Action) error {
	groupID, err := resolver.ResolveGroup(snap, room)
	if err != nil {
		return err
	}

	switch a := act.(type) {
	case PowerOff:
		event := log.Info().Str("room", room).Str("group", groupID)
		if group := snap.GroupByID(groupID); group != nil {
			event = event.Int("lights", len(group.Lights))
		}
		event.Msg("Turning room off")
		return d.bridge.SetGroupPower(ctx, groupID, false)

	case ActivateScene:
		sceneID, err := resolver.ResolveScene(snap, groupID, a.Name)
		if err != nil {
			return err
		}
		log.Info().
			Str("room", room).
			Str("scene", a.Name).
			Str("group", groupID).
			Str("scene_id", sceneID).
			Msg("Activating scene")
		return d.bridge.ActivateScene(ctx, groupID, sceneID, d.transitionTime)
	}

	return fmt.Errorf("unsupported action %T", act)
}
