package lantern

import (
	"encoding/json"
	"fmt"
)

// EntityRef is the creature definition joined onto an instance when a stage
// is resolved. It mirrors the persisted entity record.
type EntityRef struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Image            string `json:"image"`
	Initiative       int    `json:"initiative"`
	PlayerControlled bool   `json:"isPlayerControlled"`
	DisplayOnMap     bool   `json:"displayOnMap"`
	Health           int    `json:"health"`
	MaxHealth        int    `json:"maxHealth"`
	TempHealth       int    `json:"tempHealth"`
}

// Instance is one placement of an entity on a stage layer. The entity is
// referenced by id, never embedded, in storage; a resolved instance carries
// the joined Entity as well.
type Instance struct {
	ID           string     `json:"id"`
	EntityID     string     `json:"entityId"`
	X            int        `json:"x"`
	Y            int        `json:"y"`
	Z            float64    `json:"z,omitempty"`
	NameOverride string     `json:"nameOverride,omitempty"`
	Layer        string     `json:"layer,omitempty"`
	Size         PuckSize   `json:"size,omitempty"`
	Entity       *EntityRef `json:"entity,omitempty"`
}

// DisplayName returns the name shown on the token: the per-instance
// override when set, otherwise the entity's name.
func (in Instance) DisplayName() string {
	if in.NameOverride != "" {
		return in.NameOverride
	}
	if in.Entity != nil {
		return in.Entity.Name
	}
	return ""
}

// BackgroundSpec describes a stage's background image. A nil Position means
// auto-center relative to the viewport and image dimensions; otherwise it
// names an explicit grid-cell position. Offset is in pixels and Rotation in
// radians, both applied before the image draw.
type BackgroundSpec struct {
	Image    string  `json:"image"`
	Position *Vec2   `json:"position,omitempty"`
	OffsetX  float64 `json:"offsetX,omitempty"`
	OffsetY  float64 `json:"offsetY,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
}

// StagePayload is the full resolved stage state carried by Init and
// UpdateState events. Receivers replace all prior live state with it.
type StagePayload struct {
	Background *BackgroundSpec `json:"background,omitempty"`
	GridScale  float64         `json:"gridScale"`
	Instances  []Instance      `json:"instances"`
}

// Event is a cross-window protocol message. The set of events is closed:
// every type is declared in this file and dispatch is exhaustive. Events
// are fire-and-forget and self-contained — receivers assume no history
// beyond the baseline established by Load/Init/UpdateState.
type Event interface {
	// Name is the wire name of the event.
	Name() string
}

// --- Editor-scene family ---

// LoadEvent replaces the editor canvas's document with a full dungeon.
type LoadEvent struct {
	Dungeon *Dungeon `json:"dungeon"`
}

func (LoadEvent) Name() string { return "Load" }

// SetVisibleEvent toggles one node's visibility by id.
//
// The wire name "SetVisable" predates the spelling fix and is kept so
// control panels and displays from different builds stay compatible.
type SetVisibleEvent struct {
	NodeID  string `json:"nodeId"`
	Visible bool   `json:"visible"`
}

func (SetVisibleEvent) Name() string { return "SetVisable" }

// CenterCameraEvent recenters the editor camera on an object or entity id.
type CenterCameraEvent struct {
	TargetID string `json:"targetId"`
}

func (CenterCameraEvent) Name() string { return "CenterCameraOn" }

// AddEntityEvent appends one resolved instance to a layer on the editor
// canvas.
type AddEntityEvent struct {
	LayerID  string   `json:"layerId"`
	Instance Instance `json:"instance"`
}

func (AddEntityEvent) Name() string { return "AddEntity" }

// StateEvent carries the full resolved stage state to the editor overlay.
// The editor subscribes to this single event instead of the live display's
// incremental family.
type StateEvent struct {
	Stage StagePayload `json:"stage"`
}

func (StateEvent) Name() string { return "UpdateState" }

// --- Live-display family ---

// InitEvent replaces all live display state with a resolved stage.
type InitEvent struct {
	Stage StagePayload `json:"stage"`
}

func (InitEvent) Name() string { return "Init" }

// UpdateKind tags the variants of UpdateEvent.
type UpdateKind string

const (
	UpdateMove    UpdateKind = "move"
	UpdateDisplay UpdateKind = "display"
	UpdateSetZ    UpdateKind = "set-z"
	UpdateSetPuck UpdateKind = "set-puck"
)

// UpdateEvent mutates exactly one field of one existing token. Unknown
// target ids are silently ignored by receivers (the redraw still happens).
//
// Lerp asks for interpolated movement on "move" updates. The renderer does
// not consume it yet; it is carried so senders and payloads stay stable
// when tweened movement lands.
type UpdateEvent struct {
	Kind   UpdateKind `json:"type"`
	Target string     `json:"target"`

	// move
	X    int  `json:"x,omitempty"`
	Y    int  `json:"y,omitempty"`
	Lerp bool `json:"lerp,omitempty"`

	// display
	DisplayOnMap bool `json:"displayOnMap,omitempty"`

	// set-z
	Z float64 `json:"z,omitempty"`

	// set-puck
	Size PuckSize `json:"size,omitempty"`
}

func (UpdateEvent) Name() string { return "Update" }

// AddEvent appends one resolved instance to the live display.
type AddEvent struct {
	Instance Instance `json:"instance"`
}

func (AddEvent) Name() string { return "Add" }

// DeleteEvent removes one token by instance id.
type DeleteEvent struct {
	InstanceID string `json:"instanceId"`
}

func (DeleteEvent) Name() string { return "Delete" }

// --- Wire form ---

// Envelope is the serialized form an event travels in: the target window
// label, the event's wire name, and the JSON payload.
type Envelope struct {
	Window  string          `json:"window"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent wraps ev in an Envelope addressed to window.
func EncodeEvent(window string, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Name(), err)
	}
	return json.Marshal(Envelope{Window: window, Event: ev.Name(), Payload: payload})
}

// DecodeEvent reconstructs a typed event from its wire name and payload.
// Unknown names are an error: the event set is closed and a name this build
// does not know cannot be acted on.
func DecodeEvent(name string, payload []byte) (Event, error) {
	var ev Event
	switch name {
	case "Load":
		ev = &LoadEvent{}
	case "SetVisable":
		ev = &SetVisibleEvent{}
	case "CenterCameraOn":
		ev = &CenterCameraEvent{}
	case "AddEntity":
		ev = &AddEntityEvent{}
	case "UpdateState":
		ev = &StateEvent{}
	case "Init":
		ev = &InitEvent{}
	case "Update":
		ev = &UpdateEvent{}
	case "Add":
		ev = &AddEvent{}
	case "Delete":
		ev = &DeleteEvent{}
	default:
		return nil, fmt.Errorf("decode event: unknown name %q", name)
	}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}
