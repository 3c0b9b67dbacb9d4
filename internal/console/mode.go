package console

import (
	"encoding/json"
	"fmt"

	"github.com/atinyakov/CatalogAdmin/internal/models"
)

// Mode is the single active UI mode. The set of implementations is closed:
// Unauthenticated, Idle, Viewing, Editing and ConfirmingDelete.
type Mode interface {
	// Name identifies the mode in logs, templates and persisted state.
	Name() string
	isMode()
}

// EditorKind distinguishes creating a product from editing one.
type EditorKind string

const (
	EditorCreate EditorKind = "create"
	EditorEdit   EditorKind = "edit"
)

// Unauthenticated: no session.
type Unauthenticated struct{}

// Idle: signed in, nothing selected.
type Idle struct{}

// Viewing: the detail panel shows Product.
type Viewing struct {
	Product models.Product
}

// Editing: the product editor is open.
type Editing struct {
	Kind  EditorKind
	Draft Draft
}

// ConfirmingDelete: the delete confirmation for Product is open.
type ConfirmingDelete struct {
	Product models.Product
}

func (Unauthenticated) Name() string  { return "unauthenticated" }
func (Idle) Name() string             { return "idle" }
func (Viewing) Name() string          { return "viewing" }
func (Editing) Name() string          { return "editing" }
func (ConfirmingDelete) Name() string { return "confirming_delete" }

func (Unauthenticated) isMode()  {}
func (Idle) isMode()             {}
func (Viewing) isMode()          {}
func (Editing) isMode()          {}
func (ConfirmingDelete) isMode() {}

// cloneMode returns a copy of m that shares no slices with it.
func cloneMode(m Mode) Mode {
	switch v := m.(type) {
	case Viewing:
		return Viewing{Product: v.Product.Clone()}
	case Editing:
		return Editing{Kind: v.Kind, Draft: v.Draft.Clone()}
	case ConfirmingDelete:
		return ConfirmingDelete{Product: v.Product.Clone()}
	default:
		return m
	}
}

// modeEnvelope is the persisted form of a Mode.
type modeEnvelope struct {
	Kind    string          `json:"kind"`
	Product *models.Product `json:"product,omitempty"`
	Editor  EditorKind      `json:"editor,omitempty"`
	Draft   *Draft          `json:"draft,omitempty"`
}

func encodeMode(m Mode) modeEnvelope {
	env := modeEnvelope{Kind: m.Name()}
	switch v := m.(type) {
	case Viewing:
		p := v.Product.Clone()
		env.Product = &p
	case Editing:
		d := v.Draft.Clone()
		env.Editor = v.Kind
		env.Draft = &d
	case ConfirmingDelete:
		p := v.Product.Clone()
		env.Product = &p
	}
	return env
}

func decodeMode(env modeEnvelope) (Mode, error) {
	switch env.Kind {
	case "", Unauthenticated{}.Name():
		return Unauthenticated{}, nil
	case Idle{}.Name():
		return Idle{}, nil
	case Viewing{}.Name():
		if env.Product == nil {
			return nil, fmt.Errorf("mode %s: missing product", env.Kind)
		}
		return Viewing{Product: *env.Product}, nil
	case Editing{}.Name():
		if env.Draft == nil {
			return nil, fmt.Errorf("mode %s: missing draft", env.Kind)
		}
		if env.Editor != EditorCreate && env.Editor != EditorEdit {
			return nil, fmt.Errorf("mode %s: unknown editor kind %q", env.Kind, env.Editor)
		}
		d := *env.Draft
		if len(d.ImagesURL) == 0 {
			d.ImagesURL = []string{""}
		}
		return Editing{Kind: env.Editor, Draft: d}, nil
	case ConfirmingDelete{}.Name():
		if env.Product == nil {
			return nil, fmt.Errorf("mode %s: missing product", env.Kind)
		}
		return ConfirmingDelete{Product: *env.Product}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", env.Kind)
	}
}

// State is the persistable snapshot of a Console.
type State struct {
	Session  *models.Session
	Mode     Mode
	Products []models.Product
	Username string
	Toasts   []Toast
}

type stateJSON struct {
	Session  *models.Session  `json:"session,omitempty"`
	Mode     modeEnvelope     `json:"mode"`
	Products []models.Product `json:"products"`
	Username string           `json:"username,omitempty"`
	Toasts   []Toast          `json:"toasts,omitempty"`
}

// MarshalJSON encodes the mode through a tagged envelope.
func (s State) MarshalJSON() ([]byte, error) {
	m := s.Mode
	if m == nil {
		m = Unauthenticated{}
	}
	return json.Marshal(stateJSON{
		Session:  s.Session,
		Mode:     encodeMode(m),
		Products: s.Products,
		Username: s.Username,
		Toasts:   s.Toasts,
	})
}

// UnmarshalJSON decodes a snapshot written by MarshalJSON.
func (s *State) UnmarshalJSON(b []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m, err := decodeMode(raw.Mode)
	if err != nil {
		return err
	}
	*s = State{
		Session:  raw.Session,
		Mode:     m,
		Products: raw.Products,
		Username: raw.Username,
		Toasts:   raw.Toasts,
	}
	return nil
}
