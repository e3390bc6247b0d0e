// Copyright 2024-2026 Aiku AI

package securecontent

import (
	"encoding/json"
	"fmt"

	"github.com/aiku/securecontent/pkg/securecontent/markers"
)

// UnknownPostCount marks a viewer whose site-wide post count was not supplied.
const UnknownPostCount = -1

// Viewer is the current authenticated user. A nil *Viewer is anonymous.
type Viewer struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Admin     bool   `json:"admin"`
	Moderator bool   `json:"moderator"`
	// PostCount is the viewer's total post count across the whole site, or
	// UnknownPostCount.
	PostCount int `json:"post_count"`
}

// UnmarshalJSON leaves PostCount unknown when the payload omits it, so a
// missing count is never mistaken for a viewer who has never posted. The id
// may be a string or a number.
func (v *Viewer) UnmarshalJSON(data []byte) error {
	type rawViewer Viewer
	raw := struct {
		rawViewer
		ID json.RawMessage `json:"id"`
	}{rawViewer: rawViewer{PostCount: UnknownPostCount}}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	*v = Viewer(raw.rawViewer)
	v.ID = id
	return nil
}

// decodeID reads an id sent either as a JSON string or as a JSON number.
// Forums number their users and threads, chat servers use opaque strings.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var id string
		err := json.Unmarshal(raw, &id)
		return id, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or a number, got %s", raw)
	}
	return n.String(), nil
}

// Privileged reports whether the viewer bypasses reply gating.
func (v *Viewer) Privileged() bool {
	return v != nil && (v.Admin || v.Moderator)
}

// NeverPosted reports whether the viewer is known to have zero posts anywhere.
func (v *Viewer) NeverPosted() bool {
	return v != nil && v.PostCount == 0
}

// State is the presentation state of a wrapper element.
type State string

const (
	StateWrapped   State = "wrapped"
	StatePreviewed State = "previewed"
	StateMasked    State = "masked"
	StateUnlocked  State = "unlocked"
)

// StateAttr records a wrapper's state on the element.
const StateAttr = "data-secure-state"

// RegionOutcome is what happened to one wrapper during a decoration pass.
type RegionOutcome struct {
	Kind  markers.Kind `json:"kind"`
	State State        `json:"state"`
}
