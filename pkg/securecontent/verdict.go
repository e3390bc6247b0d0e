// Copyright 2024-2026 Aiku AI

package securecontent

import "github.com/aiku/securecontent/pkg/securecontent/markers"

// Icon names used by masks.
const (
	IconLock  = "lock"
	IconReply = "reply"
)

// Verdict is the visibility decision for one wrapper.
type Verdict struct {
	Locked bool
	Icon   string
	// Message is the mask markup shown while locked.
	Message string
}

// Decide maps a region kind, the viewer and the viewer's participation in the
// thread to a verdict. It has no side effects.
func Decide(kind markers.Kind, viewer *Viewer, replied bool, s *Strings) Verdict {
	switch kind {
	case markers.KindLogin:
		if viewer != nil {
			return Verdict{}
		}
		return Verdict{Locked: true, Icon: IconLock, Message: s.MaskLogin}
	case markers.KindReply:
		switch {
		case viewer == nil:
			return Verdict{Locked: true, Icon: IconLock, Message: s.MaskLoginReply}
		case viewer.Privileged(), replied:
			return Verdict{}
		default:
			return Verdict{Locked: true, Icon: IconReply, Message: s.MaskReply}
		}
	default:
		return Verdict{Locked: true, Icon: IconLock, Message: s.MaskLogin}
	}
}
