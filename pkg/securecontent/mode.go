// Copyright 2024-2026 Aiku AI

package securecontent

// Mode is the kind of rendering pass a decoration runs in.
type Mode string

const (
	// ModePreview is a render without durable thread identity, such as the
	// composer preview. Wrappers get a static placeholder only.
	ModePreview Mode = "preview"
	// ModeLive is a render that belongs to a real thread page.
	ModeLive Mode = "live"
)

// ClassifyMode decides between preview and live rendering.
func ClassifyMode(threadID string, threadPage bool) Mode {
	if threadID == "" && !threadPage {
		return ModePreview
	}
	return ModeLive
}
