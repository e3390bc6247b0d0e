// Copyright 2024-2026 Aiku AI

package securecontent

// Toolbar is the composer toolbar the host lets plugins add buttons to.
type Toolbar interface {
	AddButton(button ToolbarButton)
}

// Editor is the composer text area a toolbar button acts on.
type Editor interface {
	// ApplySurround wraps the selection in head and tail. With no selection
	// the translated text of exampleKey is inserted between them.
	ApplySurround(head, tail, exampleKey string)
}

// ToolbarButton describes one composer toolbar button.
type ToolbarButton struct {
	ID    string
	Group string
	Icon  string
	// Title is a translation key.
	Title   string
	Perform func(e Editor)
}

// ToolbarButtons returns the buttons inserting login-only and reply-only
// blocks.
func ToolbarButtons() []ToolbarButton {
	return []ToolbarButton{
		{
			ID:    "insert_login_tag",
			Group: "extras",
			Icon:  "lock",
			Title: KeyLoginButtonTitle,
			Perform: func(e Editor) {
				e.ApplySurround("\n[login]\n", "\n[/login]\n", KeyLoginDefaultText)
			},
		},
		{
			ID:    "insert_reply_tag",
			Group: "extras",
			Icon:  "comment",
			Title: KeyReplyButtonTitle,
			Perform: func(e Editor) {
				e.ApplySurround("\n[reply]\n", "\n[/reply]\n", KeyReplyDefaultText)
			},
		},
	}
}

// RegisterToolbar adds the buttons to tb.
func RegisterToolbar(tb Toolbar) {
	for _, b := range ToolbarButtons() {
		tb.AddButton(b)
	}
}

// TextEditor is an in-memory Editor over a composer's raw text.
type TextEditor struct {
	Text string
	// SelStart and SelEnd are byte offsets of the selection; equal when
	// nothing is selected.
	SelStart int
	SelEnd   int
	Strings  *Strings
}

var _ Editor = (*TextEditor)(nil)

// ApplySurround implements Editor. The inserted or wrapped text is left
// selected.
func (e *TextEditor) ApplySurround(head, tail, exampleKey string) {
	start, end := e.clampSelection()
	selected := e.Text[start:end]
	if selected == "" && e.Strings != nil {
		selected = e.Strings.Lookup(exampleKey)
	}
	e.Text = e.Text[:start] + head + selected + tail + e.Text[end:]
	e.SelStart = start + len(head)
	e.SelEnd = e.SelStart + len(selected)
}

func (e *TextEditor) clampSelection() (int, int) {
	start, end := e.SelStart, e.SelEnd
	if start > end {
		start, end = end, start
	}
	start = max(0, min(start, len(e.Text)))
	end = max(start, min(end, len(e.Text)))
	return start, end
}
