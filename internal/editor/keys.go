package editor

import (
	"unicode"

	"golang.org/x/mobile/event/key"
)

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// Action names bound to shortcuts.
const (
	actionAdd        = "add"
	actionDelete     = "delete"
	actionUndo       = "undo"
	actionFilter     = "filter"
	actionFrame      = "frame"
	actionEdit       = "edit"
	actionSave       = "save"
	actionCopy       = "copy"
	actionShare      = "share"
	actionOpen       = "open"
	actionPaste      = "paste"
	actionGrow       = "grow"
	actionShrink     = "shrink"
	actionDeselect   = "deselect"
	actionQuit       = "quit"
	actionLeft       = "left"
	actionRight      = "right"
	actionUp         = "up"
	actionDown       = "down"
	actionLeftFast   = "left-fast"
	actionRightFast  = "right-fast"
	actionUpFast     = "up-fast"
	actionDownFast   = "down-fast"
	actionCycleFocus = "next"
	actionColor      = "colour"
)

var keyboardAction = map[KeyShortcut]string{
	{Rune: 'a'}:                            actionAdd,
	{Code: key.CodeDeleteForward}:          actionDelete,
	{Code: key.CodeDeleteBackspace}:        actionDelete,
	{Rune: 'u'}:                            actionUndo,
	{Rune: 'z', Modifiers: key.ModControl}: actionUndo,
	{Rune: 'f'}:                            actionFilter,
	{Rune: 'r'}:                            actionFrame,
	{Code: key.CodeReturnEnter}:            actionEdit,
	{Rune: 's', Modifiers: key.ModControl}: actionSave,
	{Rune: 'c', Modifiers: key.ModControl}: actionCopy,
	{Rune: 'p'}:                            actionShare,
	{Rune: 'o'}:                            actionOpen,
	{Rune: 'v', Modifiers: key.ModControl}: actionPaste,
	{Rune: '+'}:                            actionGrow,
	{Rune: '='}:                            actionGrow,
	{Rune: '-'}:                            actionShrink,
	{Rune: 'k'}:                            actionColor,
	{Code: key.CodeEscape}:                 actionDeselect,
	{Rune: 'q'}:                            actionQuit,
	{Code: key.CodeTab}:                    actionCycleFocus,
	{Code: key.CodeLeftArrow}:              actionLeft,
	{Code: key.CodeRightArrow}:             actionRight,
	{Code: key.CodeUpArrow}:                actionUp,
	{Code: key.CodeDownArrow}:              actionDown,

	{Code: key.CodeLeftArrow, Modifiers: key.ModShift}:  actionLeftFast,
	{Code: key.CodeRightArrow, Modifiers: key.ModShift}: actionRightFast,
	{Code: key.CodeUpArrow, Modifiers: key.ModShift}:    actionUpFast,
	{Code: key.CodeDownArrow, Modifiers: key.ModShift}:  actionDownFast,
}

// shortcutFor normalises a key event into a map key. Named keys match by
// code; printable keys match by lower-case rune.
func shortcutFor(e key.Event) KeyShortcut {
	mods := e.Modifiers & (key.ModControl | key.ModShift)
	switch e.Code {
	case key.CodeDeleteForward, key.CodeDeleteBackspace, key.CodeReturnEnter, key.CodeEscape, key.CodeTab,
		key.CodeLeftArrow, key.CodeRightArrow, key.CodeUpArrow, key.CodeDownArrow:
		return KeyShortcut{Code: e.Code, Modifiers: mods}
	}
	r := e.Rune
	if mods&key.ModControl != 0 && r > 0 && r < 27 {
		// some drivers report Ctrl+letter as the control character
		r += 'a' - 1
	}
	if mods&key.ModControl == 0 {
		// shift is already folded into the rune for printable keys
		mods = 0
	}
	return KeyShortcut{Rune: unicode.ToLower(r), Modifiers: mods}
}

// helpText is shown in the status bar.
const helpText = "a:add  enter:edit  arrows:move  del:delete  u:undo  k:colour  f:filter  r:frame  ^S:save  ^C:copy  p:share  q:quit"
