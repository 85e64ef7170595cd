package intent

import "github.com/MrWong99/voxctl/pkg/types"

// DefaultDefinitions is the built-in editor command set. A YAML config can
// extend or replace it; see internal/config.
func DefaultDefinitions() []Definition {
	return []Definition{
		// Editing.
		{Name: "undo", Pattern: "undo", Kind: types.ActionKeystroke, Payload: "ctrl+z"},
		{Name: "redo", Pattern: "redo", Kind: types.ActionKeystroke, Payload: "ctrl+shift+z"},
		{Name: "copy", Pattern: "copy", Kind: types.ActionKeystroke, Payload: "ctrl+c"},
		{Name: "cut", Pattern: "cut", Kind: types.ActionKeystroke, Payload: "ctrl+x"},
		{Name: "paste", Pattern: "paste", Kind: types.ActionKeystroke, Payload: "ctrl+v"},
		{Name: "save", Pattern: "save", Kind: types.ActionKeystroke, Payload: "ctrl+s"},
		{Name: "select all", Pattern: "select all", Kind: types.ActionKeystroke, Payload: "ctrl+a"},
		{Name: "delete that", Pattern: "delete that", Kind: types.ActionKeystroke, Payload: "ctrl+backspace"},

		// Keys.
		{Name: "new line", Pattern: "new line", Kind: types.ActionKeystroke, Payload: "enter"},
		{Name: "tab", Pattern: "tab", Kind: types.ActionKeystroke, Payload: "tab"},
		{Name: "escape", Pattern: "escape", Kind: types.ActionKeystroke, Payload: "escape"},

		// Movement.
		{Name: "go up", Pattern: "go up", Kind: types.ActionKeystroke, Payload: "up"},
		{Name: "go down", Pattern: "go down", Kind: types.ActionKeystroke, Payload: "down"},
		{Name: "go left", Pattern: "go left", Kind: types.ActionKeystroke, Payload: "left"},
		{Name: "go right", Pattern: "go right", Kind: types.ActionKeystroke, Payload: "right"},
		{Name: "page up", Pattern: "page up", Kind: types.ActionKeystroke, Payload: "pageup"},
		{Name: "page down", Pattern: "page down", Kind: types.ActionKeystroke, Payload: "pagedown"},
		{Name: "go home", Pattern: "go home", Kind: types.ActionKeystroke, Payload: "home"},
		{Name: "go end", Pattern: "go end", Kind: types.ActionKeystroke, Payload: "end"},

		// Tabs.
		{Name: "new tab", Pattern: "new tab", Kind: types.ActionKeystroke, Payload: "ctrl+t"},
		{Name: "close tab", Pattern: "close tab", Kind: types.ActionKeystroke, Payload: "ctrl+w"},
		{Name: "next tab", Pattern: "next tab", Kind: types.ActionKeystroke, Payload: "ctrl+tab"},
		{Name: "previous tab", Pattern: "previous tab", Kind: types.ActionKeystroke, Payload: "ctrl+shift+tab"},

		// Parameterized movement and editing. Macros receive the captured
		// args and expand them surface-side.
		{Name: "go to line", Pattern: "go to line <number>", Kind: types.ActionMacro, Payload: "goto-line"},
		{Name: "select line", Pattern: "select line <number>", Kind: types.ActionMacro, Payload: "select-line"},
		{Name: "go n direction", Pattern: "go <number> <direction>", Kind: types.ActionMacro, Payload: "move"},
		{Name: "go n words", Pattern: "go <number> words <direction>", Kind: types.ActionMacro, Payload: "move-words"},
		{Name: "delete n words", Pattern: "delete <number> words", Kind: types.ActionMacro, Payload: "delete-words"},
		{Name: "delete n", Pattern: "delete <number>", Kind: types.ActionMacro, Payload: "delete-chars"},

		// Literal insertion keeps the speaker's casing.
		{Name: "type", Pattern: "type <text>", Kind: types.ActionMacro, Payload: "type-text", PreserveCase: true},
		{Name: "insert", Pattern: "insert <text>", Kind: types.ActionMacro, Payload: "type-text", PreserveCase: true},
	}
}
