package arbiter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrWong99/voxctl/pkg/types"
)

// SystemPrompt builds the instruction block shared by all model-backed
// providers. The command catalog is embedded so the model can only
// reference commands that actually exist.
func SystemPrompt(candidates []string) string {
	var b strings.Builder
	b.WriteString(`You classify a fragment of speech from a voice-controlled editor.
Decide whether the speaker intended an editor command or ordinary prose.

Respond with a single JSON object and nothing else:
{"intent": "command" or "dictation", "confidence": 0.0-1.0, "formatted_text": "text to type when dictation", "command_ref": "command name when command"}

command_ref must be one of the known commands listed below, or empty.
Known commands:
`)
	for _, c := range candidates {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return b.String()
}

// UserPrompt renders one request as the model's user message.
func UserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcript: %q\n", req.Transcript)
	if req.Window != (types.WindowContext{}) {
		fmt.Fprintf(&b, "Active application: %s\n", req.Window.AppID)
		fmt.Fprintf(&b, "Window title: %s\n", req.Window.WindowTitle)
		if req.Window.CursorMode != "" {
			fmt.Fprintf(&b, "Cursor mode: %s\n", req.Window.CursorMode)
		}
	}
	return b.String()
}

// ParseDecision extracts a Decision from raw model output. Models wrap
// JSON in markdown fences often enough that stripping them here saves
// every provider doing it.
func ParseDecision(raw string) (*Decision, error) {
	cleaned := strings.TrimSpace(raw)
	if after, found := strings.CutPrefix(cleaned, "```json"); found {
		cleaned = after
	} else if after, found := strings.CutPrefix(cleaned, "```"); found {
		cleaned = after
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	cleaned = strings.TrimSpace(cleaned)

	var d Decision
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("arbiter: parse decision: %w", err)
	}
	switch d.Intent {
	case IntentCommand, IntentDictation:
	default:
		return nil, fmt.Errorf("arbiter: unknown intent %q", d.Intent)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("arbiter: confidence %v out of range", d.Confidence)
	}
	if d.Intent == IntentCommand && d.CommandRef == "" {
		return nil, fmt.Errorf("arbiter: command intent without command_ref")
	}
	return &d, nil
}
