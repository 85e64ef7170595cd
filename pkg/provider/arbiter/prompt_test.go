package arbiter_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/voxctl/pkg/provider/arbiter"
	"github.com/MrWong99/voxctl/pkg/types"
)

func TestParseDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    arbiter.Decision
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"intent":"command","confidence":0.92,"command_ref":"close tab"}`,
			want: arbiter.Decision{Intent: arbiter.IntentCommand, Confidence: 0.92, CommandRef: "close tab"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"intent\":\"dictation\",\"confidence\":0.8,\"formatted_text\":\"close the tab\"}\n```",
			want: arbiter.Decision{Intent: arbiter.IntentDictation, Confidence: 0.8, FormattedText: "close the tab"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"intent\":\"dictation\",\"confidence\":1}\n```",
			want: arbiter.Decision{Intent: arbiter.IntentDictation, Confidence: 1},
		},
		{name: "not json", raw: "I think it's a command.", wantErr: true},
		{name: "unknown intent", raw: `{"intent":"maybe","confidence":0.5}`, wantErr: true},
		{name: "confidence out of range", raw: `{"intent":"dictation","confidence":1.5}`, wantErr: true},
		{name: "command without ref", raw: `{"intent":"command","confidence":0.9}`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := arbiter.ParseDecision(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseDecision(%q) succeeded, want error", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecision(%q): %v", tc.raw, err)
			}
			if *got != tc.want {
				t.Errorf("ParseDecision(%q) = %+v, want %+v", tc.raw, *got, tc.want)
			}
		})
	}
}

func TestSystemPromptListsCandidates(t *testing.T) {
	t.Parallel()

	p := arbiter.SystemPrompt([]string{"undo", "go to line"})
	for _, want := range []string{"- undo", "- go to line", "command_ref"} {
		if !strings.Contains(p, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestUserPromptIncludesWindowContext(t *testing.T) {
	t.Parallel()

	p := arbiter.UserPrompt(arbiter.Request{
		Transcript: "close the tab",
		Window:     types.WindowContext{AppID: "org.gnome.Terminal", WindowTitle: "bash"},
	})
	if !strings.Contains(p, "close the tab") || !strings.Contains(p, "org.gnome.Terminal") {
		t.Errorf("user prompt incomplete: %q", p)
	}
}
