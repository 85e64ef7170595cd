package replay_test

import (
	"context"
	"strings"
	"testing"

	"github.com/MrWong99/voxctl/internal/intent"
	"github.com/MrWong99/voxctl/internal/replay"
)

func newMatcher(t *testing.T) *intent.Matcher {
	t.Helper()
	reg, err := intent.NewRegistry(intent.DefaultDefinitions())
	if err != nil {
		t.Fatal(err)
	}
	return intent.NewMatcher(reg)
}

func TestParseCases(t *testing.T) {
	t.Parallel()

	input := `{"text":"go to line fifty","expect":[{"stage":"parameterized","command":"go to line","args":{"number":"50"}}]}

{"text":"undo. redo.","expect":[{"stage":"exact"},{"stage":"exact"}]}
`
	cases, err := replay.ParseCases(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	if cases[0].Expect[0].Args["number"] != "50" {
		t.Errorf("expectation args = %v", cases[0].Expect[0].Args)
	}
}

func TestParseCasesRejectsBadLine(t *testing.T) {
	t.Parallel()

	if _, err := replay.ParseCases(strings.NewReader("nonsense\n")); err == nil {
		t.Fatal("malformed line must error")
	}
}

func TestRunPasses(t *testing.T) {
	t.Parallel()

	cases := []replay.Case{
		{
			Text: "go to line fifty. this is a note.",
			Expect: []replay.Expectation{
				{Stage: "parameterized", Command: "go to line", Args: map[string]string{"number": "50"}},
				{Stage: "dictation", Text: "this is a note"},
			},
		},
		{
			Text:   "snake case my variable name",
			Expect: []replay.Expectation{{Stage: "formatter", Text: "my_variable_name"}},
		},
		{
			Text:   "tap bravo alpha delta",
			Expect: []replay.Expectation{{Stage: "nato", Text: "BAD"}},
		},
	}

	report, err := replay.Run(context.Background(), newMatcher(t), cases)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("report not OK:\n%s", report)
	}
	if report.Cases != 3 || report.Segments != 4 || report.Checked != 4 {
		t.Errorf("counts = %d/%d/%d, want 3/4/4", report.Cases, report.Segments, report.Checked)
	}
	if report.Latency.Count != 4 {
		t.Errorf("latency samples = %d, want 4", report.Latency.Count)
	}
	if len(report.Actions) != 1 || report.Actions[0].Args["number"] != "50" {
		t.Errorf("captured actions = %v, want one goto-line with number=50", report.Actions)
	}
	wantTexts := []string{"this is a note", "my_variable_name", "BAD"}
	if len(report.Texts) != len(wantTexts) {
		t.Fatalf("captured texts = %v, want %d emissions", report.Texts, len(wantTexts))
	}
	for i, want := range wantTexts {
		if report.Texts[i].Content != want {
			t.Errorf("texts[%d] = %q, want %q", i, report.Texts[i].Content, want)
		}
	}
}

func TestRunReportsFailures(t *testing.T) {
	t.Parallel()

	cases := []replay.Case{
		{
			Text:   "undo",
			Expect: []replay.Expectation{{Stage: "exact", Command: "redo"}},
		},
	}
	report, err := replay.Run(context.Background(), newMatcher(t), cases)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() || len(report.Failures) != 1 {
		t.Fatalf("report = %s, want one failure", report)
	}
	if !strings.Contains(report.Failures[0].Detail, "redo") {
		t.Errorf("failure detail %q should name the expectation", report.Failures[0].Detail)
	}
}

func TestRunUncheckedTail(t *testing.T) {
	t.Parallel()

	cases := []replay.Case{{Text: "undo. redo. copy."}}
	report, err := replay.Run(context.Background(), newMatcher(t), cases)
	if err != nil {
		t.Fatal(err)
	}
	if report.Segments != 3 || report.Checked != 0 {
		t.Errorf("segments/checked = %d/%d, want 3/0", report.Segments, report.Checked)
	}
	if !report.OK() {
		t.Error("unchecked run must be OK")
	}
}
