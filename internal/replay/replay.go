// Package replay runs recorded utterances through the matching pipeline
// and checks them against expected outcomes. It is the offline regression
// harness: record a session, annotate what should have happened, and
// re-verify after every registry or pipeline change.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrWong99/voxctl/internal/diag"
	"github.com/MrWong99/voxctl/internal/dispatch"
	"github.com/MrWong99/voxctl/internal/dispatch/surface"
	"github.com/MrWong99/voxctl/internal/intent"
	"github.com/MrWong99/voxctl/pkg/types"
)

// Case is one annotated utterance. Expectations apply per segment, in
// order; fewer expectations than segments means the tail is unchecked.
type Case struct {
	// Text is the utterance transcript.
	Text string `json:"text"`

	// Expect lists the per-segment expectations.
	Expect []Expectation `json:"expect"`
}

// Expectation describes what one segment should resolve to. Empty fields
// are not checked.
type Expectation struct {
	// Stage is the expected pipeline stage.
	Stage string `json:"stage,omitempty"`

	// Command is the expected command name for action results.
	Command string `json:"command,omitempty"`

	// Args are expected slot captures, checked key by key.
	Args map[string]string `json:"args,omitempty"`

	// Text is the expected emitted text for text results.
	Text string `json:"text,omitempty"`
}

// Failure records one expectation miss.
type Failure struct {
	Case    int
	Segment int
	Detail  string
}

func (f Failure) String() string {
	return fmt.Sprintf("case %d segment %d: %s", f.Case, f.Segment, f.Detail)
}

// Report is the outcome of one replay run.
type Report struct {
	Cases    int
	Segments int
	Checked  int
	Failures []Failure
	Latency  diag.Report

	// Actions and Texts record everything the run dispatched, in order,
	// so a replay shows what a live session would have injected.
	Actions []types.Action
	Texts   []types.FormattedText
}

// OK reports whether every checked expectation held.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// String renders a one-line summary followed by failures.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replay: %d cases, %d segments, %d checked, %d failed; latency %s",
		r.Cases, r.Segments, r.Checked, len(r.Failures), r.Latency)
	for _, f := range r.Failures {
		b.WriteString("\n  ")
		b.WriteString(f.String())
	}
	return b.String()
}

// ParseCases reads annotated cases from JSONL input.
func ParseCases(r io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var c Case
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", line, err)
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: scan: %w", err)
	}
	return cases, nil
}

// Run replays every case through the matcher and dispatches the results
// into a capture surface, mirroring the live path. The context is checked
// between cases so a replay over a large recording can be interrupted.
func Run(ctx context.Context, matcher *intent.Matcher, cases []Case) (Report, error) {
	tracker := diag.NewTracker()
	report := Report{Cases: len(cases)}
	rec := &surface.Capture{}
	router := dispatch.NewRouter(rec, rec)

	for ci, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		segments := intent.Split(c.Text)
		report.Segments += len(segments)

		for si, seg := range segments {
			start := time.Now()
			res := matcher.Match(seg.Text)
			tracker.Record(time.Since(start))

			if err := router.Dispatch(ctx, res); err != nil {
				report.Failures = append(report.Failures, Failure{
					Case: ci, Segment: si, Detail: fmt.Sprintf("dispatch: %v", err),
				})
			}

			if si >= len(c.Expect) {
				continue
			}
			report.Checked++
			check(&report, ci, si, c.Expect[si], res)
		}
	}

	report.Latency = tracker.Snapshot()
	report.Actions = rec.Actions()
	report.Texts = rec.Texts()
	return report, nil
}

func check(report *Report, ci, si int, want Expectation, got intent.Result) {
	fail := func(format string, args ...any) {
		report.Failures = append(report.Failures, Failure{
			Case: ci, Segment: si, Detail: fmt.Sprintf(format, args...),
		})
	}

	if want.Stage != "" && string(got.Stage) != want.Stage {
		fail("stage = %s, want %s", got.Stage, want.Stage)
	}
	if want.Command != "" {
		if got.Command == nil {
			fail("no command, want %q", want.Command)
		} else if got.Command.Name != want.Command {
			fail("command = %q, want %q", got.Command.Name, want.Command)
		}
	}
	if len(want.Args) > 0 {
		if got.Action == nil {
			fail("no action, want args %v", want.Args)
		} else {
			for k, v := range want.Args {
				if got.Action.Args[k] != v {
					fail("args[%q] = %q, want %q", k, got.Action.Args[k], v)
				}
			}
		}
	}
	if want.Text != "" {
		if got.Text == nil {
			fail("no text, want %q", want.Text)
		} else if got.Text.Content != want.Text {
			fail("text = %q, want %q", got.Text.Content, want.Text)
		}
	}
}
