package intent

import "testing"

func TestNATOCollapse(t *testing.T) {
	t.Parallel()

	nato := NewNATO()

	tests := []struct {
		name    string
		in      string
		text    string
		whole   bool
		hit     bool
		minConf float64
	}{
		{"simple run", "charlie alpha tango", "cat", true, true, 1.0},
		{"alias spellings", "alfa bravo charlie", "abc", true, true, 1.0},
		{"uppercase trigger", "cap charlie alpha tango", "CAT", true, true, 1.0},
		{"tap mishearing", "tap foxtrot oscar oscar", "FOO", true, true, 1.0},
		{"partial segment", "spell hotel india", "spell hi", false, true, 0.9},
		{"two runs", "alpha bravo stop charlie delta", "ab stop cd", false, true, 0.9},
		{"single codeword is prose", "the hotel was nice", "", false, false, 0},
		{"no codewords", "go to line five", "", false, false, 0},
		{"lone codeword", "hotel", "", false, false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := nato.Collapse(tc.in)
			if ok != tc.hit {
				t.Fatalf("Collapse(%q) ok=%v, want %v", tc.in, ok, tc.hit)
			}
			if !ok {
				return
			}
			if got.Text != tc.text {
				t.Errorf("Collapse(%q).Text = %q, want %q", tc.in, got.Text, tc.text)
			}
			if got.WholeSegment != tc.whole {
				t.Errorf("Collapse(%q).WholeSegment = %v, want %v", tc.in, got.WholeSegment, tc.whole)
			}
			if got.Confidence < tc.minConf {
				t.Errorf("Collapse(%q).Confidence = %v, want >= %v", tc.in, got.Confidence, tc.minConf)
			}
		})
	}
}

func TestNATOPhoneticAssist(t *testing.T) {
	t.Parallel()

	// "brovo" shares bravo's phonetic code and scores above the fuzzy
	// floor, so it resolves with the assist penalty applied.
	nato := NewNATO()
	got, ok := nato.Collapse("alpha brovo")
	if !ok {
		t.Fatal("expected a collapse hit")
	}
	if got.Text != "ab" {
		t.Errorf("Text = %q, want %q", got.Text, "ab")
	}
	if got.Confidence >= 1.0 {
		t.Errorf("Confidence = %v, want < 1.0 for an assisted resolution", got.Confidence)
	}

	strict := NewNATO(WithoutNATOPhoneticAssist())
	if _, ok := strict.Collapse("alpha brovo"); ok {
		t.Error("assist disabled: 'brovo' must not resolve")
	}
}

func TestNATOLetter(t *testing.T) {
	t.Parallel()

	nato := NewNATO()
	if l, ok := nato.Letter("Quebec"); !ok || l != 'q' {
		t.Errorf("Letter(Quebec) = (%q, %v), want ('q', true)", l, ok)
	}
	if _, ok := nato.Letter("spell"); ok {
		t.Error("Letter(spell) resolved, want miss")
	}
}
