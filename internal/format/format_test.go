package format_test

import (
	"testing"

	"github.com/MrWong99/voxctl/internal/format"
)

func TestTransforms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   format.Func
		in   string
		want string
	}{
		{"snake", format.Snake, "my variable name", "my_variable_name"},
		{"camel", format.Camel, "hello world again", "helloWorldAgain"},
		{"pascal", format.Pascal, "hello world", "HelloWorld"},
		{"kebab", format.Kebab, "hello world", "hello-world"},
		{"dot", format.Dot, "hello world", "hello.world"},
		{"slash", format.Slash, "hello world", "hello/world"},
		{"upper", format.Upper, "hello world", "HELLO WORLD"},
		{"lower", format.Lower, "Hello World", "hello world"},
		{"title", format.Title, "hello world", "Hello World"},
		{"constant", format.Constant, "hello world", "HELLO_WORLD"},
		{"camel empty", format.Camel, "", ""},
		{"snake collapses spaces", format.Snake, "  a   b  ", "a_b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.fn(tc.in); got != tc.want {
				t.Errorf("%s(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
			}
		})
	}
}

func TestTryPrefix(t *testing.T) {
	t.Parallel()

	tbl := format.Default()

	tests := []struct {
		in        string
		formatted string
		name      string
		ok        bool
	}{
		{"snake case my variable name", "my_variable_name", "snake case", true},
		{"snake my variable name", "my_variable_name", "snake", true},
		{"camel hello world", "helloWorld", "camel", true},
		{"all caps max retries", "MAX_RETRIES", "all caps", true},
		{"constant case max retries", "MAX_RETRIES", "constant case", true},
		// A formatter name with no operand is not a formatter hit.
		{"snake case", "", "", false},
		{"snake", "", "", false},
		// Ordinary prose does not match.
		{"lets grab lunch later", "", "", false},
		// Names must be a word prefix, not a substring.
		{"snakes everywhere", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			formatted, name, ok := tbl.TryPrefix(tc.in)
			if ok != tc.ok {
				t.Fatalf("TryPrefix(%q) ok=%v, want %v", tc.in, ok, tc.ok)
			}
			if !ok {
				return
			}
			if formatted != tc.formatted || name != tc.name {
				t.Errorf("TryPrefix(%q) = (%q, %q), want (%q, %q)",
					tc.in, formatted, name, tc.formatted, tc.name)
			}
		})
	}
}

func TestLongestNameWins(t *testing.T) {
	t.Parallel()

	// "snake case x" must resolve "snake case", not "snake" with
	// operand "case x".
	formatted, name, ok := format.Default().TryPrefix("snake case x")
	if !ok {
		t.Fatal("expected a formatter hit")
	}
	if name != "snake case" {
		t.Errorf("name = %q, want %q", name, "snake case")
	}
	if formatted != "x" {
		t.Errorf("formatted = %q, want %q", formatted, "x")
	}
}
