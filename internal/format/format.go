// Package format provides the named text transforms applied to dictated
// operands — case styles for voice-driven coding ("snake case my variable
// name" → "my_variable_name").
//
// The table is built once at startup and is read-only afterwards; all
// transforms are pure functions and safe for concurrent use.
package format

import (
	"sort"
	"strings"
)

// Func is a pure text transform.
type Func func(string) string

// Spec pairs a formatter name with its transform.
type Spec struct {
	Name      string
	Transform Func
}

// words splits text into lowercase words.
func words(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

// Snake converts "hello world" to "hello_world".
func Snake(text string) string {
	return strings.Join(words(text), "_")
}

// Camel converts "hello world" to "helloWorld".
func Camel(text string) string {
	ws := words(text)
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(ws[0])
	for _, w := range ws[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// Pascal converts "hello world" to "HelloWorld".
func Pascal(text string) string {
	var b strings.Builder
	for _, w := range words(text) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// Kebab converts "hello world" to "hello-world".
func Kebab(text string) string {
	return strings.Join(words(text), "-")
}

// Dot converts "hello world" to "hello.world".
func Dot(text string) string {
	return strings.Join(words(text), ".")
}

// Slash converts "hello world" to "hello/world".
func Slash(text string) string {
	return strings.Join(words(text), "/")
}

// Upper converts "hello world" to "HELLO WORLD".
func Upper(text string) string {
	return strings.ToUpper(text)
}

// Lower converts "Hello World" to "hello world".
func Lower(text string) string {
	return strings.ToLower(text)
}

// Title converts "hello world" to "Hello World".
func Title(text string) string {
	ws := strings.Fields(strings.ToLower(text))
	for i, w := range ws {
		ws[i] = capitalize(w)
	}
	return strings.Join(ws, " ")
}

// Constant converts "hello world" to "HELLO_WORLD".
func Constant(text string) string {
	return strings.ToUpper(Snake(text))
}

// Table is a read-only formatter lookup built once at startup.
type Table struct {
	byName map[string]Func
	// names sorted longest-first so "snake case" wins over "snake".
	names []string
}

// Default returns the built-in formatter table. Spoken aliases ("snake
// case", "all caps") map to the same transform as the short names.
func Default() *Table {
	return NewTable(map[string]Func{
		"snake":         Snake,
		"snake case":    Snake,
		"camel":         Camel,
		"camel case":    Camel,
		"pascal":        Pascal,
		"pascal case":   Pascal,
		"kebab":         Kebab,
		"kebab case":    Kebab,
		"dot":           Dot,
		"dot case":      Dot,
		"slash":         Slash,
		"slash case":    Slash,
		"upper":         Upper,
		"upper case":    Upper,
		"lower":         Lower,
		"lower case":    Lower,
		"title":         Title,
		"title case":    Title,
		"constant":      Constant,
		"constant case": Constant,
		"all caps":      Constant,
	})
}

// NewTable builds a Table from the given name → transform mapping.
func NewTable(m map[string]Func) *Table {
	t := &Table{
		byName: make(map[string]Func, len(m)),
		names:  make([]string, 0, len(m)),
	}
	for name, fn := range m {
		t.byName[name] = fn
		t.names = append(t.names, name)
	}
	sort.Slice(t.names, func(i, j int) bool {
		if len(t.names[i]) != len(t.names[j]) {
			return len(t.names[i]) > len(t.names[j])
		}
		return t.names[i] < t.names[j]
	})
	return t
}

// Lookup returns the transform registered under name.
func (t *Table) Lookup(name string) (Func, bool) {
	fn, ok := t.byName[name]
	return fn, ok
}

// TryPrefix checks whether text starts with a formatter name followed by an
// operand. It returns the formatted operand and the formatter name, or
// ok=false when no formatter prefix matches or the operand is empty.
//
// Longest names are tried first so "snake case my var" resolves the
// "snake case" formatter rather than "snake" with operand "case my var".
func (t *Table) TryPrefix(text string) (formatted, name string, ok bool) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, n := range t.names {
		if !strings.HasPrefix(lower, n+" ") {
			continue
		}
		operand := strings.TrimSpace(text[len(n):])
		if operand == "" {
			continue
		}
		return t.byName[n](operand), n, true
	}
	return "", "", false
}
