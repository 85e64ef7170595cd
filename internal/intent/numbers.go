package intent

import (
	"strconv"
	"strings"
)

// numberWords maps spoken number words to their values.
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// numberAliases maps common recognizer homophone errors to the number word
// the speaker meant. "go to line for" is almost always "go to line four".
var numberAliases = map[string]string{
	"to":   "two",
	"too":  "two",
	"for":  "four",
	"fore": "four",
	"won":  "one",
	"ate":  "eight",
	"tree": "three",
	"free": "three",
	"sex":  "six",
}

// ParseNumber parses a normalized slot region into an integer value.
// Accepted forms:
//
//	digits:          "50", "127"
//	number words:    "fifty", "twenty five", "one hundred", "two hundred six"
//	homophone fixes: "for" → 4, "to" → 2 (aliased reports true)
//
// aliased is true when at least one token was resolved through the
// misrecognition alias table; callers use it to discount match confidence.
func ParseNumber(region string) (value int, aliased, ok bool) {
	tokens := strings.Fields(region)
	if len(tokens) == 0 {
		return 0, false, false
	}

	// Pure digit form. Only valid as a single token.
	if len(tokens) == 1 {
		if n, err := strconv.Atoi(tokens[0]); err == nil && n >= 0 {
			return n, false, true
		}
	}

	total := 0
	current := 0
	seen := false
	for _, tok := range tokens {
		word := tok
		if canonical, isAlias := numberAliases[word]; isAlias {
			word = canonical
			aliased = true
		}
		switch {
		case word == "hundred":
			if !seen {
				return 0, false, false
			}
			if current == 0 {
				current = 1
			}
			current *= 100
		case word == "and":
			// "one hundred and six" — filler, skip.
		default:
			n, isWord := numberWords[word]
			if !isWord {
				return 0, false, false
			}
			// "twenty five" composes; "five three" does not.
			if current != 0 && (current%10 != 0 || current < 20 || n >= 10) && current < 100 {
				return 0, false, false
			}
			current += n
			seen = true
		}
	}
	if !seen {
		return 0, false, false
	}
	total += current
	return total, aliased, true
}
