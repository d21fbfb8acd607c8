package command

import (
	"errors"
	"strings"
)

type token struct {
	text string
	// eq is the byte offset of the first unquoted '=' in text, -1 if none
	eq int
	// quoted is set when the value part was written entirely inside quotes
	quoted bool
}

var (
	errUnterminatedQuote  = errors.New("unterminated quote")
	errUnbalancedBrackets = errors.New("unbalanced brackets")
	errTrailingEscape     = errors.New("trailing backslash")
)

type tokenizer struct {
	tokens []token
	buf    strings.Builder
	eq     int

	valueQuoted bool
	valuePlain  bool
	started     bool
}

func (t *tokenizer) flush() {
	if !t.started {
		return
	}
	t.tokens = append(t.tokens, token{
		text:   t.buf.String(),
		eq:     t.eq,
		quoted: t.valueQuoted && !t.valuePlain,
	})
	t.buf.Reset()
	t.eq = -1
	t.valueQuoted = false
	t.valuePlain = false
	t.started = false
}

func (t *tokenizer) plain(r rune) {
	t.started = true
	t.valuePlain = true
	t.buf.WriteRune(r)
}

func tokenize(s string) ([]token, error) {
	t := &tokenizer{eq: -1}
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			t.flush()

		case r == '\'':
			end := indexRune(runes, i+1, '\'')
			if end < 0 {
				return nil, errUnterminatedQuote
			}
			t.started = true
			t.valueQuoted = true
			t.buf.WriteString(string(runes[i+1 : end]))
			i = end

		case r == '"':
			next, err := t.doubleQuoted(runes, i+1)
			if err != nil {
				return nil, err
			}
			i = next

		case r == '[' || r == '{':
			end, err := matchBrackets(runes, i)
			if err != nil {
				return nil, err
			}
			t.started = true
			t.valuePlain = true
			t.buf.WriteString(string(runes[i : end+1]))
			i = end

		case r == '=' && t.eq < 0:
			t.started = true
			t.eq = t.buf.Len()
			t.buf.WriteRune(r)
			// quoting before '=' belongs to the key
			t.valueQuoted = false
			t.valuePlain = false

		default:
			t.plain(r)
		}
	}
	t.flush()

	return t.tokens, nil
}

// doubleQuoted consumes a double-quoted run starting after the opening quote
// and returns the index of the closing quote.
func (t *tokenizer) doubleQuoted(runes []rune, start int) (int, error) {
	t.started = true
	t.valueQuoted = true
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if i+1 >= len(runes) {
				return 0, errTrailingEscape
			}
			i++
			t.buf.WriteRune(runes[i])
		case '"':
			return i, nil
		default:
			t.buf.WriteRune(runes[i])
		}
	}
	return 0, errUnterminatedQuote
}

// matchBrackets returns the index closing the bracket at start. Quoted
// strings inside are skipped so brackets in them do not count.
func matchBrackets(runes []rune, start int) (int, error) {
	depth := 0
	inString := false
	for i := start; i < len(runes); i++ {
		r := runes[i]
		if inString {
			switch r {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	if inString {
		return 0, errUnterminatedQuote
	}
	return 0, errUnbalancedBrackets
}

func indexRune(runes []rune, from int, want rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == want {
			return i
		}
	}
	return -1
}
