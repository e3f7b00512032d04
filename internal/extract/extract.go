// Package extract recovers structured JSON from raw LLM output. Models wrap
// payloads in markdown fences, prepend commentary, truncate mid-field, and
// leave quotes unescaped; Repair applies a fixed sequence of purely textual
// transformations that turn near-valid output into strictly parseable JSON.
// Each step is idempotent and safe to run on already-valid input.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseError reports that no JSON object could be recovered. It carries
// truncated snippets of the ORIGINAL text, never the repaired buffer, so the
// root cause stays visible in diagnostics.
type ParseError struct {
	Err  error
	Head string
	Tail string
}

func (e *ParseError) Error() string {
	if e.Tail != "" && e.Tail != e.Head {
		return fmt.Sprintf("json extraction failed: %v (text starts %q, ends %q)", e.Err, e.Head, e.Tail)
	}
	return fmt.Sprintf("json extraction failed: %v (text: %q)", e.Err, e.Head)
}

func (e *ParseError) Unwrap() error { return e.Err }

const snippetLen = 160

// Extract runs the repair sequence over raw and parses the result strictly.
// It fails with *ParseError only when no object can be recovered at all.
func Extract(raw string) (map[string]any, error) {
	repaired := Repair(raw)
	if repaired == "" {
		return nil, &ParseError{
			Err:  errors.New("no JSON object found in text"),
			Head: headSnippet(raw),
			Tail: tailSnippet(raw),
		}
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, &ParseError{
			Err:  err,
			Head: headSnippet(raw),
			Tail: tailSnippet(raw),
		}
	}
	return v, nil
}

// Repair applies the textual repair steps in order:
//
//  1. strip markdown code-fence wrappers
//  2. take the largest balanced {...} span (or first '{' to end if none closes)
//  3. drop trailing commas before a closing '}' / ']'
//  4. close a dangling unterminated string at the end of the buffer
//  5. strip a trailing incomplete key/value fragment (truncated mid-field)
//  6. append the closers for unmatched '{' / '[', innermost first
//  7. best-effort escape unescaped interior quotes in string values
//
// No step re-parses; the result of repairing already-repaired text is the
// same text.
func Repair(raw string) string {
	s := stripCodeFences(raw)
	s = objectSpan(s)
	if s == "" {
		return ""
	}
	s = removeTrailingCommas(s)
	s = closeDanglingString(s)
	s = stripTrailingFragment(s)
	s = balanceBrackets(s)
	s = escapeInteriorQuotes(s)
	return s
}

// stripCodeFences removes a leading ```/```json line and a trailing ``` line.
func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		if nl := strings.IndexByte(t, '\n'); nl != -1 {
			t = t[nl+1:]
		} else {
			t = strings.TrimPrefix(t, "```")
		}
	}
	t = strings.TrimSpace(t)
	if strings.HasSuffix(t, "```") {
		t = strings.TrimSpace(t[:len(t)-3])
	}
	return t
}

// objectSpan returns the largest balanced top-level object literal in s.
// Models often emit commentary around (or between) objects, so the largest
// balanced span beats a naive first-brace/last-brace slice. When no candidate
// closes, the span runs from the first '{' to the end of the buffer and later
// steps finish the job.
func objectSpan(s string) string {
	best := ""
	for i := 0; i < len(s); {
		if s[i] != '{' {
			i++
			continue
		}
		end := matchBrace(s, i)
		if end == -1 {
			if len(s)-i > len(best) {
				best = s[i:]
			}
			break
		}
		if end-i+1 > len(best) {
			best = s[i : end+1]
		}
		i = end + 1
	}
	return best
}

// matchBrace returns the index of the '}' matching the '{' at start, or -1.
// String contents (including escaped quotes) are skipped.
func matchBrace(s string, start int) int {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// removeTrailingCommas drops any comma whose next non-whitespace character is
// a closing '}' or ']'.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			b.WriteByte(c)
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closeDanglingString closes a string left unterminated at the end of the
// buffer. A trailing lone backslash (a truncated escape) is dropped first so
// the appended quote actually terminates the string.
func closeDanglingString(s string) string {
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
		}
	}
	if !inStr {
		return s
	}
	if esc {
		s = s[:len(s)-1]
	}
	return s + `"`
}

// stripTrailingFragment removes an incomplete key/value fragment left by
// truncation: a bare trailing comma, a dangling `"key":` with no value, or a
// `, "key"` (no colon) inside an object.
func stripTrailingFragment(s string) string {
	t := strings.TrimRight(s, " \t\r\n")

	if strings.HasSuffix(t, ",") {
		return strings.TrimRight(t[:len(t)-1], " \t\r\n")
	}

	if strings.HasSuffix(t, ":") {
		u := strings.TrimRight(t[:len(t)-1], " \t\r\n")
		start := closingStringStart(u)
		if start == -1 {
			return u
		}
		v := strings.TrimRight(u[:start], " \t\r\n")
		if strings.HasSuffix(v, ",") {
			v = v[:len(v)-1]
		}
		return strings.TrimRight(v, " \t\r\n")
	}

	if strings.HasSuffix(t, `"`) {
		start := closingStringStart(t)
		if start != -1 && containerAt(t, start) == '{' {
			v := strings.TrimRight(t[:start], " \t\r\n")
			if strings.HasSuffix(v, ",") {
				return strings.TrimRight(v[:len(v)-1], " \t\r\n")
			}
			if strings.HasSuffix(v, "{") {
				return v
			}
		}
	}

	return s
}

// closingStringStart returns the index of the quote opening the string whose
// closing quote is the last character of s, or -1 when s does not end with a
// complete string.
func closingStringStart(s string) int {
	if !strings.HasSuffix(s, `"`) {
		return -1
	}
	inStr, esc := false, false
	start, lastStart, lastEnd := -1, -1, -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
				lastStart, lastEnd = start, i
			}
			continue
		}
		if c == '"' {
			inStr = true
			start = i
		}
	}
	if lastEnd == len(s)-1 {
		return lastStart
	}
	return -1
}

// containerAt returns the innermost open bracket ('{' or '[') enclosing
// position idx, or 0 at top level.
func containerAt(s string, idx int) byte {
	var stack []byte
	inStr, esc := false, false
	for i := 0; i < idx && i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

// balanceBrackets appends the exact closers for unmatched '{' / '[' at the
// end of the buffer, innermost first (so arrays close before the objects that
// contain them).
func balanceBrackets(s string) string {
	var stack []byte
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(stack))
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// escapeInteriorQuotes escapes a quote inside a delimited string value unless
// its next non-whitespace character is structural (',', '}', ']', ':') or the
// end of the buffer — in valid JSON a closing quote is always followed by one
// of those.
func escapeInteriorQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inStr {
			if c == '"' {
				inStr = true
			}
			b.WriteByte(c)
			continue
		}
		if esc {
			esc = false
			b.WriteByte(c)
			continue
		}
		if c == '\\' {
			esc = true
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j >= len(s) || s[j] == ',' || s[j] == '}' || s[j] == ']' || s[j] == ':' {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func headSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}

func tailSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLen {
		return "..." + s[len(s)-snippetLen:]
	}
	return s
}
