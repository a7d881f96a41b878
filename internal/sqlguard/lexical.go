package sqlguard

import "strings"

// skipEnd returns the index just past the string literal, quoted identifier or comment that
// starts at i, or -1 when none starts there. It knows '...', "...", E'...', $$...$$,
// $tag$...$tag$, -- line comments and /* */ block comments. Unterminated forms run to the end.
func skipEnd(text string, i int) int {
	c := text[i]
	switch {
	case c == '\'' || c == '"':
		return closingQuote(text, i, false)
	case (c == 'E' || c == 'e') && i+1 < len(text) && text[i+1] == '\'' && !afterIdent(text, i):
		return closingQuote(text, i+1, true)
	case c == '$' && !afterIdent(text, i):
		return dollarQuoteEnd(text, i)
	case c == '-' && strings.HasPrefix(text[i:], "--"):
		if end := strings.IndexByte(text[i:], '\n'); end >= 0 {
			return i + end
		}
		return len(text)
	case c == '/' && strings.HasPrefix(text[i:], "/*"):
		if end := strings.Index(text[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(text)
	}
	return -1
}

// closingQuote returns the index just past the quote that closes the one at start.
// Doubled quotes are escapes, and so are backslashes when backslash is set.
func closingQuote(text string, start int, backslash bool) int {
	quote := text[start]
	for i := start + 1; i < len(text); i++ {
		switch {
		case backslash && text[i] == '\\':
			i++
		case text[i] == quote:
			if i+1 < len(text) && text[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(text)
}

// dollarQuoteEnd handles $$...$$ and $tag$...$tag$. Positional parameters such as $1 are not quotes.
func dollarQuoteEnd(text string, start int) int {
	j := start + 1
	for j < len(text) && isIdentByte(text[j]) {
		j++
	}
	if j >= len(text) || text[j] != '$' {
		return -1
	}
	if j > start+1 && !isIdentStart(text[start+1]) {
		return -1
	}
	delimiter := text[start : j+1]
	if end := strings.Index(text[j+1:], delimiter); end >= 0 {
		return j + 1 + end + len(delimiter)
	}
	return len(text)
}

func afterIdent(text string, i int) bool {
	return i > 0 && isIdentByte(text[i-1])
}
