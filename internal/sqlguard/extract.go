// Package sqlguard turns untrusted model output into a single repaired, read-only statement.
package sqlguard

import (
	"regexp"
	"strings"
)

var (
	sqlFencePattern = regexp.MustCompile("(?is)```[ \\t]*sql\\b(.*?)```")
	anyFencePattern = regexp.MustCompile("(?s)```(.*?)```")
	fenceTagPattern = regexp.MustCompile(`^[A-Za-z0-9_+-]*$`)
)

// ExtractStatement pulls the first statement out of free-form model output.
// A ```sql fence wins over any other fence, which wins over the raw text.
// The result may be empty.
func ExtractStatement(output string) string {
	body := strings.TrimSpace(output)
	if match := sqlFencePattern.FindStringSubmatch(output); match != nil {
		body = match[1]
	} else if match := anyFencePattern.FindStringSubmatch(output); match != nil {
		body = dropFenceTag(match[1])
	}
	body = strings.ReplaceAll(body, "`", "")
	return strings.TrimSpace(firstStatement(body))
}

// dropFenceTag removes a language tag such as "postgres" from the first fence line.
func dropFenceTag(interior string) string {
	head, rest, found := strings.Cut(interior, "\n")
	if found && fenceTagPattern.MatchString(strings.TrimSpace(head)) {
		return rest
	}
	return interior
}

// firstStatement cuts at the first semicolon outside literals, quoted identifiers and comments.
func firstStatement(text string) string {
	for i := 0; i < len(text); {
		if end := skipEnd(text, i); end > i {
			i = end
			continue
		}
		if text[i] == ';' {
			return text[:i]
		}
		i++
	}
	return text
}
