package sqlguard

import (
	"fmt"
	"strings"
)

// UnsafeStatementError reports a statement that is not a plain SELECT.
type UnsafeStatementError struct {
	Statement string
}

func (e *UnsafeStatementError) Error() string {
	return fmt.Sprintf("expected a SELECT statement but got: %q", e.Statement)
}

// AssertSafe accepts only statements that start with the SELECT keyword.
func AssertSafe(statement string) error {
	trimmed := strings.TrimSpace(statement)
	const keyword = "select"
	if len(trimmed) < len(keyword) || !strings.EqualFold(trimmed[:len(keyword)], keyword) {
		return &UnsafeStatementError{Statement: statement}
	}
	if len(trimmed) > len(keyword) && isIdentByte(trimmed[len(keyword)]) {
		return &UnsafeStatementError{Statement: statement}
	}
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}
