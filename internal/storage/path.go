package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
	fileNamePattern      = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 ._-]{0,127}$`)
)

// SourceObjectKey joins a dataset prefix and a source file name into an object key.
// Every prefix segment and the file name are validated, so keys cannot escape the prefix.
func SourceObjectKey(dataset, fileName string) (string, error) {
	dataset = strings.Trim(strings.TrimSpace(dataset), "/")
	segments := []string{}
	if dataset != "" {
		for _, segment := range strings.Split(dataset, "/") {
			if err := validatePathComponent(segment, "dataset segment"); err != nil {
				return "", err
			}
			segments = append(segments, segment)
		}
	}
	if !fileNamePattern.MatchString(fileName) || strings.Contains(fileName, "..") {
		return "", fmt.Errorf("invalid file name: %q", fileName)
	}
	return path.Join(append(segments, fileName)...), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) || value == ".." {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
