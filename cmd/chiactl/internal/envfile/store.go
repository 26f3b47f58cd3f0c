// Package envfile reads and mutates the flat KEY=VALUE configuration file
// that each managed service keeps next to its compose files. The file is
// created by an external bootstrap step (copy from the .env.example shipped
// with the service); the controller only ever rewrites individual keys and
// never creates the file itself, so a missing bootstrap is surfaced instead
// of masked.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrConfigMissing is returned when the configuration file does not
	// exist. The store never creates the file.
	ErrConfigMissing = errors.New("configuration file not found")

	// ErrKeyNotFound is returned by Get for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)

// Store provides atomic get/set of named fields in one env file.
//
// Concurrent controller invocations against the same file are not a
// supported mode; the store does no locking (single-operator model).
type Store struct {
	path string
}

// NewStore returns a Store bound to path. The file is not touched until
// Get or Set is called.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store is bound to.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the configuration file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Get returns the value for key, or ErrKeyNotFound. Lines that are not
// KEY=VALUE pairs (comments, blanks) are ignored.
func (s *Store) Get(key string) (string, error) {
	lines, _, err := s.readLines()
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		if k, v, ok := splitPair(line); ok && k == key {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// Set rewrites the line for key in place, or appends KEY=VALUE when the key
// is absent. All other lines, including comments and unknown keys, are
// preserved byte for byte. Setting an already-current value leaves the file
// byte-identical.
func (s *Store) Set(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\n") {
		return fmt.Errorf("invalid key %q", key)
	}
	if strings.Contains(value, "\n") {
		return fmt.Errorf("invalid value for %s: must be a single line", key)
	}

	lines, trailingNewline, err := s.readLines()
	if err != nil {
		return err
	}

	target := key + "=" + value
	replaced := false
	changed := false
	for i, line := range lines {
		if k, _, ok := splitPair(line); ok && k == key {
			if line != target {
				lines[i] = target
				changed = true
			}
			replaced = true
			break
		}
	}
	if !replaced {
		// Append after the last non-empty line to keep trailing blanks stable.
		lines = append(lines, target)
		changed = true
	}
	if !changed {
		return nil
	}
	return s.writeLines(lines, trailingNewline)
}

// readLines loads the file as lines, reporting separately whether the file
// ended with a newline so a rewrite can preserve that. A missing file maps
// to ErrConfigMissing.
func (s *Store) readLines() (lines []string, trailingNewline bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, fmt.Errorf("%w: %s", ErrConfigMissing, s.path)
		}
		return nil, false, fmt.Errorf("reading %s: %w", s.path, err)
	}
	// An empty file counts as newline-terminated so the first appended key
	// still gets a conventional ending.
	trailingNewline = len(data) == 0 || strings.HasSuffix(string(data), "\n")
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []string{}, trailingNewline, nil
	}
	return strings.Split(text, "\n"), trailingNewline, nil
}

// writeLines persists lines with the file's original permissions and final
// newline state.
func (s *Store) writeLines(lines []string, trailingNewline bool) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConfigMissing, s.path)
	}
	content := strings.Join(lines, "\n")
	if trailingNewline {
		content += "\n"
	}
	if err := os.WriteFile(s.path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// splitPair parses a KEY=VALUE line. Comment and blank lines report ok=false.
func splitPair(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	idx := strings.Index(line, "=")
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), line[idx+1:], true
}
