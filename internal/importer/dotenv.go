package importer

import (
	"bufio"
	"io"
	"strings"
)

// Entry is a single key/value pair read from an import file.
type Entry struct {
	Key   string
	Value string
}

// Parse reads dotenv-style lines from r:
//
//   - a line is split at the first `=`; lines without one are skipped
//   - an unescaped `#` starts a comment that runs to the end of the line,
//     even in the middle of a value; `\#` is a literal `#`
//   - blank and comment-only lines are skipped
//
// Later entries for the same key win; collision handling is left to the
// store, which overwrites on import.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if entry, ok := parseLine(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func parseLine(line string) (Entry, bool) {
	line = stripComment(line)
	line = strings.TrimSpace(line)
	if line == "" {
		return Entry{}, false
	}

	key, value, found := strings.Cut(line, "=")
	if !found {
		return Entry{}, false
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, false
	}

	return Entry{Key: key, Value: strings.TrimSpace(value)}, true
}

// stripComment drops everything from the first unescaped `#` and unescapes
// `\#` sequences before it.
func stripComment(line string) string {
	var b strings.Builder
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			if r != '#' {
				b.WriteRune('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '#':
			return b.String()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}

	return b.String()
}
