package diffproto

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// hunkHeaderRe matches a unified diff hunk header, e.g. "@@ -1,3 +1,4 @@".
var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Apply reconstructs a program by applying a unified diff hunk to the base
// text. Context and deletion lines must match the base exactly; any mismatch,
// malformed header, or out-of-range reference fails the whole application.
func Apply(base, diff string) (string, error) {
	baseLines := strings.Split(base, "\n")
	diffLines := strings.Split(diff, "\n")

	var out []string
	cursor := 0 // index into baseLines of the next uncopied line

	i := 0
	applied := 0
	for i < len(diffLines) {
		line := diffLines[i]
		m := hunkHeaderRe.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) == "" {
				i++
				continue
			}
			return "", fmt.Errorf("unexpected line outside hunk: %q", line)
		}

		start, err := strconv.Atoi(m[1])
		if err != nil {
			return "", fmt.Errorf("bad hunk header %q: %w", line, err)
		}
		// Hunk line numbers are 1-based; a zero start means an empty base.
		if start > 0 {
			start--
		}
		if start < cursor || start > len(baseLines) {
			return "", fmt.Errorf("hunk start %d out of range", start+1)
		}

		out = append(out, baseLines[cursor:start]...)
		cursor = start
		i++

		for i < len(diffLines) {
			line = diffLines[i]
			if hunkHeaderRe.MatchString(line) {
				break
			}
			switch {
			case line == "" && i == len(diffLines)-1:
				// trailing newline from hunk truncation
			case strings.HasPrefix(line, " "):
				if cursor >= len(baseLines) || baseLines[cursor] != line[1:] {
					return "", fmt.Errorf("context mismatch at base line %d", cursor+1)
				}
				out = append(out, baseLines[cursor])
				cursor++
			case strings.HasPrefix(line, "-"):
				if cursor >= len(baseLines) || baseLines[cursor] != line[1:] {
					return "", fmt.Errorf("deletion mismatch at base line %d", cursor+1)
				}
				cursor++
			case strings.HasPrefix(line, "+"):
				out = append(out, line[1:])
			default:
				return "", fmt.Errorf("bad hunk line prefix: %q", line)
			}
			i++
		}
		applied++
	}

	if applied == 0 {
		return "", fmt.Errorf("no hunks in diff")
	}

	out = append(out, baseLines[cursor:]...)
	return strings.Join(out, "\n"), nil
}
