package comment

import "strings"

// CheckedReviewers extracts the logins whose checkbox in a tracking
// comment body is ticked. Only unindented list items of the form
// "* [x] @login" (or "- [x] @login") count; the box marker is
// case-sensitive. Unchecked boxes and malformed lines yield nothing:
// this is a one-way signal that can only switch a reviewer on.
func CheckedReviewers(body string) []string {
	var logins []string
	for _, line := range splitBodyLines(body) {
		if login, ok := parseCheckedLine(line); ok {
			logins = append(logins, login)
		}
	}
	return logins
}

func parseCheckedLine(line string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(line, "* ["):
		rest = line[len("* ["):]
	case strings.HasPrefix(line, "- ["):
		rest = line[len("- ["):]
	default:
		return "", false
	}

	if !strings.HasPrefix(rest, "x") {
		return "", false
	}
	rest = strings.TrimPrefix(rest, "x")
	rest = strings.TrimPrefix(rest, "]")
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "@")

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

func splitBodyLines(body string) []string {
	return strings.FieldsFunc(body, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
}
