package command

import (
	"strings"

	"github.com/rfcbot/rfcbot/internal/domain"
)

// Parser extracts commands from raw comment bodies. A line is only
// considered when it contains the bot's mention token; anything that
// does not match the fixed vocabulary is dropped silently. Parsing
// never fails: the worst outcome for a line is no command.
type Parser struct {
	mention string
}

func NewParser(mention string) *Parser {
	return &Parser{mention: mention}
}

// Parse returns the commands found in body, in line order, at most one
// per line.
func (p *Parser) Parse(body string) []Command {
	var cmds []Command
	for _, line := range splitLines(body) {
		if !strings.Contains(line, p.mention) {
			continue
		}
		if cmd := p.parseLine(line); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func (p *Parser) parseLine(line string) Command {
	rest := strings.TrimSpace(line)
	for strings.HasPrefix(rest, p.mention) {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, p.mention))
		rest = strings.TrimSpace(strings.TrimLeft(rest, ":"))
	}
	rest = trimSuffixAll(rest, ":")
	rest = strings.TrimSpace(rest)

	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return nil
	}

	switch tokens[0] {
	case "pr", "rfc":
		if len(tokens) < 2 {
			return nil
		}
		return parseSubcommand(line, tokens[1])
	case "f?":
		if len(tokens) < 2 {
			return nil
		}
		user := strings.TrimLeft(tokens[1], "@")
		if user == "" {
			return nil
		}
		return FeedbackRequest{User: user}
	default:
		// bare-form invocation: the first token is the subcommand
		return parseSubcommand(line, tokens[0])
	}
}

// parseSubcommand matches the fixed, case-sensitive vocabulary. The
// reason for concern/resolve commands is everything on the original
// line after the matched token, trimmed; it may be empty.
func parseSubcommand(line, sub string) Command {
	switch sub {
	case "merge", "merged", "merging", "merges":
		return Propose{Disposition: domain.DispositionMerge}
	case "close", "closed", "closing", "closes":
		return Propose{Disposition: domain.DispositionClose}
	case "postpone", "postponed", "postponing", "postpones":
		return Propose{Disposition: domain.DispositionPostpone}
	case "cancel", "canceled", "canceling", "cancels":
		return Cancel{}
	case "reviewed", "review", "reviewing", "reviews":
		return Reviewed{}
	case "concern", "concerned", "concerning", "concerns":
		return NewConcern{Reason: textAfter(line, sub)}
	case "resolved", "resolving", "resolves":
		return ResolveConcern{Reason: textAfter(line, sub)}
	default:
		return nil
	}
}

// textAfter returns the trimmed remainder of line following the first
// occurrence of token.
func textAfter(line, token string) string {
	idx := strings.Index(line, token)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+len(token):])
}

func splitLines(body string) []string {
	return strings.FieldsFunc(body, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
}

func trimSuffixAll(s, suffix string) string {
	if suffix == "" {
		return s
	}
	for strings.HasSuffix(s, suffix) {
		s = s[:len(s)-len(suffix)]
	}
	return s
}
