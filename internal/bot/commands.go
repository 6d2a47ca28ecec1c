package bot

import "strings"

// PostbackSplitChar separates the module prefix from the payload, as in "start$geo".
const PostbackSplitChar = "$"

// Commands is a set of slash commands a module answers to.
type Commands map[string]struct{}

// NewCommands builds a set from command names without the leading slash.
func NewCommands(names ...string) Commands {
	if len(names) == 0 {
		panic("bot: NewCommands needs at least one name")
	}
	set := make(Commands, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

// Match returns the lower-cased command that text starts with, or "".
// The command word must be followed by whitespace or end the text, so
// "/add" does not match "/address".
func (c Commands) Match(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, ok := strings.CutPrefix(fields[0], "/")
	if !ok {
		return ""
	}
	name = strings.ToLower(name)
	if _, ok := c[name]; !ok {
		return ""
	}
	return name
}

// CommandArgs returns the whitespace-separated arguments after the command word.
func CommandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// IsCommand reports whether text starts with "/".
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
