package chat

import "strings"

// EstimateTokens approximates the token cost of a line as the number of
// whitespace-delimited fields. This is a deliberately cheap proxy; it will
// not match the completion service's own accounting and callers must not
// assume it does.
func EstimateTokens(line string) int {
	return len(strings.Fields(line))
}
