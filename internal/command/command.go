// Package command parses and applies the privileged in-band commands that
// tune a conversation's configuration or inspect its state.
package command

import "strings"

// Kind tags the command variants.
type Kind string

const (
	KindTemperature      Kind = "temperature"
	KindFrequencyPenalty Kind = "frequency_penalty"
	KindPresencePenalty  Kind = "presence_penalty"
	KindTopP             Kind = "top_p"
	KindReset            Kind = "reset"
	KindLog              Kind = "log"
	KindContext          Kind = "context"
	KindInfo             Kind = "info"
	KindUnknown          Kind = "unknown"
)

// Command is one parsed command line. Arg carries the value text for the
// option commands and the replacement text for context; it is empty when
// the command was given bare.
type Command struct {
	Kind Kind
	Arg  string
}

// Parse matches a line against the command set by literal prefix. ok is
// false when the line does not start with the designated prefix at all; a
// prefixed line matching no command parses as KindUnknown.
func Parse(line, prefix string) (Command, bool) {
	if prefix == "" || !strings.HasPrefix(line, prefix) {
		return Command{}, false
	}
	body := line[len(prefix):]

	switch {
	case strings.HasPrefix(body, "context="):
		return Command{Kind: KindContext, Arg: body[len("context="):]}, true
	case strings.HasPrefix(body, "temperature"):
		return Command{Kind: KindTemperature, Arg: argAfter(body, "temperature")}, true
	case strings.HasPrefix(body, "frequency_penalty"):
		return Command{Kind: KindFrequencyPenalty, Arg: argAfter(body, "frequency_penalty")}, true
	case strings.HasPrefix(body, "presence_penalty"):
		return Command{Kind: KindPresencePenalty, Arg: argAfter(body, "presence_penalty")}, true
	case strings.HasPrefix(body, "top_p"):
		return Command{Kind: KindTopP, Arg: argAfter(body, "top_p")}, true
	case strings.HasPrefix(body, "reset"):
		return Command{Kind: KindReset}, true
	case strings.HasPrefix(body, "log"):
		return Command{Kind: KindLog}, true
	case strings.HasPrefix(body, "info"):
		return Command{Kind: KindInfo}, true
	default:
		return Command{Kind: KindUnknown}, true
	}
}

// argAfter returns the value text following a command name and its single
// separator character.
func argAfter(body, name string) string {
	if len(body) <= len(name)+1 {
		return ""
	}
	return body[len(name)+1:]
}
