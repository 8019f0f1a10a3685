package command

import (
	"fmt"
	"strconv"

	"github.com/antoniostano/dorothy/internal/chat"
	"github.com/antoniostano/dorothy/internal/policy"
)

const resetReply = "[Chatlog Cleared]"

// Interpreter applies parsed commands to a conversation. Only callers on
// the allow list may mutate or inspect anything; everyone else's prefixed
// lines are swallowed without a reply.
type Interpreter struct {
	allow     *policy.AllowList
	prefix    string
	agentName string
}

func NewInterpreter(allow *policy.AllowList, prefix, agentName string) *Interpreter {
	return &Interpreter{allow: allow, prefix: prefix, agentName: agentName}
}

// Handle interprets line against h. handled is false when the line carries
// no command prefix and should flow to the model instead. A malformed value
// silently keeps the prior setting; an unrecognized command is swallowed.
func (i *Interpreter) Handle(h *chat.History, callerID, line string) (reply string, handled bool) {
	cmd, ok := Parse(line, i.prefix)
	if !ok {
		return "", false
	}
	if !i.allow.Allowed(callerID) {
		return "", true
	}

	switch cmd.Kind {
	case KindTemperature:
		setFloat(cmd.Arg, h.SetTemperature)
	case KindFrequencyPenalty:
		setFloat(cmd.Arg, h.SetFrequencyPenalty)
	case KindPresencePenalty:
		setFloat(cmd.Arg, h.SetPresencePenalty)
	case KindTopP:
		if cmd.Arg == "" {
			h.SetTopP(nil)
		} else if v, err := strconv.Atoi(cmd.Arg); err == nil && v >= 0 {
			h.SetTopP(&v)
		}
	case KindReset:
		h.Reset()
		return resetReply, true
	case KindLog:
		return h.Render(i.agentName), true
	case KindContext:
		h.SetPreamble(cmd.Arg)
		h.Reset()
		return "Context set to:\n" + cmd.Arg, true
	case KindInfo:
		return i.infoText(h), true
	}
	return "", true
}

func setFloat(arg string, set func(*float64)) {
	if arg == "" {
		set(nil)
		return
	}
	if v, err := strconv.ParseFloat(arg, 64); err == nil {
		set(&v)
	}
}

func (i *Interpreter) infoText(h *chat.History) string {
	s := h.Sampling()
	return fmt.Sprintf(`temperature (%s): Controls randomness. Lowering results in less random completions; near zero the model becomes deterministic and repetitive.

top_p (%s): Controls diversity via nucleus sampling.

frequency_penalty (%s): Penalizes new tokens by their frequency in the text so far; decreases verbatim repetition.

presence_penalty (%s): Penalizes new tokens that already appear in the text so far; increases the likelihood of new topics.

Set any property like "%stop_p 2" or "%stemperature 0.6"; give no value to unset it.

The current context is:
%s
%d tokens so far`,
		floatStr(s.Temperature),
		intStr(s.TopP),
		floatStr(s.FrequencyPenalty),
		floatStr(s.PresencePenalty),
		i.prefix, i.prefix,
		h.Preamble(),
		h.TokenEstimate(),
	)
}

func floatStr(v *float64) string {
	if v == nil {
		return "Not set"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func intStr(v *int) string {
	if v == nil {
		return "Not set"
	}
	return strconv.Itoa(*v)
}
