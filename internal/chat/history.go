package chat

import (
	"errors"
	"strings"
	"sync"
)

// TokenBudget is the ceiling on a conversation's running token estimate.
// Appending a turn that would push the estimate past it purges the oldest
// half of each log first.
const TokenBudget = 1500

var ErrNoAITurn = errors.New("no agent turn to continue")

// HumanTurn is a single human contribution with the speaker's display name.
type HumanTurn struct {
	Name string
	Line string
}

// Sampling holds per-conversation sampling parameters for the completion
// service. Each field is independently unset (nil) or set.
type Sampling struct {
	Temperature      *float64
	TopP             *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

// DefaultSampling returns the sampling parameters a fresh conversation
// starts with.
func DefaultSampling() Sampling {
	temperature := 0.9
	topP := 1
	presence := 0.6
	frequency := 0.0
	return Sampling{
		Temperature:      &temperature,
		TopP:             &topP,
		PresencePenalty:  &presence,
		FrequencyPenalty: &frequency,
	}
}

// History is the full mutable state tracked for one ongoing conversation:
// interleaved human and agent logs, the set of speaker names seen so far, a
// running token estimate, the system preamble and the sampling parameters.
type History struct {
	private bool

	mu        sync.RWMutex
	humanLog  []HumanTurn
	aiLog     []string
	seenNames map[string]struct{}
	tokens    int
	sampling  Sampling

	onPurge func()

	// The preamble has its own lock because it participates in a long read
	// (rendering the whole context) while a racing replacement must not
	// deadlock. Lock order is always mu before preambleMu; mu is never
	// acquired while preambleMu is held.
	preambleMu sync.RWMutex
	preamble   string
}

func NewHistory(private bool, preamble string, sampling Sampling) *History {
	return &History{
		private:   private,
		seenNames: make(map[string]struct{}),
		tokens:    EstimateTokens(preamble),
		sampling:  sampling,
		preamble:  preamble,
	}
}

func (h *History) Private() bool { return h.private }

// SetPurgeHook registers a callback invoked whenever the budget forces a
// purge. Used for instrumentation; the hook must not call back into the
// History.
func (h *History) SetPurgeHook(hook func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPurge = hook
}

// AddHumanLine records the speaker's name and appends a human turn,
// purging the oldest half of each log first if the turn would overflow the
// budget.
func (h *History) AddHumanLine(name, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seenNames[name] = struct{}{}
	h.fit(h.humanCost(name, line))
	h.humanLog = append(h.humanLog, HumanTurn{Name: name, Line: line})
}

// AddAILine appends a new agent turn under the same budget policy.
func (h *History) AddAILine(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fit(EstimateTokens(line) + 1)
	h.aiLog = append(h.aiLog, line)
}

// ContinueLastAILine concatenates a completion fragment onto the most
// recent agent turn. Returns ErrNoAITurn when there is no agent turn yet;
// the fragment is dropped in that case.
func (h *History) ContinueLastAILine(fragment string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.aiLog) == 0 {
		return ErrNoAITurn
	}
	h.fit(EstimateTokens(fragment))
	h.aiLog[len(h.aiLog)-1] += fragment
	return nil
}

// Reset clears both logs and the speaker-name set. The token estimate is
// recomputed from the preamble alone.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.humanLog = nil
	h.aiLog = nil
	h.seenNames = make(map[string]struct{})
	h.tokens = EstimateTokens(h.readPreamble())
}

// fit makes room for a turn costing cost tokens and counts it. The purge
// happens before the new turn is counted, so the estimate may sit above the
// budget only for the span of the one line just added.
func (h *History) fit(cost int) {
	if h.tokens+cost > TokenBudget {
		h.purgeHalf()
		h.recalc()
		if h.onPurge != nil {
			h.onPurge()
		}
	}
	h.tokens += cost
}

// purgeHalf drops the oldest floor(n/2) entries of each log independently.
func (h *History) purgeHalf() {
	h.humanLog = append([]HumanTurn(nil), h.humanLog[len(h.humanLog)/2:]...)
	h.aiLog = append([]string(nil), h.aiLog[len(h.aiLog)/2:]...)
}

// recalc recomputes the estimate over the entire surviving state. Walking
// only a delta would drift after truncation changes the base.
func (h *History) recalc() {
	total := EstimateTokens(h.readPreamble())
	for _, turn := range h.humanLog {
		total += h.humanCost(turn.Name, turn.Line)
	}
	for _, line := range h.aiLog {
		total += EstimateTokens(line) + 1
	}
	h.tokens = total
}

// humanCost is the full cost of a human turn: the line plus its speaker
// label ("Human" in private conversations, the stored name otherwise).
func (h *History) humanCost(name, line string) int {
	if h.private {
		return EstimateTokens(line) + 1
	}
	return EstimateTokens(line) + EstimateTokens(name)
}

func (h *History) TokenEstimate() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens
}

// Render serializes the context as a prompt: the preamble, a blank line,
// then strictly alternating turns starting with a human turn. The final
// line, when both logs are exhausted at the same point, ends in a single
// space instead of a newline so the completion service continues from it.
func (h *History) Render(agentName string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var buf strings.Builder
	buf.WriteString(h.readPreamble())
	buf.WriteString("\n\n")

	humanIdx, aiIdx := 0, 0
	humanTalking := true
	for humanIdx < len(h.humanLog) || aiIdx < len(h.aiLog) {
		if humanTalking {
			if humanIdx < len(h.humanLog) {
				turn := h.humanLog[humanIdx]
				humanIdx++
				label := turn.Name
				if h.private {
					label = "Human"
				}
				buf.WriteString(label)
				buf.WriteString(": ")
				buf.WriteString(strings.TrimSpace(turn.Line))
				buf.WriteString(h.lineEnd(humanIdx, aiIdx))
			}
		} else if aiIdx < len(h.aiLog) {
			line := h.aiLog[aiIdx]
			aiIdx++
			buf.WriteString(agentName)
			buf.WriteString(": ")
			buf.WriteString(strings.TrimSpace(line))
			buf.WriteString(h.lineEnd(humanIdx, aiIdx))
		}
		humanTalking = !humanTalking
	}
	return buf.String()
}

func (h *History) lineEnd(humanIdx, aiIdx int) string {
	if humanIdx >= len(h.humanLog) && aiIdx >= len(h.aiLog) {
		return " "
	}
	return "\n"
}

// StopTokens returns the stop strings for a completion call: a bare newline
// and the agent's own label, plus "Human:" in private conversations or up
// to two seen speaker labels otherwise. Map iteration order makes the
// non-private pick a non-deterministic tie-break, which is acceptable.
func (h *History) StopTokens(agentName string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stops := make([]string, 0, 4)
	stops = append(stops, "\n", agentName+":")
	if h.private {
		return append(stops, "Human:")
	}
	for name := range h.seenNames {
		if len(stops) == 4 {
			break
		}
		stops = append(stops, name+":")
	}
	return stops
}

func (h *History) Preamble() string {
	return h.readPreamble()
}

// SetPreamble replaces the system preamble. Callers that need the token
// estimate to follow should Reset afterwards; SetPreamble itself touches
// only the preamble lock.
func (h *History) SetPreamble(text string) {
	h.preambleMu.Lock()
	h.preamble = text
	h.preambleMu.Unlock()
}

func (h *History) readPreamble() string {
	h.preambleMu.RLock()
	defer h.preambleMu.RUnlock()
	return h.preamble
}

func (h *History) Sampling() Sampling {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sampling
}

func (h *History) SetTemperature(v *float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sampling.Temperature = v
}

func (h *History) SetTopP(v *int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sampling.TopP = v
}

func (h *History) SetPresencePenalty(v *float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sampling.PresencePenalty = v
}

func (h *History) SetFrequencyPenalty(v *float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sampling.FrequencyPenalty = v
}

// Stats reports the current turn counts.
func (h *History) Stats() (humanTurns, aiTurns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.humanLog), len(h.aiLog)
}
