package chat

import (
	"errors"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		line string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"hello there world", 3},
		{"  spaced   out  ", 2},
		{"tabs\tand\nnewlines", 3},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.line); got != tc.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", tc.line, got, tc.want)
		}
	}
}

func TestTokenEstimateAccumulates(t *testing.T) {
	h := NewHistory(false, "Hello there.", DefaultSampling())
	if got := h.TokenEstimate(); got != 2 {
		t.Fatalf("initial estimate = %d, want 2", got)
	}

	h.AddHumanLine("Alice", "hi there friend") // 3 + 1 for the name
	h.AddAILine("hey you")                     // 2 + 1 for the agent label
	if got := h.TokenEstimate(); got != 2+4+3 {
		t.Fatalf("estimate = %d, want %d", got, 2+4+3)
	}
}

func TestTokenEstimatePrivateHumanCost(t *testing.T) {
	h := NewHistory(true, "Hello.", DefaultSampling())
	h.AddHumanLine("Alice Smith", "hi there") // 2 + 1; the two-word name does not count
	if got := h.TokenEstimate(); got != 1+3 {
		t.Fatalf("estimate = %d, want %d", got, 1+3)
	}
}

func TestPurgeHalfMatchesRecomputation(t *testing.T) {
	h := NewHistory(false, "Hello.", DefaultSampling())
	line := strings.Repeat("word ", 100) // 100 fields, cost 101 with the name

	// 14 turns fit: 1 + 14*101 = 1415. The 15th would hit 1516 and must
	// purge the oldest 7 first.
	for i := 0; i < 15; i++ {
		h.AddHumanLine("A", line)
	}

	humans, ais := h.Stats()
	if humans != 8 || ais != 0 {
		t.Fatalf("turns after purge = (%d, %d), want (8, 0)", humans, ais)
	}
	want := 1 + 8*101
	if got := h.TokenEstimate(); got != want {
		t.Fatalf("estimate after purge = %d, want %d", got, want)
	}
}

func TestPurgeDropsHalfOfEachLogIndependently(t *testing.T) {
	h := NewHistory(false, "Hello.", DefaultSampling())
	h.AddHumanLine("A", "one")
	h.AddHumanLine("A", "two")
	h.AddHumanLine("A", "three")
	h.AddAILine("reply one")
	// 1 + 3*2 + 3 = 10 so far; a 1492-token line overflows and purges
	// floor(3/2)=1 human turn and floor(1/2)=0 agent turns.
	h.AddHumanLine("A", strings.Repeat("x ", 1490))

	humans, ais := h.Stats()
	if humans != 3 || ais != 1 {
		t.Fatalf("turns after purge = (%d, %d), want (3, 1)", humans, ais)
	}
	rendered := h.Render("Bot")
	if strings.Contains(rendered, "A: one") {
		t.Fatalf("oldest human turn should have been purged:\n%s", rendered)
	}
	if !strings.Contains(rendered, "A: two") || !strings.Contains(rendered, "Bot: reply one") {
		t.Fatalf("surviving turns missing from render:\n%s", rendered)
	}
}

func TestRenderSingleHumanTurn(t *testing.T) {
	h := NewHistory(false, "Hello.", DefaultSampling())
	h.AddHumanLine("Alice", "hi")
	if got := h.Render("Bot"); got != "Hello.\n\nAlice: hi " {
		t.Fatalf("Render() = %q, want %q", got, "Hello.\n\nAlice: hi ")
	}
}

func TestRenderAlternatingTurns(t *testing.T) {
	h := NewHistory(false, "Hello.", DefaultSampling())
	h.AddHumanLine("A", "hi")
	h.AddAILine("hey")
	if got := h.Render("Bot"); got != "Hello.\n\nA: hi\nBot: hey " {
		t.Fatalf("Render() = %q, want %q", got, "Hello.\n\nA: hi\nBot: hey ")
	}
}

func TestRenderPrivateUsesHumanLabel(t *testing.T) {
	h := NewHistory(true, "Hello.", DefaultSampling())
	h.AddHumanLine("Alice", "hi")
	h.AddAILine("hey")
	if got := h.Render("Bot"); got != "Hello.\n\nHuman: hi\nBot: hey " {
		t.Fatalf("Render() = %q, want %q", got, "Hello.\n\nHuman: hi\nBot: hey ")
	}
}

func TestRenderTrimsTurnText(t *testing.T) {
	h := NewHistory(false, "Hello.", DefaultSampling())
	h.AddHumanLine("A", "  hi  ")
	h.AddAILine("  hey  ")
	if got := h.Render("Bot"); got != "Hello.\n\nA: hi\nBot: hey " {
		t.Fatalf("Render() = %q, want %q", got, "Hello.\n\nA: hi\nBot: hey ")
	}
}

func TestRenderUnequalLogs(t *testing.T) {
	h := NewHistory(false, "P", DefaultSampling())
	h.AddHumanLine("A", "h1")
	h.AddAILine("a1")
	h.AddHumanLine("A", "h2")
	if got := h.Render("Bot"); got != "P\n\nA: h1\nBot: a1\nA: h2 " {
		t.Fatalf("Render() = %q, want %q", got, "P\n\nA: h1\nBot: a1\nA: h2 ")
	}

	h2 := NewHistory(false, "P", DefaultSampling())
	h2.AddHumanLine("A", "h1")
	h2.AddAILine("a1")
	h2.AddAILine("a2")
	if got := h2.Render("Bot"); got != "P\n\nA: h1\nBot: a1\nBot: a2 " {
		t.Fatalf("Render() = %q, want %q", got, "P\n\nA: h1\nBot: a1\nBot: a2 ")
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	h := NewHistory(false, "Hello.", DefaultSampling())
	h.AddHumanLine("A", "hi")
	h.AddAILine("hey")
	h.AddHumanLine("A", "more")
	first := h.Render("Bot")
	second := h.Render("Bot")
	if first != second {
		t.Fatalf("successive renders differ:\n%q\n%q", first, second)
	}
}

func TestContinueLastAILine(t *testing.T) {
	h := NewHistory(false, "P", DefaultSampling())
	if err := h.ContinueLastAILine("orphan"); !errors.Is(err, ErrNoAITurn) {
		t.Fatalf("ContinueLastAILine() error = %v, want ErrNoAITurn", err)
	}

	h.AddHumanLine("A", "hi")
	h.AddAILine("hey there")
	if err := h.ContinueLastAILine(" and more"); err != nil {
		t.Fatalf("ContinueLastAILine() error = %v", err)
	}
	_, ais := h.Stats()
	if ais != 1 {
		t.Fatalf("agent turns = %d, want 1 (continuation must merge)", ais)
	}
	if got := h.Render("Bot"); got != "P\n\nA: hi\nBot: hey there and more " {
		t.Fatalf("Render() = %q", got)
	}
}

func TestResetClearsLogsAndNames(t *testing.T) {
	h := NewHistory(false, "Hello there.", DefaultSampling())
	h.AddHumanLine("Alice", "hi")
	h.AddAILine("hey")
	h.Reset()

	if got := h.TokenEstimate(); got != 2 {
		t.Fatalf("estimate after reset = %d, want 2", got)
	}
	if got := h.Render("Bot"); got != "Hello there.\n\n" {
		t.Fatalf("Render() after reset = %q", got)
	}
	stops := h.StopTokens("Bot")
	if len(stops) != 2 {
		t.Fatalf("stop tokens after reset = %v, want only newline and agent label", stops)
	}
}

func TestStopTokensPrivate(t *testing.T) {
	h := NewHistory(true, "P", DefaultSampling())
	h.AddHumanLine("Alice", "hi")
	got := h.StopTokens("Bot")
	want := []string{"\n", "Bot:", "Human:"}
	if len(got) != len(want) {
		t.Fatalf("StopTokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("StopTokens() = %v, want %v", got, want)
		}
	}
}

func TestStopTokensPublicCapsSeenNames(t *testing.T) {
	h := NewHistory(false, "P", DefaultSampling())
	h.AddHumanLine("Alice", "hi")
	h.AddHumanLine("Bob", "yo")
	h.AddHumanLine("Carol", "hey")

	got := h.StopTokens("Bot")
	if len(got) != 4 {
		t.Fatalf("StopTokens() = %v, want newline, agent label and 2 speaker labels", got)
	}
	if got[0] != "\n" || got[1] != "Bot:" {
		t.Fatalf("StopTokens() = %v, want fixed leading entries", got)
	}
	seen := map[string]bool{"Alice:": true, "Bob:": true, "Carol:": true}
	if !seen[got[2]] || !seen[got[3]] || got[2] == got[3] {
		t.Fatalf("StopTokens() speaker labels = %v, want 2 distinct seen names", got[2:])
	}
}

func TestSetPreambleAffectsRenderAndReset(t *testing.T) {
	h := NewHistory(false, "Old context.", DefaultSampling())
	h.AddHumanLine("A", "hi")
	h.SetPreamble("New context here.")
	h.Reset()

	if got := h.TokenEstimate(); got != 3 {
		t.Fatalf("estimate = %d, want 3", got)
	}
	if got := h.Render("Bot"); got != "New context here.\n\n" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestSamplingSettersClearAndSet(t *testing.T) {
	h := NewHistory(false, "P", DefaultSampling())
	s := h.Sampling()
	if s.Temperature == nil || *s.Temperature != 0.9 {
		t.Fatalf("default temperature = %v, want 0.9", s.Temperature)
	}
	if s.TopP == nil || *s.TopP != 1 {
		t.Fatalf("default top_p = %v, want 1", s.TopP)
	}

	h.SetTemperature(nil)
	if h.Sampling().Temperature != nil {
		t.Fatalf("temperature should be cleared")
	}

	v := 0.5
	h.SetTemperature(&v)
	got := h.Sampling()
	if got.Temperature == nil || *got.Temperature != 0.5 {
		t.Fatalf("temperature = %v, want 0.5", got.Temperature)
	}
}
