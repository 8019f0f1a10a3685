package chat

import (
	"sort"
	"sync"
)

// Summary is a read-only snapshot of one conversation, for inspection.
type Summary struct {
	Key           string `json:"key"`
	Private       bool   `json:"private"`
	TokenEstimate int    `json:"token_estimate"`
	HumanTurns    int    `json:"human_turns"`
	AITurns       int    `json:"ai_turns"`
}

// Registry maps opaque conversation keys to their History. Entries are
// created lazily on the first observed message and live for the process.
type Registry struct {
	mu        sync.RWMutex
	histories map[string]*History
	preamble  string
	onPurge   func()
}

// NewRegistry returns a registry whose new conversations start with the
// given preamble and the default sampling parameters.
func NewRegistry(defaultPreamble string) *Registry {
	return &Registry{
		histories: make(map[string]*History),
		preamble:  defaultPreamble,
	}
}

// SetPurgeHook registers a callback installed on every conversation created
// afterwards, invoked when its budget forces a purge.
func (r *Registry) SetPurgeHook(hook func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPurge = hook
}

// Get looks up an existing conversation.
func (r *Registry) Get(key string) (*History, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.histories[key]
	return h, ok
}

// GetOrCreate returns the conversation for key, creating it if absent. The
// get and the insert happen under one write lock, so two concurrent first
// messages for the same key resolve to the same History.
func (r *Registry) GetOrCreate(key string, private bool) *History {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histories[key]; ok {
		return h
	}
	h := NewHistory(private, r.preamble, DefaultSampling())
	if r.onPurge != nil {
		h.SetPurgeHook(r.onPurge)
	}
	r.histories[key] = h
	return h
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.histories)
}

// Snapshot returns per-conversation summaries sorted by key.
func (r *Registry) Snapshot() []Summary {
	r.mu.RLock()
	entries := make(map[string]*History, len(r.histories))
	for key, h := range r.histories {
		entries[key] = h
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for key, h := range entries {
		humans, ais := h.Stats()
		out = append(out, Summary{
			Key:           key,
			Private:       h.Private(),
			TokenEstimate: h.TokenEstimate(),
			HumanTurns:    humans,
			AITurns:       ais,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
