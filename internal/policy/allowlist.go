package policy

import "strings"

// AllowList holds the caller identities permitted to run privileged in-band
// commands. Authorization is a pure membership check; the identities
// themselves come from configuration.
type AllowList struct {
	ids map[string]struct{}
}

func NewAllowList(ids []string) *AllowList {
	allow := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		allow[id] = struct{}{}
	}
	return &AllowList{ids: allow}
}

func (a *AllowList) Allowed(id string) bool {
	_, ok := a.ids[id]
	return ok
}

func (a *AllowList) Len() int { return len(a.ids) }
