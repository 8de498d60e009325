package confirm

import (
	"sync"
	"time"
)

// MuteEntry captures one muted call site.
type MuteEntry struct {
	Site    string
	MutedAt time.Time
}

// MuteList caches sites the developer chose to stop prompting for. Muted
// sites still log and still return false from the guard; only the dialog is
// skipped. The list lives for the process, matching the lifetime of the
// assertion site registry.
type MuteList struct {
	mu      sync.RWMutex
	entries map[string]MuteEntry
}

// NewMuteList constructs an empty mute list.
func NewMuteList() *MuteList {
	return &MuteList{entries: map[string]MuteEntry{}}
}

// Muted reports whether prompts from site are suppressed.
func (m *MuteList) Muted(site string) bool {
	if m == nil || site == "" {
		return false
	}
	m.mu.RLock()
	_, ok := m.entries[site]
	m.mu.RUnlock()
	return ok
}

// Add mutes a site. Idempotent; the first mute time wins.
func (m *MuteList) Add(site string, now time.Time) MuteEntry {
	entry := MuteEntry{Site: site, MutedAt: now.UTC()}
	m.mu.Lock()
	if existing, ok := m.entries[site]; ok {
		entry = existing
	} else {
		m.entries[site] = entry
	}
	m.mu.Unlock()
	return entry
}

// Remove unmutes a site.
func (m *MuteList) Remove(site string) {
	m.mu.Lock()
	delete(m.entries, site)
	m.mu.Unlock()
}

// Snapshot returns a copy of all mute entries.
func (m *MuteList) Snapshot() []MuteEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MuteEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}
