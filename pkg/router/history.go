package router

import "sync"

// Location is one history entry.
type Location struct {
	Path  string `json:"path"`
	State any    `json:"state,omitempty"`
}

// History is the navigation stack the router drives.
type History interface {
	Push(path string, state any)
	Replace(path string, state any)
	Location() Location
	// Back moves one entry back and reports whether it moved.
	Back() bool
	// Forward moves one entry forward and reports whether it moved.
	Forward() bool
}

// MemoryHistory is an in-process History. Pushing drops forward entries.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []Location
	index   int
}

// NewMemoryHistory starts a history at initial.
func NewMemoryHistory(initial string) *MemoryHistory {
	if initial == "" {
		initial = "/"
	}
	return &MemoryHistory{entries: []Location{{Path: initial}}}
}

func (h *MemoryHistory) Push(path string, state any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], Location{Path: path, State: state})
	h.index++
}

func (h *MemoryHistory) Replace(path string, state any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = Location{Path: path, State: state}
}

func (h *MemoryHistory) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns a copy of the stack.
func (h *MemoryHistory) Entries() []Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Location(nil), h.entries...)
}
