package build

import (
	"sort"
	"sync"

	"git.home.luguber.info/inful/incscript/internal/manifest"
)

// Skip records a file or directory that produced no output.
type Skip struct {
	// Path is content-root relative, slash-separated.
	Path string
	Err  error
}

// Report collects per-file outcomes. It is safe for concurrent use.
type Report struct {
	mu         sync.Mutex
	entries    []manifest.Entry
	byDest     map[string]int
	skipped    []Skip
	collisions int
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{byDest: map[string]int{}}
}

// addEntry records an output. A later entry for the same destination
// replaces the earlier one.
func (r *Report) addEntry(e manifest.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byDest[e.Destination]; ok {
		r.entries[i] = e
		return
	}
	r.byDest[e.Destination] = len(r.entries)
	r.entries = append(r.entries, e)
}

func (r *Report) addSkip(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, Skip{Path: path, Err: err})
}

func (r *Report) addCollision() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collisions++
}

// Entries returns the written outputs sorted by destination.
func (r *Report) Entries() []manifest.Entry {
	r.mu.Lock()
	out := make([]manifest.Entry, len(r.entries))
	copy(out, r.entries)
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Destination != out[j].Destination {
			return out[i].Destination < out[j].Destination
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Skipped returns the skipped paths sorted by path.
func (r *Report) Skipped() []Skip {
	r.mu.Lock()
	out := make([]Skip, len(r.skipped))
	copy(out, r.skipped)
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Count returns how many entries of the given kind were written.
func (r *Report) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Collisions returns how many outputs overwrote an earlier output.
func (r *Report) Collisions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collisions
}
