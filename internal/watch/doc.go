// Package watch keeps a destination tree up to date by rebuilding it whenever
// the source root changes, and optionally on a fixed interval.
//
// Filesystem events (fsnotify) and scheduled ticks (gocron) are requests.
// The Debouncer coalesces bursts of requests into one trigger, and the Runner
// performs at most one build at a time with at most one follow-up queued.
// Every rebuild is a full rebuild.
package watch
