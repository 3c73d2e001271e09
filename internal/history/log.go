// Package history keeps the bounded, append-only record of executed
// request/response pairs.
package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/sahilm/fuzzy"
)

// Bound is the fixed capacity of the in-memory log. Appending past it
// silently evicts the oldest entry.
const Bound = 50

// Archiver receives every appended entry for retention beyond the ring
// bound. Archive failures are logged, never surfaced: the log itself is
// the source of truth for the workspace.
type Archiver interface {
	Archive(ctx context.Context, e Entry) error
}

// FilterOptions are conjunctive: every set field must match.
type FilterOptions struct {
	Method      string // exact HTTP method
	StatusClass string // 2xx, 3xx, 4xx, 5xx, or network
	Query       string // free-text match over URL and request name
}

// Log is the bounded history ring, most-recent-first in completion order.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	archive Archiver
	logger  hclog.Logger
}

// NewLog creates an empty log.
func NewLog(logger hclog.Logger) *Log {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Log{
		entries: make([]Entry, 0, Bound),
		logger:  logger.Named("history"),
	}
}

// SetArchiver attaches an optional long-term archive sink.
func (l *Log) SetArchiver(a Archiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.archive = a
}

// Append records a completed send. The entry is deep-copied on the way
// in; insertion order is completion order, newest first.
func (l *Log) Append(ctx context.Context, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	copied := e.Clone()

	next := make([]Entry, 0, len(l.entries)+1)
	next = append(next, copied)
	next = append(next, l.entries...)
	if len(next) > Bound {
		next = next[:Bound]
	}
	l.entries = next

	if l.archive != nil {
		if err := l.archive.Archive(ctx, copied); err != nil {
			l.logger.Warn("archive write failed", "entry", copied.ID, "error", err)
		}
	}
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Get returns an entry by id.
func (l *Log) Get(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return Entry{}, false
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, 0, Bound)
}

// Replace swaps the whole log, used when loading from storage or
// reconciling an external change. Excess entries beyond the bound are
// dropped.
func (l *Log) Replace(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]Entry, 0, Bound)
	for i, e := range entries {
		if i >= Bound {
			break
		}
		next = append(next, e.Clone())
	}
	l.entries = next
}

// Filter returns the entries matching every set field of opts, newest
// first.
func (l *Log) Filter(opts FilterOptions) []Entry {
	all := l.Entries()

	matched := make([]Entry, 0, len(all))
	for _, e := range all {
		if opts.Method != "" && !strings.EqualFold(e.Method, opts.Method) {
			continue
		}
		if opts.StatusClass != "" && e.Response.StatusClass() != opts.StatusClass {
			continue
		}
		matched = append(matched, e)
	}

	if opts.Query == "" {
		return matched
	}

	haystack := make([]string, len(matched))
	for i, e := range matched {
		haystack[i] = e.ResolvedURL + " " + e.RequestName
	}
	results := fuzzy.Find(opts.Query, haystack)

	out := make([]Entry, 0, len(results))
	for _, r := range results {
		out = append(out, matched[r.Index])
	}
	return out
}

// Export renders the log as a flat textual representation, newest first.
func (l *Log) Export() string {
	var sb strings.Builder
	for _, e := range l.Entries() {
		status := fmt.Sprintf("%d %s", e.Response.Status, e.Response.StatusText)
		if e.Response.IsNetworkError() {
			status = "network error: " + e.Response.StatusText
		}
		name := e.RequestName
		if name == "" {
			name = "(unsaved)"
		}
		sb.WriteString(fmt.Sprintf("%s  %-7s %s  %s  %s  %dms\n",
			e.CompletedAt.Format("2006-01-02 15:04:05"),
			e.Method,
			e.ResolvedURL,
			name,
			status,
			e.Response.ResponseTime,
		))
	}
	return sb.String()
}
