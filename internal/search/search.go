// Package search filters the inbox by free text over message and sender
// service fields.
package search

import (
	"strings"
	"sync"

	"github.com/civicinbox/inboxd/internal/backend"
	"github.com/civicinbox/inboxd/internal/inbox"
	"github.com/civicinbox/inboxd/internal/pot"
)

// MessageMatches reports whether the message's own textual fields contain
// the query, case-insensitively.
func MessageMatches(content backend.MessageContent, query string) bool {
	return containsIgnoreCase(content.Subject, query) ||
		containsIgnoreCase(content.Markdown, query)
}

// ServiceMatches reports whether the service's name or organization fields
// contain the query, case-insensitively.
func ServiceMatches(svc backend.Service, query string) bool {
	return containsIgnoreCase(svc.Name, query) ||
		containsIgnoreCase(svc.OrganizationName, query) ||
		containsIgnoreCase(svc.DepartmentName, query)
}

// Filter returns the messages matching the query, in snapshot (newest first)
// order. A message matches on its own subject or body, or on its resolved
// sender service's text; a service that was never loaded cannot match.
// Messages whose content is not loaded are excluded: there is no text to
// search.
func Filter(snap inbox.Snapshot, query string) []inbox.Item {
	var out []inbox.Item
	for _, item := range snap.Items {
		content, ok := item.Content.Value()
		if !ok {
			continue
		}
		if MessageMatches(content, query) || serviceTextMatches(snap.Services[item.Meta.SenderServiceID], query) {
			out = append(out, item)
		}
	}
	return out
}

func serviceTextMatches(svc pot.Pot[backend.Service], query string) bool {
	loaded, ok := svc.Value()
	if !ok {
		return false
	}
	return ServiceMatches(loaded, query)
}

func containsIgnoreCase(s, query string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(query))
}

// Result is one committed search computation.
type Result struct {
	Query           string
	Items           []inbox.Item
	SnapshotVersion uint64
}

// Runner serializes concurrent search recomputations with last-write-wins
// semantics: whenever the snapshot or the query changes a new computation
// starts, and a stale computation finishing late must not clobber the result
// of the one that superseded it.
type Runner struct {
	mu         sync.Mutex
	generation uint64
	result     Result
	hasResult  bool
}

// NewRunner creates an empty Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Begin registers a new computation and returns its token. Any computation
// begun earlier becomes stale.
func (r *Runner) Begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	return r.generation
}

// Commit installs a computed result if its token is still the latest.
// Returns false when the computation was superseded and its result discarded.
func (r *Runner) Commit(token uint64, result Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.generation {
		return false
	}
	r.result = result
	r.hasResult = true
	return true
}

// Run performs one full search pass: it supersedes any in-flight computation,
// filters the snapshot, and commits the result unless a newer Run started in
// the meantime.
func (r *Runner) Run(snap inbox.Snapshot, query string) (Result, bool) {
	token := r.Begin()
	result := Result{
		Query:           query,
		Items:           Filter(snap, query),
		SnapshotVersion: snap.Version,
	}
	ok := r.Commit(token, result)
	return result, ok
}

// Result returns the latest committed result, if any.
func (r *Runner) Result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.hasResult
}
