package agenda

import (
	"sync"
	"time"

	"github.com/civicinbox/inboxd/internal/inbox"
)

// LoadMoreResult reports one backward page unambiguously: how many sections
// were prepended and whether anything older is left to page in. Callers must
// not infer exhaustion from a busy flag.
type LoadMoreResult struct {
	Added   int
	HasMore bool
}

// Paginator owns the rendered agenda window and its backward month cursor.
// Rebuild consumes version-stamped snapshots and recomputes only on change;
// LoadMore pages older months in, PastDataMonths at a time. Safe for
// concurrent use.
type Paginator struct {
	mu  sync.Mutex
	loc *time.Location
	now func() time.Time

	sections []Section // full, unwindowed list
	window   []Section

	// lastLoadedMonth is the backward cursor: the start of the oldest month
	// already paged in. Zero until the first LoadMore.
	lastLoadedMonth time.Time

	lastDeadlineID string
	nextDeadlineID string

	version    uint64
	hasVersion bool
}

// NewPaginator creates a paginator grouping days in the given location.
// A nil now func defaults to time.Now.
func NewPaginator(loc *time.Location, now func() time.Time) *Paginator {
	if now == nil {
		now = time.Now
	}
	return &Paginator{loc: loc, now: now}
}

// Rebuild recomputes the section list and rendered window from a snapshot.
// A snapshot whose version matches the last one seen is a no-op, so at most
// one computation runs per distinct state. Returns true when a rebuild
// happened.
//
// The cursor is preserved across rebuilds: months already paged in stay in
// the window, re-derived from the fresh section list rather than patched in
// place.
func (p *Paginator) Rebuild(snap inbox.Snapshot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasVersion && snap.Version == p.version {
		return false
	}
	p.version = snap.Version
	p.hasVersion = true

	p.sections = BuildSections(snap, p.loc)
	p.lastDeadlineID = LastDeadlineID(p.sections)
	p.nextDeadlineID = NextDeadlineID(p.sections, p.now(), p.loc)

	now := p.now()
	var window []Section
	if !p.lastLoadedMonth.IsZero() {
		back := monthsBetween(p.lastLoadedMonth, startOfMonth(now, p.loc))
		window = append(window, SelectPastMonthsData(p.sections, back, startOfMonth(now, p.loc))...)
		window = append(window, SelectCurrentMonthRemainingData(p.sections, now, p.loc)...)
	}
	window = append(window, SelectFutureData(p.sections, now, p.loc)...)
	p.window = window
	return true
}

// LoadMore pages PastDataMonths older months into the window. The first call
// also pulls in the current month's already-elapsed days. Once the earliest
// known deadline is rendered (or none exists), it reports HasMore false and
// adds nothing.
func (p *Paginator) LoadMore() LoadMoreResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasMoreLocked() {
		return LoadMoreResult{HasMore: false}
	}

	now := p.now()
	fromMonth := p.lastLoadedMonth
	first := fromMonth.IsZero()
	if first {
		fromMonth = startOfMonth(now, p.loc)
	}

	added := SelectPastMonthsData(p.sections, PastDataMonths, fromMonth)
	if first {
		added = append(added, SelectCurrentMonthRemainingData(p.sections, now, p.loc)...)
	}

	p.window = append(added, p.window...)
	p.lastLoadedMonth = fromMonth.AddDate(0, -PastDataMonths, 0)

	return LoadMoreResult{Added: len(added), HasMore: p.hasMoreLocked()}
}

// hasMoreLocked reports whether older deadlines remain outside the window.
// Must be called with mu held.
func (p *Paginator) hasMoreLocked() bool {
	if p.lastDeadlineID == "" {
		return false
	}
	return !containsID(p.window, p.lastDeadlineID)
}

// Window returns a copy of the currently rendered sections.
func (p *Paginator) Window() []Section {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Section(nil), p.window...)
}

// HasMore reports whether a LoadMore call would add older sections.
func (p *Paginator) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMoreLocked()
}

// NextDeadlineID returns the id of the first deadline due today or later.
func (p *Paginator) NextDeadlineID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextDeadlineID
}

// LastDeadlineID returns the id of the earliest known deadline.
func (p *Paginator) LastDeadlineID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDeadlineID
}
