// Package inbox maintains the reconciled local mirror of the remote inbox.
//
// All state lives in a single injectable container (Stores); it is mutated
// only through reconciliation plans and the explicit status operations, and
// derived views consume version-stamped snapshots of it.
package inbox

import (
	"sort"
	"sync"
	"time"

	"github.com/civicinbox/inboxd/internal/backend"
	"github.com/civicinbox/inboxd/internal/pot"
)

// Meta is the immutable per-message metadata, created when a summary is first
// seen and destroyed only when the message is pruned from the window.
type Meta struct {
	ID              string
	SenderServiceID string
	CreatedAt       time.Time
	FiscalCode      string
}

// MessageRecord pairs message metadata with its lazily fetched content.
type MessageRecord struct {
	Meta    Meta
	Content pot.Pot[backend.MessageContent]
}

// Status holds the user-local flags of a message. They are owned by the app,
// not the server, and must survive a full content reload.
type Status struct {
	IsRead     bool
	IsArchived bool
}

// Item is one message as exposed to derived views: metadata, content load
// state, and local status.
type Item struct {
	Meta    Meta
	Content pot.Pot[backend.MessageContent]
	Status  Status
}

// Snapshot is an immutable, version-stamped view of the stores. Derived views
// (agenda, search) recompute only when Version changes.
type Snapshot struct {
	Version  uint64
	AllIDs   pot.Pot[[]string]
	Items    []Item // inversely lexically ordered by id (newest first)
	Records  map[string]MessageRecord
	Services map[string]pot.Pot[backend.Service]
	Statuses map[string]Status
}

// Stores owns the message, service and status collections plus the
// authoritative id window. Safe for concurrent use.
type Stores struct {
	mu       sync.RWMutex
	records  map[string]MessageRecord
	services map[string]pot.Pot[backend.Service]
	statuses map[string]Status
	selected map[string]bool
	allIDs   pot.Pot[[]string]
	version  uint64
}

// NewStores creates an empty state container.
func NewStores() *Stores {
	return &Stores{
		records:  make(map[string]MessageRecord),
		services: make(map[string]pot.Pot[backend.Service]),
		statuses: make(map[string]Status),
		selected: make(map[string]bool),
	}
}

// bump must be called with mu held for writing.
func (s *Stores) bump() {
	s.version++
}

// Version returns the current mutation counter.
func (s *Stores) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// BeginRefresh marks the id window as loading, keeping the cached window
// visible while the page fetch is in flight.
func (s *Stores) BeginRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allIDs = pot.ToLoading(s.allIDs)
	s.bump()
}

// FailRefresh records a listing-page failure. The cached window and records
// stay untouched: a failed refresh never rolls back previously synced state.
func (s *Stores) FailRefresh(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allIDs = pot.ToError(s.allIDs, err)
	s.bump()
}

// Apply adopts a reconciliation plan in one transaction: the new window is
// installed, pruned ids lose their record, status and selection, new metas
// are created, and every slot about to be fetched is marked loading so a
// concurrent reconciliation pass cannot issue a duplicate fetch.
func (s *Stores) Apply(plan Plan, summaries []backend.MessageSummary) {
	byID := make(map[string]backend.MessageSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID] = sum
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range plan.ToRemove {
		delete(s.records, id)
		delete(s.statuses, id)
		delete(s.selected, id)
	}

	for _, id := range plan.ToFetchMessages {
		rec, ok := s.records[id]
		if !ok {
			sum := byID[id]
			rec = MessageRecord{Meta: Meta{
				ID:              sum.ID,
				SenderServiceID: sum.SenderServiceID,
				CreatedAt:       sum.CreatedAt,
				FiscalCode:      sum.FiscalCode,
			}}
		}
		rec.Content = pot.ToLoading(rec.Content)
		s.records[id] = rec
	}

	for _, id := range plan.ToFetchServices {
		s.services[id] = pot.ToLoading(s.services[id])
	}

	s.allIDs = pot.Some(append([]string(nil), plan.NewAllIDs...))
	s.bump()
}

// CompleteMessage settles a content fetch into its slot. A completion for an
// id that was pruned while the fetch was in flight is discarded; the record
// must not be resurrected. Returns false when the result was discarded.
func (s *Stores) CompleteMessage(id string, content *backend.MessageContent, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false
	}
	if err != nil {
		rec.Content = pot.ToError(rec.Content, err)
	} else {
		rec.Content = pot.Some(*content)
	}
	s.records[id] = rec
	s.bump()
	return true
}

// CompleteService settles a service fetch into its slot.
func (s *Stores) CompleteService(id string, svc *backend.Service, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.services[id] = pot.ToError(s.services[id], err)
	} else {
		s.services[id] = pot.Some(*svc)
	}
	s.bump()
}

// MarkRead flags a message as read. Unknown ids are ignored.
func (s *Stores) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return
	}
	st := s.statuses[id]
	st.IsRead = true
	s.statuses[id] = st
	s.bump()
}

// SetArchived sets the archived flag on the given ids. Unknown ids are ignored.
func (s *Stores) SetArchived(ids []string, archived bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			continue
		}
		st := s.statuses[id]
		st.IsArchived = archived
		s.statuses[id] = st
		changed = true
	}
	if changed {
		s.bump()
	}
}

// RestoreStatuses installs persisted statuses. Used once at startup, before
// the first reconciliation pass; statuses for ids not yet known are kept so
// they re-attach when the message is synced again.
func (s *Stores) RestoreStatuses(statuses map[string]Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range statuses {
		s.statuses[id] = st
	}
	s.bump()
}

// ToggleSelection toggles a message in the bulk-archive selection set.
func (s *Stores) ToggleSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected[id] {
		delete(s.selected, id)
	} else {
		s.selected[id] = true
	}
	s.bump()
}

// ResetSelection clears the selection set.
func (s *Stores) ResetSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selected) == 0 {
		return
	}
	s.selected = make(map[string]bool)
	s.bump()
}

// SelectedIDs returns the ids currently selected for bulk archival.
func (s *Stores) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns an immutable copy of the current state. Items are ordered
// inversely lexically by id, which for time-ordered ids means newest first.
func (s *Stores) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version:  s.version,
		AllIDs:   s.allIDs,
		Records:  make(map[string]MessageRecord, len(s.records)),
		Services: make(map[string]pot.Pot[backend.Service], len(s.services)),
		Statuses: make(map[string]Status, len(s.statuses)),
	}
	for id, rec := range s.records {
		snap.Records[id] = rec
	}
	for id, svc := range s.services {
		snap.Services[id] = svc
	}
	for id, st := range s.statuses {
		snap.Statuses[id] = st
	}

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	snap.Items = make([]Item, 0, len(ids))
	for _, id := range ids {
		rec := s.records[id]
		snap.Items = append(snap.Items, Item{
			Meta:    rec.Meta,
			Content: rec.Content,
			Status:  s.statuses[id],
		})
	}

	return snap
}

// UnreadCount returns the number of unread, unarchived messages.
func (s *Stores) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for id := range s.records {
		st := s.statuses[id]
		if !st.IsRead && !st.IsArchived {
			count++
		}
	}
	return count
}
