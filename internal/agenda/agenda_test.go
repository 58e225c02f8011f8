package agenda

import (
	"testing"
	"time"

	"github.com/civicinbox/inboxd/internal/backend"
	"github.com/civicinbox/inboxd/internal/inbox"
	"github.com/civicinbox/inboxd/internal/pot"
)

var testLoc = time.UTC

func dated(id string, due time.Time) inbox.Item {
	return inbox.Item{
		Meta: inbox.Meta{ID: id, SenderServiceID: "svc-1"},
		Content: pot.Some(backend.MessageContent{
			Subject: "subject of " + id,
			DueDate: &due,
		}),
	}
}

func snapshot(version uint64, items ...inbox.Item) inbox.Snapshot {
	return inbox.Snapshot{Version: version, Items: items}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func TestBuildSectionsGroupsByLocalDay(t *testing.T) {
	snap := snapshot(1,
		dated("msg-a", time.Date(2024, 1, 5, 10, 0, 0, 0, testLoc)),
		dated("msg-b", time.Date(2024, 1, 5, 18, 0, 0, 0, testLoc)),
		dated("msg-c", time.Date(2024, 1, 6, 9, 0, 0, 0, testLoc)),
	)

	sections := BuildSections(snap, testLoc)

	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if !sections[0].Day.Equal(day(2024, 1, 5)) || len(sections[0].Items) != 2 {
		t.Errorf("first section wrong: day=%v items=%d", sections[0].Day, len(sections[0].Items))
	}
	if sections[0].Items[0].ID != "msg-a" || sections[0].Items[1].ID != "msg-b" {
		t.Errorf("items within a day must stay in due-date order: %v", sections[0].Items)
	}
	if !sections[1].Day.Equal(day(2024, 1, 6)) || sections[1].Items[0].ID != "msg-c" {
		t.Errorf("second section wrong: %+v", sections[1])
	}
}

func TestBuildSectionsFilters(t *testing.T) {
	due := time.Date(2024, 2, 1, 12, 0, 0, 0, testLoc)
	archived := dated("msg-archived", due)
	archived.Status.IsArchived = true
	undated := inbox.Item{
		Meta:    inbox.Meta{ID: "msg-undated"},
		Content: pot.Some(backend.MessageContent{Subject: "no due date"}),
	}
	loading := inbox.Item{
		Meta:    inbox.Meta{ID: "msg-loading"},
		Content: pot.NoneLoading[backend.MessageContent](),
	}

	sections := BuildSections(snapshot(1, archived, undated, loading, dated("msg-ok", due)), testLoc)

	if len(sections) != 1 || len(sections[0].Items) != 1 || sections[0].Items[0].ID != "msg-ok" {
		t.Errorf("only loaded, unarchived, dated messages belong in the agenda: %+v", sections)
	}
}

func TestBuildSectionsStableOnEqualDueDates(t *testing.T) {
	due := time.Date(2024, 3, 10, 8, 0, 0, 0, testLoc)
	sections := BuildSections(snapshot(1,
		dated("msg-first", due),
		dated("msg-second", due),
	), testLoc)

	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Items[0].ID != "msg-first" || sections[0].Items[1].ID != "msg-second" {
		t.Errorf("equal due dates must keep original order: %+v", sections[0].Items)
	}
}

func TestSelectFutureData(t *testing.T) {
	sections := BuildSections(snapshot(1,
		dated("msg-past", day(2024, 4, 10)),
		dated("msg-today", day(2024, 4, 15).Add(9*time.Hour)),
		dated("msg-future", day(2024, 5, 2)),
	), testLoc)
	now := day(2024, 4, 15).Add(12 * time.Hour)

	future := SelectFutureData(sections, now, testLoc)

	if len(future) != 2 {
		t.Fatalf("expected 2 future sections, got %d", len(future))
	}
	if future[0].Items[0].ID != "msg-today" {
		t.Errorf("today's deadlines belong to the future window, got %s", future[0].Items[0].ID)
	}
}

func TestSelectCurrentMonthRemainingData(t *testing.T) {
	sections := BuildSections(snapshot(1,
		dated("msg-last-month", day(2024, 3, 28)),
		dated("msg-elapsed", day(2024, 4, 5)),
		dated("msg-today", day(2024, 4, 15)),
	), testLoc)
	now := day(2024, 4, 15).Add(12 * time.Hour)

	got := SelectCurrentMonthRemainingData(sections, now, testLoc)

	if len(got) != 1 || got[0].Items[0].ID != "msg-elapsed" {
		t.Errorf("expected only the elapsed current-month section, got %+v", got)
	}
}

func TestSelectPastMonthsEmptyMonthPlaceholder(t *testing.T) {
	sections := BuildSections(snapshot(1, dated("msg-future", day(2024, 4, 20))), testLoc)

	got := SelectPastMonthsData(sections, 1, day(2024, 4, 1))

	if len(got) != 1 {
		t.Fatalf("expected exactly one section, got %d", len(got))
	}
	if !got[0].Placeholder || len(got[0].Items) != 0 {
		t.Errorf("empty month must yield a placeholder: %+v", got[0])
	}
	if !got[0].Day.Equal(day(2024, 3, 1)) {
		t.Errorf("placeholder must carry the month start, got %v", got[0].Day)
	}
}

func TestNextDeadlineID(t *testing.T) {
	sections := BuildSections(snapshot(1,
		dated("msg-past", day(2024, 4, 1)),
		dated("msg-next", day(2024, 4, 20)),
		dated("msg-later", day(2024, 5, 10)),
	), testLoc)
	now := day(2024, 4, 15).Add(12 * time.Hour)

	if got := NextDeadlineID(sections, now, testLoc); got != "msg-next" {
		t.Errorf("got next deadline %q, want msg-next", got)
	}
}

func TestPaginatorLoadMore(t *testing.T) {
	now := day(2024, 4, 15).Add(12 * time.Hour)
	p := NewPaginator(testLoc, func() time.Time { return now })

	snap := snapshot(1,
		dated("msg-earliest", day(2024, 1, 10)),
		dated("msg-elapsed", day(2024, 4, 5)),
		dated("msg-future", day(2024, 4, 20)),
		dated("msg-next-month", day(2024, 5, 1)),
	)
	if !p.Rebuild(snap) {
		t.Fatal("first rebuild must run")
	}

	window := p.Window()
	if len(window) != 2 {
		t.Fatalf("initial window is future-only, got %d sections", len(window))
	}
	if !p.HasMore() {
		t.Fatal("older deadlines exist, HasMore must be true")
	}

	res := p.LoadMore()
	// January's real section, February and March placeholders, plus the
	// current month's elapsed days on the first call.
	if res.Added != 4 {
		t.Errorf("expected 4 sections added, got %d", res.Added)
	}
	if res.HasMore {
		t.Error("earliest deadline is now rendered, HasMore must be false")
	}

	window = p.Window()
	if len(window) != 6 {
		t.Fatalf("expected 6 rendered sections, got %d", len(window))
	}
	if window[0].Items[0].ID != "msg-earliest" {
		t.Errorf("oldest section must be first, got %+v", window[0])
	}
	if !window[1].Placeholder || !window[2].Placeholder {
		t.Error("empty February and March must render as placeholders")
	}

	again := p.LoadMore()
	if again.Added != 0 || again.HasMore {
		t.Errorf("exhausted pager must add nothing, got %+v", again)
	}
}

func TestPaginatorNoDeadlines(t *testing.T) {
	p := NewPaginator(testLoc, func() time.Time { return day(2024, 4, 15) })
	p.Rebuild(snapshot(1))

	if p.HasMore() {
		t.Error("no deadlines at all means nothing to page in")
	}
	if res := p.LoadMore(); res.Added != 0 || res.HasMore {
		t.Errorf("load-more on an empty agenda must be a no-op, got %+v", res)
	}
}

func TestPaginatorSkipsUnchangedVersion(t *testing.T) {
	p := NewPaginator(testLoc, func() time.Time { return day(2024, 4, 15) })
	snap := snapshot(7, dated("msg-a", day(2024, 4, 20)))

	if !p.Rebuild(snap) {
		t.Fatal("first rebuild must run")
	}
	if p.Rebuild(snap) {
		t.Error("same version must not trigger a recomputation")
	}
	if !p.Rebuild(snapshot(8, dated("msg-a", day(2024, 4, 20)))) {
		t.Error("new version must trigger a recomputation")
	}
}

func TestPaginatorRebuildPreservesCursor(t *testing.T) {
	now := day(2024, 4, 15).Add(12 * time.Hour)
	p := NewPaginator(testLoc, func() time.Time { return now })

	p.Rebuild(snapshot(1,
		dated("msg-march", day(2024, 3, 10)),
		dated("msg-future", day(2024, 4, 20)),
	))
	p.LoadMore()

	before := len(p.Window())

	// A new snapshot adds a deadline inside an already-loaded month; the
	// rebuilt window must include it without another LoadMore.
	p.Rebuild(snapshot(2,
		dated("msg-march", day(2024, 3, 10)),
		dated("msg-march-2", day(2024, 3, 20)),
		dated("msg-future", day(2024, 4, 20)),
	))

	window := p.Window()
	if len(window) != before+1 {
		t.Fatalf("expected %d sections after rebuild, got %d", before+1, len(window))
	}
	found := false
	for _, section := range window {
		if containsID([]Section{section}, "msg-march-2") {
			found = true
		}
	}
	if !found {
		t.Error("rebuild must re-derive loaded months from the fresh list")
	}
}
