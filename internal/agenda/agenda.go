// Package agenda builds the calendar-bucketed deadline view: messages with a
// due date, grouped by local calendar day, paged backward in month batches.
package agenda

import (
	"time"

	"github.com/civicinbox/inboxd/internal/backend"
	"github.com/civicinbox/inboxd/internal/inbox"
)

// PastDataMonths is the batch width of one backward page.
const PastDataMonths = 3

// Item is one dated message in the agenda.
type Item struct {
	ID      string
	Subject string
	DueDate time.Time
	IsRead  bool
	Payment *backend.PaymentData
}

// Section is one calendar-day bucket of deadline items, or a synthetic
// month placeholder signalling "nothing due this month". Day is the start of
// the local calendar day (start of month for placeholders).
type Section struct {
	Day         time.Time
	Items       []Item
	Placeholder bool
}

// BuildSections derives the full, unwindowed section list from a snapshot.
// Only loaded, unarchived messages carrying a due date participate. Sections
// are in ascending day order; within a section items keep due-date ascending
// order, ties resolved by the snapshot's original order.
func BuildSections(snap inbox.Snapshot, loc *time.Location) []Section {
	items := make([]Item, 0, len(snap.Items))
	for _, msg := range snap.Items {
		content, ok := msg.Content.Value()
		if !ok {
			continue
		}
		if msg.Status.IsArchived || content.DueDate == nil {
			continue
		}
		items = append(items, Item{
			ID:      msg.Meta.ID,
			Subject: content.Subject,
			DueDate: *content.DueDate,
			IsRead:  msg.Status.IsRead,
			Payment: content.Payment,
		})
	}

	// Stable insertion sort keeps original relative order on equal due dates.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].DueDate.Before(items[j-1].DueDate); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}

	var sections []Section
	for _, item := range items {
		day := startOfDay(item.DueDate, loc)
		if n := len(sections); n > 0 && sections[n-1].Day.Equal(day) {
			sections[n-1].Items = append(sections[n-1].Items, item)
			continue
		}
		sections = append(sections, Section{Day: day, Items: []Item{item}})
	}
	return sections
}

// SelectFutureData returns all sections from the current calendar day forward.
func SelectFutureData(sections []Section, now time.Time, loc *time.Location) []Section {
	today := startOfDay(now, loc)
	for i, section := range sections {
		if !section.Day.Before(today) {
			return sections[i:]
		}
	}
	return nil
}

// SelectCurrentMonthRemainingData returns the sections between the start of
// the current month and the end of yesterday.
func SelectCurrentMonthRemainingData(sections []Section, now time.Time, loc *time.Location) []Section {
	return sectionsInRange(sections, startOfMonth(now, loc), startOfDay(now, loc))
}

// SelectPastMonthsData returns, for each of the n months strictly before
// fromMonth, that month's sections in ascending order. A month with no
// sections yields a single placeholder section so the caller can render it
// unambiguously.
func SelectPastMonthsData(sections []Section, n int, fromMonth time.Time) []Section {
	var out []Section
	for i := n; i >= 1; i-- {
		month := fromMonth.AddDate(0, -i, 0)
		next := month.AddDate(0, 1, 0)
		monthSections := sectionsInRange(sections, month, next)
		if len(monthSections) == 0 {
			monthSections = []Section{{Day: month, Placeholder: true}}
		}
		out = append(out, monthSections...)
	}
	return out
}

// LastDeadlineID returns the id of the earliest real deadline in the full
// section list, or "" when there is none. The backward pager stops once this
// item is in the rendered window.
func LastDeadlineID(sections []Section) string {
	if len(sections) == 0 || sections[0].Placeholder || len(sections[0].Items) == 0 {
		return ""
	}
	return sections[0].Items[0].ID
}

// NextDeadlineID returns the id of the first deadline due today or later,
// or "" when everything is in the past.
func NextDeadlineID(sections []Section, now time.Time, loc *time.Location) string {
	today := startOfDay(now, loc)
	for _, section := range sections {
		if section.Placeholder || section.Day.Before(today) {
			continue
		}
		if len(section.Items) > 0 {
			return section.Items[0].ID
		}
	}
	return ""
}

func containsID(sections []Section, id string) bool {
	if id == "" {
		return false
	}
	for _, section := range sections {
		for _, item := range section.Items {
			if item.ID == id {
				return true
			}
		}
	}
	return false
}

// sectionsInRange returns the sections with from <= Day < to. Sections are in
// ascending day order, so the scan stops at the first day past the range.
func sectionsInRange(sections []Section, from, to time.Time) []Section {
	var out []Section
	for _, section := range sections {
		if !section.Day.Before(to) {
			break
		}
		if !section.Day.Before(from) {
			out = append(out, section)
		}
	}
	return out
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// monthsBetween returns the number of whole-month steps from a to b.
// Both arguments must be starts of month.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
}
