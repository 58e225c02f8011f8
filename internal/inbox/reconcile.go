package inbox

import (
	"github.com/civicinbox/inboxd/internal/backend"
)

// Plan is the outcome of diffing a freshly fetched listing page against the
// current stores. Applying it and running its fetches brings the local mirror
// back in line with the authoritative window.
type Plan struct {
	// ToFetchMessages are ids whose content must be fetched: summaries never
	// seen before, or records whose content was never loaded. Ids already
	// loaded or with a fetch in flight are excluded, upholding the
	// at-most-one in-flight fetch per id guarantee.
	ToFetchMessages []string

	// ToFetchServices are sender service ids referenced by the page whose
	// service record was never loaded, deduplicated in first-seen order.
	ToFetchServices []string

	// ToRemove are ids present in the previous window but absent from the
	// new page. The remote collection is a window, not an append-only log:
	// they are pruned immediately, together with their status.
	ToRemove []string

	// NewAllIDs is the new authoritative window, in server (reverse
	// chronological) order.
	NewAllIDs []string
}

// ReconcilePage computes the delta between a listing page and the current
// state. It is a pure function of its inputs; Stores.Apply performs the
// corresponding mutation atomically.
func ReconcilePage(items []backend.MessageSummary, snap Snapshot) Plan {
	plan := Plan{NewAllIDs: make([]string, 0, len(items))}

	newIDs := make(map[string]bool, len(items))
	for _, item := range items {
		plan.NewAllIDs = append(plan.NewAllIDs, item.ID)
		newIDs[item.ID] = true
	}

	// Prune everything that fell out of the authoritative window.
	if current, ok := snap.AllIDs.Value(); ok {
		for _, id := range current {
			if !newIDs[id] {
				plan.ToRemove = append(plan.ToRemove, id)
			}
		}
	}

	seenService := make(map[string]bool)
	for _, item := range items {
		rec, exists := snap.Records[item.ID]
		needsContent := !exists || (rec.Content.IsNone() && !rec.Content.IsLoading() && !rec.Content.IsError())
		if needsContent {
			plan.ToFetchMessages = append(plan.ToFetchMessages, item.ID)
		}

		svc := snap.Services[item.SenderServiceID]
		if svc.IsNone() && !svc.IsLoading() && !svc.IsError() && !seenService[item.SenderServiceID] {
			seenService[item.SenderServiceID] = true
			plan.ToFetchServices = append(plan.ToFetchServices, item.SenderServiceID)
		}
	}

	return plan
}
