package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/civicinbox/inboxd/internal/backend"
)

// StatusStore persists local read/archived flags across restarts,
// independently of message content reloads.
type StatusStore interface {
	Load() (map[string]Status, error)
	Put(id string, st Status) error
	Delete(ids []string) error
}

// Options configures refresh behavior.
type Options struct {
	// PageSize is the number of summaries requested per listing page.
	PageSize int

	// Concurrency bounds the per-item fetch fan-out (default: 8).
	Concurrency int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		PageSize:    100,
		Concurrency: 8,
	}
}

// RefreshSummary reports the outcome of one reconciliation pass.
type RefreshSummary struct {
	StartTime       time.Time
	Duration        time.Duration
	WindowSize      int
	MessagesFetched int
	ServicesFetched int
	Removed         int
	Errors          int
}

// Manager drives reconciliation passes and exposes the status-mutation
// surface to callers (CLI, HTTP API).
type Manager struct {
	client   backend.API
	stores   *Stores
	statuses StatusStore
	logger   *slog.Logger
	opts     *Options
}

// NewManager creates a Manager over the given transport and state container.
func NewManager(client backend.API, stores *Stores, opts *Options) *Manager {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Manager{
		client: client,
		stores: stores,
		logger: slog.Default(),
		opts:   opts,
	}
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// WithStatusStore sets the persistence collaborator for read/archived flags.
func (m *Manager) WithStatusStore(store StatusStore) *Manager {
	m.statuses = store
	return m
}

// Restore loads persisted statuses into the stores. Call once at startup,
// before the first Refresh.
func (m *Manager) Restore() error {
	if m.statuses == nil {
		return nil
	}
	persisted, err := m.statuses.Load()
	if err != nil {
		return fmt.Errorf("load statuses: %w", err)
	}
	m.stores.RestoreStatuses(persisted)
	m.logger.Debug("restored message statuses", "count", len(persisted))
	return nil
}

// Refresh runs one full reconciliation pass: fetch the newest listing page,
// diff it against the stores, apply the plan, then fan out the per-item
// fetches. A listing failure aborts the pass and leaves cached state valid;
// per-item failures settle only their own slot.
func (m *Manager) Refresh(ctx context.Context) (*RefreshSummary, error) {
	start := time.Now()
	summary := &RefreshSummary{StartTime: start}

	m.stores.BeginRefresh()

	page, err := m.client.ListMessages(ctx, backend.ListOptions{PageSize: m.opts.PageSize})
	if err != nil {
		m.stores.FailRefresh(err)
		return nil, fmt.Errorf("list messages: %w", err)
	}

	plan := ReconcilePage(page.Items, m.stores.Snapshot())
	m.stores.Apply(plan, page.Items)

	if len(plan.ToRemove) > 0 && m.statuses != nil {
		if err := m.statuses.Delete(plan.ToRemove); err != nil {
			m.logger.Warn("failed to delete pruned statuses", "error", err)
		}
	}

	summary.WindowSize = len(plan.NewAllIDs)
	summary.Removed = len(plan.ToRemove)

	m.logger.Info("reconciliation pass",
		"window", len(plan.NewAllIDs),
		"fetch_messages", len(plan.ToFetchMessages),
		"fetch_services", len(plan.ToFetchServices),
		"removed", len(plan.ToRemove))

	// Per-item fetches run concurrently and never fail the pass: each
	// settles its own slot to loaded or failed. The goroutines return nil
	// so one failure cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)

	results := make(chan error, len(plan.ToFetchMessages)+len(plan.ToFetchServices))

	for _, id := range plan.ToFetchMessages {
		id := id
		g.Go(func() error {
			msg, err := m.client.GetMessage(ctx, id)
			if err != nil {
				m.logger.Warn("failed to fetch message", "id", id, "error", err)
				m.stores.CompleteMessage(id, nil, err)
				results <- err
				return nil
			}
			if !m.stores.CompleteMessage(id, &msg.Content, nil) {
				m.logger.Debug("discarding fetch for pruned message", "id", id)
			}
			results <- nil
			return nil
		})
	}

	for _, id := range plan.ToFetchServices {
		id := id
		g.Go(func() error {
			svc, err := m.client.GetService(ctx, id)
			if err != nil {
				m.logger.Warn("failed to fetch service", "id", id, "error", err)
				m.stores.CompleteService(id, nil, err)
				results <- err
				return nil
			}
			m.stores.CompleteService(id, svc, nil)
			results <- nil
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	for err := range results {
		if err != nil {
			summary.Errors++
		}
	}

	summary.MessagesFetched = len(plan.ToFetchMessages)
	summary.ServicesFetched = len(plan.ToFetchServices)
	summary.Duration = time.Since(start)
	return summary, nil
}

// Snapshot returns the current version-stamped state view.
func (m *Manager) Snapshot() Snapshot {
	return m.stores.Snapshot()
}

// MarkRead flags a message as read and persists the flag.
func (m *Manager) MarkRead(id string) error {
	m.stores.MarkRead(id)
	return m.persistStatus(id)
}

// SetArchived sets the archived flag on the given ids and persists them.
func (m *Manager) SetArchived(ids []string, archived bool) error {
	m.stores.SetArchived(ids, archived)
	for _, id := range ids {
		if err := m.persistStatus(id); err != nil {
			return err
		}
	}
	return nil
}

// ToggleSelection toggles a message in the bulk-archive selection.
func (m *Manager) ToggleSelection(id string) {
	m.stores.ToggleSelection(id)
}

// ResetSelection clears the bulk-archive selection.
func (m *Manager) ResetSelection() {
	m.stores.ResetSelection()
}

// ArchiveSelected archives every selected message and clears the selection.
func (m *Manager) ArchiveSelected() error {
	ids := m.stores.SelectedIDs()
	m.stores.ResetSelection()
	return m.SetArchived(ids, true)
}

// UnreadCount returns the number of unread, unarchived messages.
func (m *Manager) UnreadCount() int {
	return m.stores.UnreadCount()
}

func (m *Manager) persistStatus(id string) error {
	if m.statuses == nil {
		return nil
	}
	snap := m.stores.Snapshot()
	st, ok := snap.Statuses[id]
	if !ok {
		return nil
	}
	if err := m.statuses.Put(id, st); err != nil {
		return fmt.Errorf("persist status %s: %w", id, err)
	}
	return nil
}
