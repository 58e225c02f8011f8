package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicinbox/inboxd/internal/backend"
	"github.com/civicinbox/inboxd/internal/inbox"
	"github.com/civicinbox/inboxd/internal/pot"
	"github.com/civicinbox/inboxd/internal/scheduler"
)

// ItemSummary represents a message in list responses.
type ItemSummary struct {
	ID              string `json:"id"`
	Subject         string `json:"subject,omitempty"`
	SenderServiceID string `json:"sender_service_id"`
	ServiceName     string `json:"service_name,omitempty"`
	CreatedAt       string `json:"created_at"`
	DueDate         string `json:"due_date,omitempty"`
	IsRead          bool   `json:"is_read"`
	IsArchived      bool   `json:"is_archived"`
	ContentState    string `json:"content_state"`
}

// ItemDetail represents a full message response.
type ItemDetail struct {
	ItemSummary
	Markdown string               `json:"markdown,omitempty"`
	Payment  *backend.PaymentData `json:"payment,omitempty"`
}

// InboxResponse represents the inbox listing.
type InboxResponse struct {
	Total        int           `json:"total"`
	Refreshing   bool          `json:"refreshing"`
	RefreshError string        `json:"refresh_error,omitempty"`
	Messages     []ItemSummary `json:"messages"`
}

// SearchResult represents search results.
type SearchResult struct {
	Query    string        `json:"query"`
	Total    int           `json:"total"`
	Messages []ItemSummary `json:"messages"`
}

// DeadlineSection represents one rendered agenda bucket.
type DeadlineSection struct {
	Day         string        `json:"day"`
	Placeholder bool          `json:"placeholder,omitempty"`
	Items       []ItemSummary `json:"items,omitempty"`
}

// DeadlinesResponse represents the rendered agenda window.
type DeadlinesResponse struct {
	Sections       []DeadlineSection `json:"sections"`
	HasMore        bool              `json:"has_more"`
	NextDeadlineID string            `json:"next_deadline_id,omitempty"`
}

// LoadMoreResponse reports one backward agenda page.
type LoadMoreResponse struct {
	DeadlinesResponse
	Added int `json:"added"`
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool             `json:"running"`
	Refresh scheduler.Status `json:"refresh"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func contentState(p pot.Pot[backend.MessageContent]) string {
	switch {
	case p.IsLoading():
		return "loading"
	case p.IsError():
		return "failed"
	case p.IsSome():
		return "loaded"
	default:
		return "pending"
	}
}

func toSummary(item inbox.Item, snap inbox.Snapshot) ItemSummary {
	summary := ItemSummary{
		ID:              item.Meta.ID,
		SenderServiceID: item.Meta.SenderServiceID,
		CreatedAt:       item.Meta.CreatedAt.UTC().Format(time.RFC3339),
		IsRead:          item.Status.IsRead,
		IsArchived:      item.Status.IsArchived,
		ContentState:    contentState(item.Content),
	}
	if content, ok := item.Content.Value(); ok {
		summary.Subject = content.Subject
		if content.DueDate != nil {
			summary.DueDate = content.DueDate.UTC().Format(time.RFC3339)
		}
	}
	if svc, ok := snap.Services[item.Meta.SenderServiceID].Value(); ok {
		summary.ServiceName = svc.Name
	}
	return summary
}

// handleListInbox returns the reconciled inbox, newest first. A failed
// refresh is reported alongside the still-valid cached listing.
func (s *Server) handleListInbox(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()

	resp := InboxResponse{
		Total:      len(snap.Items),
		Refreshing: snap.AllIDs.IsLoading(),
		Messages:   make([]ItemSummary, 0, len(snap.Items)),
	}
	if err := snap.AllIDs.Err(); err != nil {
		resp.RefreshError = err.Error()
	}
	for _, item := range snap.Items {
		resp.Messages = append(resp.Messages, toSummary(item, snap))
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUnreadCount returns the number of unread, unarchived messages.
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"unread": s.manager.UnreadCount()})
}

// handleGetMessage returns a single message by ID.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.manager.Snapshot()

	rec, ok := snap.Records[id]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Message not found")
		return
	}

	detail := ItemDetail{
		ItemSummary: toSummary(inbox.Item{
			Meta:    rec.Meta,
			Content: rec.Content,
			Status:  snap.Statuses[id],
		}, snap),
	}
	if content, ok := rec.Content.Value(); ok {
		detail.Markdown = content.Markdown
		detail.Payment = content.Payment
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleMarkRead flags a message as read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := s.manager.Snapshot()
	if _, ok := snap.Records[id]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "Message not found")
		return
	}

	if err := s.manager.MarkRead(id); err != nil {
		s.logger.Error("failed to mark message read", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to persist status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ArchiveRequest is the body of POST /archive.
type ArchiveRequest struct {
	IDs      []string `json:"ids"`
	Archived bool     `json:"archived"`
}

// handleArchive sets the archived flag on a batch of messages.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON with ids and archived")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "missing_ids", "At least one message id is required")
		return
	}

	if err := s.manager.SetArchived(req.IDs, req.Archived); err != nil {
		s.logger.Error("failed to archive messages", "count", len(req.IDs), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to persist status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch filters the inbox by free text over message and service fields.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}

	snap := s.manager.Snapshot()
	result, _ := s.searcher.Run(snap, query)

	resp := SearchResult{
		Query:    query,
		Total:    len(result.Items),
		Messages: make([]ItemSummary, 0, len(result.Items)),
	}
	for _, item := range result.Items {
		resp.Messages = append(resp.Messages, toSummary(item, snap))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deadlinesResponse(snap inbox.Snapshot) DeadlinesResponse {
	resp := DeadlinesResponse{
		HasMore:        s.paginator.HasMore(),
		NextDeadlineID: s.paginator.NextDeadlineID(),
	}
	for _, section := range s.paginator.Window() {
		out := DeadlineSection{
			Day:         section.Day.Format("2006-01-02"),
			Placeholder: section.Placeholder,
		}
		for _, item := range section.Items {
			if rec, ok := snap.Records[item.ID]; ok {
				out.Items = append(out.Items, toSummary(inbox.Item{
					Meta:    rec.Meta,
					Content: rec.Content,
					Status:  snap.Statuses[item.ID],
				}, snap))
			}
		}
		resp.Sections = append(resp.Sections, out)
	}
	return resp
}

// handleDeadlines returns the rendered agenda window.
func (s *Server) handleDeadlines(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	s.paginator.Rebuild(snap)
	writeJSON(w, http.StatusOK, s.deadlinesResponse(snap))
}

// handleDeadlinesLoadMore pages older months into the agenda window.
func (s *Server) handleDeadlinesLoadMore(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	s.paginator.Rebuild(snap)
	result := s.paginator.LoadMore()

	writeJSON(w, http.StatusOK, LoadMoreResponse{
		DeadlinesResponse: s.deadlinesResponse(snap),
		Added:             result.Added,
	})
}

// handleTriggerRefresh manually triggers a reconciliation pass.
func (s *Server) handleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.TriggerRefresh(); err != nil {
		s.logger.Error("failed to trigger refresh", "error", err)
		writeError(w, http.StatusConflict, "refresh_error", err.Error())
		return
	}

	s.logger.Info("refresh triggered via API")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Refresh started",
	})
}

// handleSchedulerStatus returns the scheduler status.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.scheduler.IsRunning(),
		Refresh: s.scheduler.Status(),
	})
}
