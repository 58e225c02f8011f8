package backend

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// MessageSummary is one entry of the paginated listing endpoint. It carries
// identity and sender metadata only, never content.
type MessageSummary struct {
	ID              string    `json:"id"`
	FiscalCode      string    `json:"fiscal_code"`
	SenderServiceID string    `json:"sender_service_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// PaymentData is the optional payment directive attached to a message.
// It is carried opaquely; inboxd performs no payment computation.
type PaymentData struct {
	NoticeNumber        string `json:"notice_number"`
	Amount              int64  `json:"amount"`
	InvalidAfterDueDate bool   `json:"invalid_after_due_date"`
}

// MessageContent is the full body of a message, fetched lazily per id.
type MessageContent struct {
	Subject  string       `json:"subject"`
	Markdown string       `json:"markdown"`
	DueDate  *time.Time   `json:"due_date,omitempty"`
	Payment  *PaymentData `json:"payment_data,omitempty"`
	Category string       `json:"category,omitempty"`
}

// Message is a full message as returned by the detail endpoint.
type Message struct {
	MessageSummary
	Content MessageContent `json:"content"`
}

// Page is one page of the message listing. Items preserve server order,
// which is reverse-chronological. Next is the opaque cursor for the next
// older page, empty when there are no more pages.
type Page struct {
	Items    []MessageSummary `json:"items"`
	PageSize int              `json:"page_size"`
	Next     string           `json:"next,omitempty"`
}

// Service is the public metadata of a sender service.
type Service struct {
	ID                     string `json:"service_id"`
	Name                   string `json:"service_name"`
	OrganizationName       string `json:"organization_name"`
	DepartmentName         string `json:"department_name"`
	OrganizationFiscalCode string `json:"organization_fiscal_code,omitempty"`
}

// TransportError indicates a network failure or a non-2xx response from the
// backend. Status is zero when the request never produced a response.
type TransportError struct {
	Status int
	Cause  error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend request failed: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// DecodeError indicates a 2xx payload that did not match the expected shape.
type DecodeError struct {
	Path  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Path, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates the referenced id is absent server-side (404).
type NotFoundError struct {
	Kind string // "message", "service", "payment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError or a 404 transport error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	return isNotFound(err)
}

// isNotFound reports whether err carries a 404 transport status.
func isNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Status == http.StatusNotFound
}
