package backend

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"
)

// ErrPollingCancelled is returned when a polling loop is stopped through its
// cancellation flag before the operation succeeded.
var ErrPollingCancelled = errors.New("polling cancelled")

// ErrPollingExhausted is returned when the attempt budget runs out.
var ErrPollingExhausted = errors.New("polling attempts exhausted")

// CancelFlag is a shared boolean observed by a polling loop before each
// attempt. Flipping it stops the loop from issuing further attempts; it does
// not abort an attempt already in flight.
type CancelFlag struct {
	cancelled atomic.Bool
}

// Cancel flips the flag. Safe to call from any goroutine, idempotent.
func (f *CancelFlag) Cancel() {
	f.cancelled.Store(true)
}

// Cancelled reports whether the flag has been flipped.
func (f *CancelFlag) Cancelled() bool {
	return f.cancelled.Load()
}

// PollOptions configures a polling loop.
type PollOptions struct {
	// Attempts is the maximum number of attempts before giving up.
	Attempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// Poll invokes fn at a fixed delay until it succeeds, the attempt budget is
// exhausted, ctx ends, or flag is cancelled. The flag is checked before each
// attempt, so a cancelled poll settles once with the outcome of the last
// attempt that was already running, never with a half-issued one.
//
// The last attempt error is wrapped alongside ErrPollingCancelled or
// ErrPollingExhausted so callers can report the last known state.
func Poll[T any](ctx context.Context, flag *CancelFlag, opts PollOptions, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < opts.Attempts; attempt++ {
		if flag != nil && flag.Cancelled() {
			return zero, joinPollErr(ErrPollingCancelled, lastErr)
		}

		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}

	return zero, joinPollErr(ErrPollingExhausted, lastErr)
}

func joinPollErr(sentinel, last error) error {
	if last == nil {
		return sentinel
	}
	return errors.Join(sentinel, last)
}

// PaymentActivation is the polled payment-id lookup response.
type PaymentActivation struct {
	PaymentID string `json:"id_pagamento"`
}

// Payment-id polling mirrors the backend's activation flow: the id becomes
// available only after the activation settles server-side, so the client
// polls at a constant delay.
const (
	paymentIDPollAttempts = 180
	paymentIDPollDelay    = time.Second
)

// PollPaymentID polls the payment activation status until the payment id is
// available. The flag lets the caller abandon the poll (e.g. the user backed
// out of the flow) without aborting an in-flight request.
func (c *Client) PollPaymentID(ctx context.Context, flag *CancelFlag, contextCode string) (string, error) {
	activation, err := Poll(ctx, flag, PollOptions{
		Attempts: paymentIDPollAttempts,
		Delay:    paymentIDPollDelay,
	}, func(ctx context.Context) (*PaymentActivation, error) {
		return c.getPaymentActivation(ctx, contextCode)
	})
	if err != nil {
		return "", err
	}
	return activation.PaymentID, nil
}

// getPaymentActivation performs a single activation-status lookup. A 404 means
// the activation has not settled yet and the poll should continue.
func (c *Client) getPaymentActivation(ctx context.Context, contextCode string) (*PaymentActivation, error) {
	body, err := c.get(ctx, "/api/v1/payment-activations/"+contextCode)
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Kind: "payment", ID: contextCode}
		}
		return nil, err
	}

	var activation PaymentActivation
	if err := json.Unmarshal(body, &activation); err != nil {
		return nil, &DecodeError{Path: "payment-activation", Cause: err}
	}
	return &activation, nil
}
