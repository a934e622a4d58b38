package domain

import "errors"

var (
	// ErrNotFound means no purchase record matches the provider reference
	// (or user/course pair). Completions for unknown references are never
	// honored; the record must have been created by the checkout/order call.
	ErrNotFound = errors.New("purchase_not_found")

	// ErrInvalidTransition is returned when a state machine rule is
	// violated. The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid_transition")

	// ErrInvalidSignature covers every authentication failure, webhook
	// signature and client confirmation HMAC alike. Callers must not be
	// told which part of the check failed.
	ErrInvalidSignature = errors.New("invalid_signature")

	ErrInvalidPayload = errors.New("invalid_payload")

	// ErrEventIgnored marks webhook event types we do not handle; they are
	// acknowledged without touching state so the provider stops retrying.
	ErrEventIgnored = errors.New("event_ignored")

	// ErrUpstream means the payment provider call failed or returned an
	// unusable result. Never retried server-side: retrying session
	// creation risks duplicate sessions.
	ErrUpstream = errors.New("payment_provider_unavailable")

	ErrInvalidAmount = errors.New("invalid_amount")
)
