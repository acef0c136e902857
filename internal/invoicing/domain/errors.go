package domain

import "errors"

var (
	// ErrInvoiceNotFound is returned when an invoice lookup finds nothing.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrEmptyInvoiceNumber is returned when an invoice has no number.
	ErrEmptyInvoiceNumber = errors.New("invoice number must not be empty")
	// ErrInvalidStatus is returned for unknown invoice statuses.
	ErrInvalidStatus = errors.New("invalid invoice status")
	// ErrNotOwner is returned when a user touches an invoice they do not own.
	ErrNotOwner = errors.New("invoice does not belong to user")
)
