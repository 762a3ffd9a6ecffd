package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRowNotFound      = errors.New("row not found")
	ErrInvalidQuantity  = errors.New("quantity must be an integer of at least 1")
	ErrIncompleteForm   = errors.New("form is incomplete")
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrInactivePage     = errors.New("order form is only active on add-order pages")
	ErrInvalidPopover   = errors.New("invalid popover indicator")
	ErrSessionNotFound  = errors.New("form session not found")
)

// CatalogLoadError reports a failed products or customers read.
type CatalogLoadError struct {
	Resource   string
	StatusCode int
	StatusText string
	Err        error
}

func (e *CatalogLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %s", e.Resource, e.StatusText)
}

func (e *CatalogLoadError) Unwrap() error { return e.Err }

type PriceLoadError struct {
	ProductID ID
	Err       error
}

func (e *PriceLoadError) Error() string {
	return fmt.Sprintf("failed to load price for product %s: %v", e.ProductID, e.Err)
}

func (e *PriceLoadError) Unwrap() error { return e.Err }

// SubmissionRejectedError carries the server message unchanged.
type SubmissionRejectedError struct {
	Status  string
	Message string
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("order rejected (%s): %s", e.Status, e.Message)
}

type SubmissionTransportError struct {
	Err error
}

func (e *SubmissionTransportError) Error() string {
	return fmt.Sprintf("failed to submit order: %v", e.Err)
}

func (e *SubmissionTransportError) Unwrap() error { return e.Err }
