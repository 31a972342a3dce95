package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateBarcode  = errors.New("duplicate barcode")
	ErrUnauthorized      = errors.New("unauthorized")
)

const DefaultAuthorizationReason = "You must register your business or log in to continue."

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return DefaultAuthorizationReason
	}
	return e.Reason
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// StockError reports the product that cannot cover a requested quantity.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d available", e.Name, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
