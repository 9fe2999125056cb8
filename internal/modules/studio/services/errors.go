package services

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Errors raised before the debit carry no side
// effects; errors after it leave the charge in place unless refunds are
// enabled.
var (
	ErrUnknownTemplate      = errors.New("template not found")
	ErrDirectiveUnavailable = errors.New("template directive unavailable")
	ErrEmptyOutput          = errors.New("provider returned no output")
)

// InsufficientCreditsError reports the exact shortfall so the UI can show
// "need N, have M".
type InsufficientCreditsError struct {
	Need int
	Have int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Need, e.Have)
}
