// README: Pricing error types: request rejection and price override rejection.
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid pricing request")
	ErrNotFound       = errors.New("not found")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestError rejects a request before any calculation.
type RequestError struct {
	Fields []FieldError `json:"fields"`
}

func (e *RequestError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(parts, "; "))
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

type OverrideErrorCode string

const (
	OverrideBelowMinimumMargin OverrideErrorCode = "BELOW_MINIMUM_MARGIN"
	OverrideInvalidPrice       OverrideErrorCode = "INVALID_PRICE"
)

// OverrideError carries the would-be margin of a rejected override.
type OverrideError struct {
	Code                   OverrideErrorCode `json:"errorCode"`
	Message                string            `json:"message"`
	RequestedPrice         float64           `json:"requestedPrice"`
	ResultingMargin        float64           `json:"resultingMargin"`
	ResultingMarginPercent float64           `json:"resultingMarginPercent"`
	MinimumMarginPercent   float64           `json:"minimumMarginPercent"`
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("price override rejected (%s): %s", e.Code, e.Message)
}
