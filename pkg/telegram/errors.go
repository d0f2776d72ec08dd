package telegram

import (
	"errors"
	"fmt"

	"github.com/NotCoffee418/european_smart_meter/pkg/esmutils"
	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

// Lexical errors.
var (
	ErrEOF             = errors.New("unexpected end of telegram")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// Semantic errors.
var (
	ErrMissingTariffIndicator = errors.New("no tariff indicator found")
	ErrUnknownTariff          = types.ErrUnknownTariff
	ErrInvalidValue           = errors.New("invalid register value")
	ErrPrecision              = esmutils.ErrPrecision
)

// SyntaxError locates malformed protocol text.
type SyntaxError struct {
	Offset int
	Found  string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("offset %d: %v %q", e.Offset, e.Err, e.Found)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// ParseError reports a register whose value could not be interpreted.
type ParseError struct {
	Code  string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("register %s (%s): %v", e.Code, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
