package ratefunc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned by every constructor in this package when
// it is handed a configuration it cannot honor. Use errors.Is to match it.
var ErrInvalidArgument = errors.New("ratefunc: invalid argument")

// ArgumentError names the offending parameter of a rejected configuration.
type ArgumentError struct {
	Name   string
	Value  interface{}
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("ratefunc: invalid %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("ratefunc: invalid %s (%v): %s", e.Name, e.Value, e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArg(name string, value interface{}, reason string) error {
	return &ArgumentError{Name: name, Value: value, Reason: reason}
}
