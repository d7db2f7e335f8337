package interference

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a missing or unusable target or model.
	ErrConfiguration = errors.New("interference configuration error")

	// ErrNotImplemented reports a model kind whose effect has not been
	// defined. Only returned when StrictHandlers are in use.
	ErrNotImplemented = errors.New("interference model not implemented")

	ErrUnknownKind = errors.New("unknown interference model kind")
)

// ApplyError is returned by Manager.ApplyAllInterferenceModels when one of
// the held models fails. Models before Index were applied and stay applied.
type ApplyError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply interference model %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
