package bridge

import "errors"

var (
	ErrInjection     = errors.New("script injection failed")
	ErrTimeout       = errors.New("Timed out waiting for script response")
	ErrChannelClosed = errors.New("Channel closed before response")
)

// InjectionError reports that a surface refused the wrapped script
type InjectionError struct {
	Err error
}

func (e *InjectionError) Error() string {
	return "Failed to run script: " + e.Err.Error()
}

// Unwrap exposes both ErrInjection and the surface's own error
func (e *InjectionError) Unwrap() []error {
	return []error{ErrInjection, e.Err}
}

// ScriptError carries the message of an exception thrown by the user script
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return e.Message }
