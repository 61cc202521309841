package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command names
const (
	EvalInWebview         = "eval_in_webview"
	GetPageProperties     = "get_page_properties"
	GetPageMetadata       = "get_page_metadata"
	GetPageMetadataSimple = "get_page_metadata_simple"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidArgs    = errors.New("invalid arguments")
)

// Definition describes a command for discovery
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter represents a command parameter
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Args holds decoded invocation arguments
type Args map[string]interface{}

// Handler runs one command
type Handler func(ctx context.Context, args Args) (string, error)

// ArgError reports a missing or mistyped argument
type ArgError struct {
	Name   string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Reason)
}

func (e *ArgError) Unwrap() error { return ErrInvalidArgs }

// String returns a required string argument
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", &ArgError{Name: name, Reason: "required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgError{Name: name, Reason: "must be a string"}
	}
	return s, nil
}

// OptionalString returns nil when name is absent or null
func (a Args) OptionalString(name string) (*string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &ArgError{Name: name, Reason: "must be a string"}
	}
	return &s, nil
}
