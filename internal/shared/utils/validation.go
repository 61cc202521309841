package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Size limits (in bytes)
const (
	MaxEventSize  = 1 * 1024 * 1024 // event payload posted over HTTP or the bridge socket
	MaxScriptSize = 1 * 1024 * 1024 // script submitted for injection
	MaxJSONDepth  = 64
)

// String length limits
const (
	MaxLabelLength = 128
	MaxTopicLength = 128
)

var (
	// LabelPattern matches surface labels: alphanumerics plus - / : _ .
	LabelPattern = regexp.MustCompile(`^[a-zA-Z0-9/:_.-]+$`)
	// TopicPattern matches event topics such as tab-metadata or script-response
	TopicPattern = regexp.MustCompile(`^[a-zA-Z0-9:_.-]+$`)
)

// JSONSizeValidator validates JSON size limits
type JSONSizeValidator struct {
	maxSize  int
	maxDepth int
}

// NewJSONSizeValidator creates a new validator with the specified max size
func NewJSONSizeValidator(maxSize int) *JSONSizeValidator {
	return &JSONSizeValidator{maxSize: maxSize, maxDepth: MaxJSONDepth}
}

// EventValidator returns a validator for event payloads
func EventValidator() *JSONSizeValidator {
	return NewJSONSizeValidator(MaxEventSize)
}

// ValidateSize checks if the data size is within limits
func (v *JSONSizeValidator) ValidateSize(data []byte) error {
	if size := len(data); size > v.maxSize {
		return fmt.Errorf("JSON size %d bytes exceeds maximum %d bytes", size, v.maxSize)
	}
	return nil
}

// ValidateJSON validates size, structure and nesting depth
func (v *JSONSizeValidator) ValidateJSON(data []byte) error {
	if err := v.ValidateSize(data); err != nil {
		return err
	}

	var js interface{}
	if err := sonic.Unmarshal(data, &js); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return ValidateJSONDepth(js, v.maxDepth)
}

// ValidateJSONDepth checks if JSON nesting depth is within limits
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateLabel validates a surface label
func ValidateLabel(label string) error {
	if err := ValidateString(label, "label", MaxLabelLength); err != nil {
		return err
	}
	if !LabelPattern.MatchString(label) {
		return fmt.Errorf("label contains invalid characters (only alphanumeric, '-', '/', ':', '_' and '.' allowed)")
	}
	return nil
}

// ValidateTopic validates an event topic
func ValidateTopic(topic string) error {
	if err := ValidateString(topic, "topic", MaxTopicLength); err != nil {
		return err
	}
	if !TopicPattern.MatchString(topic) {
		return fmt.Errorf("topic contains invalid characters (only alphanumeric, '-', ':', '_' and '.' allowed)")
	}
	return nil
}
