package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, includes additional technical details.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	ge, ok := err.(*GridError)
	if !ok {
		// Standard error - just return message
		return err.Error()
	}

	var sb strings.Builder

	// Main error message
	sb.WriteString("Error: ")
	sb.WriteString(ge.Message)
	sb.WriteString("\n")

	// Suggestion if available
	if ge.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(ge.Suggestion)
		sb.WriteString("\n")
	}

	if debug && ge.Cause != nil {
		sb.WriteString(fmt.Sprintf("\nCause: %s", ge.Cause.Error()))
	}

	// Error code for reference
	sb.WriteString(fmt.Sprintf("\n[%s]", ge.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ge, ok := err.(*GridError)
	if !ok {
		// Wrap standard error
		ge = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	// Error message with code
	sb.WriteString(fmt.Sprintf("Error: %s\n", ge.Message))

	// Suggestion if available
	if ge.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ge.Suggestion))
	}

	// Code reference
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ge.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ge, ok := err.(*GridError)
	if !ok {
		// Wrap standard error
		ge = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       ge.Code,
		Message:    ge.Message,
		Category:   string(ge.Category),
		Severity:   string(ge.Severity),
		Details:    ge.Details,
		Suggestion: ge.Suggestion,
	}

	if ge.Cause != nil {
		je.Cause = ge.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ge, ok := err.(*GridError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": ge.Code,
		"message":    ge.Message,
		"category":   string(ge.Category),
		"severity":   string(ge.Severity),
	}

	if ge.Cause != nil {
		result["cause"] = ge.Cause.Error()
	}

	if ge.Suggestion != "" {
		result["suggestion"] = ge.Suggestion
	}

	for k, v := range ge.Details {
		result["detail_"+k] = v
	}

	return result
}
