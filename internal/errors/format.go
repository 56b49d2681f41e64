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

	re, ok := err.(*RagError)
	if !ok {
		// Standard error - just return message
		return err.Error()
	}

	var sb strings.Builder

	// Main error message
	sb.WriteString("Error: ")
	sb.WriteString(re.Message)
	sb.WriteString("\n")

	// Suggestion if available
	if re.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(re.Suggestion)
		sb.WriteString("\n")
	}

	// Error code for reference
	sb.WriteString(fmt.Sprintf("\n[%s]", re.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	re, ok := err.(*RagError)
	if !ok {
		// Wrap standard error
		re = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	// Error message with code
	sb.WriteString(fmt.Sprintf("Error: %s\n", re.Message))

	// Suggestion if available
	if re.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", re.Suggestion))
	}

	// Code reference
	sb.WriteString(fmt.Sprintf("  Code: %s\n", re.Code))

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
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	re, ok := err.(*RagError)
	if !ok {
		// Wrap standard error
		re = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       re.Code,
		Message:    re.Message,
		Category:   string(re.Category),
		Severity:   string(re.Severity),
		Details:    re.Details,
		Suggestion: re.Suggestion,
		Retryable:  re.Retryable,
	}

	if re.Cause != nil {
		je.Cause = re.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	re, ok := err.(*RagError)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": re.Code,
		"message":    re.Message,
		"category":   string(re.Category),
		"severity":   string(re.Severity),
		"retryable":  re.Retryable,
	}

	if re.Cause != nil {
		result["cause"] = re.Cause.Error()
	}

	if re.Suggestion != "" {
		result["suggestion"] = re.Suggestion
	}

	for k, v := range re.Details {
		result["detail_"+k] = v
	}

	return result
}
