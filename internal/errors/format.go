package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, includes the underlying cause.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	me, ok := As(err)
	if !ok {
		// Standard error - just return message
		return err.Error()
	}

	var sb strings.Builder

	sb.WriteString("Error: ")
	sb.WriteString(me.Message)
	sb.WriteString("\n")

	if me.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(me.Suggestion)
		sb.WriteString("\n")
	}

	if debug && me.Cause != nil {
		sb.WriteString("\nCause: ")
		sb.WriteString(me.Cause.Error())
		sb.WriteString("\n")
	}

	// Error code for reference
	sb.WriteString(fmt.Sprintf("\n[%s]", me.Code))

	return sb.String()
}

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	me, ok := As(err)
	if !ok {
		me = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", me.Message))
	if me.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", me.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", me.Code))

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
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	me, ok := As(err)
	if !ok {
		me = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       me.Code,
		Message:    me.Message,
		Category:   string(me.Category),
		Severity:   string(me.Severity),
		Details:    me.Details,
		Suggestion: me.Suggestion,
		Retryable:  me.Retryable,
	}
	if me.Cause != nil {
		je.Cause = me.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	me, ok := As(err)
	if !ok {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": me.Code,
		"message":    me.Message,
		"category":   string(me.Category),
		"severity":   string(me.Severity),
		"retryable":  me.Retryable,
	}
	if me.Cause != nil {
		result["cause"] = me.Cause.Error()
	}
	if me.Suggestion != "" {
		result["suggestion"] = me.Suggestion
	}
	for k, v := range me.Details {
		result["detail_"+k] = v
	}

	return result
}

// Sanitize returns the error as it may be shown to an external caller.
// Validation and not-found errors pass through with their message; anything
// else is reduced to its code and a generic message so that storage paths
// and driver errors do not leak.
func Sanitize(err error) *MDError {
	if err == nil {
		return nil
	}

	me, ok := As(err)
	if !ok {
		return New(ErrCodeInternal, "internal error", nil)
	}

	out := &MDError{
		Code:       me.Code,
		Category:   me.Category,
		Severity:   me.Severity,
		Retryable:  me.Retryable,
		Suggestion: me.Suggestion,
	}
	switch {
	case me.Category == CategoryValidation:
		out.Message = me.Message
		if len(me.Details) > 0 {
			out.Details = make(map[string]string, len(me.Details))
			for k, v := range me.Details {
				out.Details[k] = v
			}
		}
	case me.Category == CategoryStore && me.Code != ErrCodeInternal:
		out.Message = "index unavailable"
	default:
		out.Message = "internal error"
	}
	return out
}
