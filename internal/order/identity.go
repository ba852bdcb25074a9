// Package order parses intake filenames and order file bodies into typed jobs.
// The filename is the routing key (which credential set to use); the body is
// agent-declared intent. Both are validated and cross-checked before any
// side-effecting call is made.
package order

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/exchangetower/tower/internal/model"
)

// Validation error codes surfaced in error response records.
const (
	CodeMalformedFilename = "malformed_filename"
	CodeInvalidMode       = "invalid_mode"
	CodeInvalidAgentID    = "invalid_agent_id"
	CodeUnknownOrderType  = "unknown_order_type"
	CodeInvalidTimestamp  = "invalid_timestamp"
	CodeInvalidJSON       = "invalid_json"
	CodeEnvelopeSchema    = "envelope_schema"
	CodeModeMismatch      = "mode_mismatch"
	CodeIdentityMismatch  = "identity_mismatch"
)

// ValidationError is a local, never-retried order rejection.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationErrorf(code, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

var agentIDPattern = regexp.MustCompile(`^[a-z0-9]{1,20}$`)

// ParseFilename splits an intake filename into its typed identity.
// Contract: {mode}_{agent_id}_{order_type}_{timestamp}.json, exactly four
// underscore-separated fields, each validated independently.
func ParseFilename(filename string) (model.Identity, error) {
	base, ok := strings.CutSuffix(filename, ".json")
	if !ok {
		return model.Identity{}, validationErrorf(CodeMalformedFilename, "",
			"filename must end with .json: %s", filename)
	}

	parts := strings.Split(base, "_")
	if len(parts) != 4 {
		return model.Identity{}, validationErrorf(CodeMalformedFilename, "",
			"filename must have exactly 4 underscore-separated fields, got %d: %s", len(parts), filename)
	}

	mode := model.Mode(parts[0])
	if !mode.IsValid() {
		return model.Identity{}, validationErrorf(CodeInvalidMode, "mode",
			"must be 'paper' or 'live', got %q", parts[0])
	}

	agentID := parts[1]
	if !agentIDPattern.MatchString(agentID) {
		return model.Identity{}, validationErrorf(CodeInvalidAgentID, "agent_id",
			"must match [a-z0-9]{1,20}, got %q", agentID)
	}

	orderType := model.OrderType(parts[2])
	if !orderType.IsValid() {
		return model.Identity{}, validationErrorf(CodeUnknownOrderType, "order_type",
			"unknown order type %q", parts[2])
	}

	at, err := model.ParseOrderTimestamp(parts[3])
	if err != nil {
		return model.Identity{}, validationErrorf(CodeInvalidTimestamp, "timestamp",
			"%q does not parse as YYYYMMDDHHMMSS + 6-digit microseconds UTC: %v", parts[3], err)
	}

	return model.Identity{
		Mode:      mode,
		AgentID:   agentID,
		OrderType: orderType,
		Timestamp: parts[3],
		At:        at,
	}, nil
}
