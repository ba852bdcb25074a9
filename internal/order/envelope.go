package order

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/exchangetower/tower/internal/model"
)

// envelopeSchema returns the JSON-Schema for the required order envelope.
// Structural checks live here; cross-field checks against the filename are
// done separately because the schema cannot see the filename.
func envelopeSchema() map[string]any {
	orderTypes := make([]any, len(model.AllOrderTypes))
	for i, t := range model.AllOrderTypes {
		orderTypes[i] = string(t)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"agent_id", "client_order_id", "order_type", "mode", "payload"},
		"properties": map[string]any{
			"agent_id":        map[string]any{"type": "string", "pattern": "^[a-z0-9]{1,20}$"},
			"client_order_id": map[string]any{"type": "string", "minLength": 1},
			"order_type":      map[string]any{"type": "string", "enum": orderTypes},
			"mode":            map[string]any{"type": "string", "enum": []any{"paper", "live"}},
			"payload":         map[string]any{"type": "object"},
		},
	}
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledEnvelopeSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(envelopeSchema())
		if err != nil {
			compileErr = errors.Wrap(err, "marshal envelope schema")
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("envelope.json", bytes.NewReader(b)); err != nil {
			compileErr = errors.Wrap(err, "add envelope schema")
			return
		}
		compiledSchema, compileErr = compiler.Compile("envelope.json")
	})
	return compiledSchema, compileErr
}

// DecodeEnvelope validates the order body against the envelope schema,
// decodes it, and cross-checks every identity field against the filename.
// The body must agree with the filename on mode, agent, order type, and the
// derived client_order_id; any disagreement is a validation failure, never
// silently resolved.
func DecodeEnvelope(id model.Identity, body []byte) (model.Envelope, error) {
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return model.Envelope{}, validationErrorf(CodeInvalidJSON, "", "body is not valid JSON: %v", err)
	}

	schema, err := compiledEnvelopeSchema()
	if err != nil {
		return model.Envelope{}, err
	}
	if err := schema.Validate(generic); err != nil {
		return model.Envelope{}, validationErrorf(CodeEnvelopeSchema, "", "envelope does not match schema: %v", err)
	}

	var env model.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return model.Envelope{}, validationErrorf(CodeInvalidJSON, "", "decode envelope: %v", err)
	}

	if env.Mode != id.Mode {
		return model.Envelope{}, validationErrorf(CodeModeMismatch, "mode",
			"filename has %q, body has %q", id.Mode, env.Mode)
	}
	if env.AgentID != id.AgentID {
		return model.Envelope{}, validationErrorf(CodeIdentityMismatch, "agent_id",
			"filename has %q, body has %q", id.AgentID, env.AgentID)
	}
	if env.OrderType != id.OrderType {
		return model.Envelope{}, validationErrorf(CodeIdentityMismatch, "order_type",
			"filename has %q, body has %q", id.OrderType, env.OrderType)
	}
	if derived := id.ClientOrderID(); env.ClientOrderID != derived {
		return model.Envelope{}, validationErrorf(CodeIdentityMismatch, "client_order_id",
			"expected %q derived from filename, body has %q", derived, env.ClientOrderID)
	}

	return env, nil
}
