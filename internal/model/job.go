package model

import "encoding/json"

// Envelope is the required top-level structure of every order file body.
// Payload stays raw here; it is decoded into a typed Payload only after the
// order-type-specific schema accepts it.
type Envelope struct {
	AgentID       string          `json:"agent_id"`
	ClientOrderID string          `json:"client_order_id"`
	OrderType     OrderType       `json:"order_type"`
	Mode          Mode            `json:"mode"`
	Payload       json.RawMessage `json:"payload"`
}

// Job is one order-file instance moving through the pipeline.
type Job struct {
	Identity Identity
	Envelope Envelope
	Payload  Payload
	State    State
}

// ClientOrderID returns the idempotency key derived from the identity.
func (j *Job) ClientOrderID() string {
	return j.Identity.ClientOrderID()
}

// Transition advances the job state, enforcing the lifecycle.
func (j *Job) Transition(to State) error {
	if err := ValidateStateTransition(j.State, to); err != nil {
		return err
	}
	j.State = to
	return nil
}
