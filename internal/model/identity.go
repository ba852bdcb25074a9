// Package model defines the data structures for tower's jobs, order payloads,
// lifecycle states, and response records.
package model

import (
	"fmt"
	"time"
)

// Mode selects the trading environment and with it the upstream credential set.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// IsValid reports whether m is an exact match for a known mode.
// No case folding: "Paper" is invalid.
func (m Mode) IsValid() bool {
	return m == ModePaper || m == ModeLive
}

// TimestampLayout is the 20-digit order timestamp format:
// YYYYMMDDHHMMSS followed by 6 microsecond digits, UTC.
const TimestampLayout = "20060102150405.000000"

// Identity is the typed form of an order filename:
// {mode}_{agent_id}_{order_type}_{timestamp}.json
type Identity struct {
	Mode      Mode
	AgentID   string
	OrderType OrderType
	Timestamp string // raw 20-digit stamp, already validated
	At        time.Time
}

// ClientOrderID derives the caller-assigned idempotency key sent upstream.
// Globally unique by construction: agent + microsecond timestamp + type.
func (id Identity) ClientOrderID() string {
	return fmt.Sprintf("%s_%s_%s", id.AgentID, id.Timestamp, id.OrderType)
}

// Filename reconstructs the intake filename this identity was parsed from.
func (id Identity) Filename() string {
	return fmt.Sprintf("%s_%s_%s_%s.json", id.Mode, id.AgentID, id.OrderType, id.Timestamp)
}

// DateDir returns the YYYYMMDD component used for response partitioning.
// Taken from the order timestamp, not the wall clock, so responses land
// next to the day the agent stamped the order.
func (id Identity) DateDir() string {
	return id.Timestamp[:8]
}

// ParseOrderTimestamp parses a 20-digit stamp into a UTC time.
func ParseOrderTimestamp(ts string) (time.Time, error) {
	if len(ts) != 20 {
		return time.Time{}, fmt.Errorf("timestamp must be exactly 20 digits, got %d", len(ts))
	}
	t, err := time.ParseInLocation(TimestampLayout, ts[:14]+"."+ts[14:], time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
