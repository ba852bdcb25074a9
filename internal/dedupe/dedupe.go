// Package dedupe suppresses re-submission of already-accepted orders through
// a chain of checkers ordered by increasing cost and authority: recency cache,
// terminal archive, upstream query.
package dedupe

import (
	"context"
	"log/slog"
)

// Layer names reported in duplicate error responses.
const (
	LayerRecencyCache  = "recency_cache"
	LayerArchiveScan   = "archive_scan"
	LayerUpstreamQuery = "upstream_query"
)

// Checker answers whether a client order id is already known at one layer.
type Checker interface {
	Name() string
	Check(ctx context.Context, clientOrderID string) (bool, error)
}

// Chain composes checkers in fixed order, short-circuiting on the first
// positive. A layer error is advisory: it is logged and the next layer is
// consulted, because dispatch itself will surface any real upstream fault
// and upstream rejects duplicate client order ids regardless.
type Chain struct {
	checkers []Checker
	logger   *slog.Logger
}

// NewChain builds a chain over the given checkers, consulted in order.
func NewChain(logger *slog.Logger, checkers ...Checker) *Chain {
	return &Chain{checkers: checkers, logger: logger}
}

// Detect returns the name of the first layer that knows the id, or ok=false
// if every layer is negative.
func (c *Chain) Detect(ctx context.Context, clientOrderID string) (layer string, dup bool) {
	for _, checker := range c.checkers {
		found, err := checker.Check(ctx, clientOrderID)
		if err != nil {
			c.logger.Warn("dedupe_layer_error",
				"layer", checker.Name(),
				"client_order_id", clientOrderID,
				"error", err)
			continue
		}
		if found {
			return checker.Name(), true
		}
	}
	return "", false
}
