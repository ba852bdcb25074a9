package dedupe

import "context"

// OrderFinder is the upstream capability the third layer needs: whether the
// brokerage already knows an order with this client order id.
type OrderFinder interface {
	FindOrderByClientID(ctx context.Context, clientOrderID string) (bool, error)
}

// UpstreamChecker is the authoritative last layer. It is consulted only when
// the cheaper local layers are negative, because upstream queries spend API
// budget and are subject to the upstream's own rate limit.
type UpstreamChecker struct {
	finder OrderFinder
}

// NewUpstreamChecker wraps an OrderFinder as a dedupe layer.
func NewUpstreamChecker(finder OrderFinder) *UpstreamChecker {
	return &UpstreamChecker{finder: finder}
}

func (u *UpstreamChecker) Name() string { return LayerUpstreamQuery }

func (u *UpstreamChecker) Check(ctx context.Context, clientOrderID string) (bool, error) {
	return u.finder.FindOrderByClientID(ctx, clientOrderID)
}
