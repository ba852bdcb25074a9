package model

// Payload is the closed union over order-type-specific bodies. Every order
// type maps to exactly one concrete payload struct; buy/sell pairs share a
// struct because they differ only in the side injected at dispatch time.
type Payload interface {
	isPayload()
}

// OrderClass values accepted for stock orders. Crypto and single-leg options
// accept only the market/limit subset; multi-leg is always "mleg".
const (
	ClassMarket    = "market"
	ClassLimit     = "limit"
	ClassStop      = "stop"
	ClassStopLimit = "stop_limit"
	ClassMultiLeg  = "mleg"
)

// StockOrder is the payload for stockbuy/stocksell. Fractional qty allowed.
type StockOrder struct {
	Symbol      string   `json:"symbol"`
	Qty         float64  `json:"qty"`
	OrderClass  string   `json:"order_class"`
	LimitPrice  *float64 `json:"limit_price,omitempty"`
	StopPrice   *float64 `json:"stop_price,omitempty"`
	TimeInForce string   `json:"time_in_force"`
}

// OptionSingle is the payload for optionsingle. Symbol is OCC format,
// qty must be a whole number of contracts.
type OptionSingle struct {
	Symbol      string   `json:"symbol"`
	Qty         int      `json:"qty"`
	Side        string   `json:"side"`
	OrderClass  string   `json:"order_class"`
	LimitPrice  *float64 `json:"limit_price,omitempty"`
	TimeInForce string   `json:"time_in_force"`
}

// OptionLeg is one leg of a multi-leg option order.
type OptionLeg struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	RatioQty int    `json:"ratio_qty"`
}

// OptionMulti is the payload for optionmulti. OrderClass is always "mleg".
type OptionMulti struct {
	OrderClass  string      `json:"order_class"`
	Type        string      `json:"type"`
	LimitPrice  float64     `json:"limit_price"`
	TimeInForce string      `json:"time_in_force"`
	Legs        []OptionLeg `json:"legs"`
}

// CryptoOrder is the payload for cryptobuy/cryptosell. Symbol is e.g. BTCUSD.
type CryptoOrder struct {
	Symbol      string   `json:"symbol"`
	Qty         float64  `json:"qty"`
	OrderClass  string   `json:"order_class"`
	LimitPrice  *float64 `json:"limit_price,omitempty"`
	TimeInForce string   `json:"time_in_force"`
}

// MarketDataQuery is the payload for marketdata.
type MarketDataQuery struct {
	Symbols  []string `json:"symbols"`
	DataType string   `json:"data_type"`
}

// OrderLookup is the payload for orderstatus and cancelorder.
// Exactly one of the two id forms must be set; validation enforces it.
type OrderLookup struct {
	AlpacaOrderID string `json:"alpaca_order_id,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// OpenOrdersQuery is the payload for openorders. Zero values mean
// "apply defaults" (status=open, limit=100).
type OpenOrdersQuery struct {
	Status  string   `json:"status,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

// AllOrdersQuery is the payload for allorders. Zero values mean
// "apply defaults" (status=all, limit=100, direction=desc).
type AllOrdersQuery struct {
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	After     string `json:"after,omitempty"`
	Until     string `json:"until,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// PositionsQuery is the payload for positions.
type PositionsQuery struct {
	AssetClass string `json:"asset_class,omitempty"`
}

// AccountQuery is the (empty) payload for accountinfo.
type AccountQuery struct{}

func (StockOrder) isPayload()      {}
func (OptionSingle) isPayload()    {}
func (OptionMulti) isPayload()     {}
func (CryptoOrder) isPayload()     {}
func (MarketDataQuery) isPayload() {}
func (OrderLookup) isPayload()     {}
func (OpenOrdersQuery) isPayload() {}
func (AllOrdersQuery) isPayload()  {}
func (PositionsQuery) isPayload()  {}
func (AccountQuery) isPayload()    {}
