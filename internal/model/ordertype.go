package model

// OrderType tags one of the 13 supported order file variants.
type OrderType string

const (
	OrderStockBuy     OrderType = "stockbuy"
	OrderStockSell    OrderType = "stocksell"
	OrderOptionSingle OrderType = "optionsingle"
	OrderOptionMulti  OrderType = "optionmulti"
	OrderCryptoBuy    OrderType = "cryptobuy"
	OrderCryptoSell   OrderType = "cryptosell"
	OrderMarketData   OrderType = "marketdata"
	OrderStatus       OrderType = "orderstatus"
	OrderOpenOrders   OrderType = "openorders"
	OrderAllOrders    OrderType = "allorders"
	OrderPositions    OrderType = "positions"
	OrderAccountInfo  OrderType = "accountinfo"
	OrderCancel       OrderType = "cancelorder"
)

// AllOrderTypes lists every valid tag, in documentation order.
var AllOrderTypes = []OrderType{
	OrderStockBuy, OrderStockSell,
	OrderOptionSingle, OrderOptionMulti,
	OrderCryptoBuy, OrderCryptoSell,
	OrderMarketData, OrderStatus, OrderOpenOrders, OrderAllOrders,
	OrderPositions, OrderAccountInfo, OrderCancel,
}

var validOrderTypes = func() map[OrderType]bool {
	m := make(map[OrderType]bool, len(AllOrderTypes))
	for _, t := range AllOrderTypes {
		m[t] = true
	}
	return m
}()

// IsValid reports whether t is one of the 13 enumerated tags.
func (t OrderType) IsValid() bool {
	return validOrderTypes[t]
}

// IsSubmission reports whether t submits a new order upstream.
// Submission calls carry the client_order_id idempotency key.
func (t OrderType) IsSubmission() bool {
	switch t {
	case OrderStockBuy, OrderStockSell, OrderOptionSingle, OrderOptionMulti,
		OrderCryptoBuy, OrderCryptoSell:
		return true
	}
	return false
}

// IsCancel reports whether t is served from the rate limiter's priority lane.
func (t OrderType) IsCancel() bool {
	return t == OrderCancel
}
