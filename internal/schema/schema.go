// Package schema validates order payloads against their order-type-specific
// rules and decodes them into the typed payload union. Validation is
// all-or-nothing: the first offending field fails the whole payload.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/internal/model"
)

// Error is a schema violation naming the offending field.
type Error struct {
	OrderType model.OrderType
	Field     string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid payload for %s: %s: %s", e.OrderType, e.Field, e.Message)
}

func schemaErrorf(ot model.OrderType, field, format string, args ...any) *Error {
	return &Error{OrderType: ot, Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	timeInForceValues = map[string]bool{"day": true, "gtc": true, "ioc": true, "fok": true}
	sideValues        = map[string]bool{"buy": true, "sell": true}
	queryStatusValues = map[string]bool{"open": true, "closed": true, "all": true}
	dataTypeValues    = map[string]bool{"quote": true, "bar": true, "trade": true}
	assetClassValues  = map[string]bool{"us_equity": true, "us_option": true, "crypto": true}

	cryptoSymbolPattern = regexp.MustCompile(`^[A-Z]+USD$`)
	occSymbolPattern    = regexp.MustCompile(`^[A-Z]{1,6}\d{6}[CP]\d{8}$`)
)

// ValidatePayload dispatches on order type to the matching validator and
// returns the decoded typed payload. Unknown order types cannot reach here;
// the identity parser rejects them first.
func ValidatePayload(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	switch ot {
	case model.OrderStockBuy, model.OrderStockSell:
		return validateStockOrder(ot, raw)
	case model.OrderOptionSingle:
		return validateOptionSingle(ot, raw)
	case model.OrderOptionMulti:
		return validateOptionMulti(ot, raw)
	case model.OrderCryptoBuy, model.OrderCryptoSell:
		return validateCryptoOrder(ot, raw)
	case model.OrderMarketData:
		return validateMarketData(ot, raw)
	case model.OrderStatus, model.OrderCancel:
		return validateOrderLookup(ot, raw)
	case model.OrderOpenOrders:
		return validateOpenOrders(ot, raw)
	case model.OrderAllOrders:
		return validateAllOrders(ot, raw)
	case model.OrderPositions:
		return validatePositions(ot, raw)
	case model.OrderAccountInfo:
		return validateAccountInfo(ot, raw)
	}
	return nil, errors.Newf("no validator for order type %q", ot)
}

// decodeInto unmarshals raw into dst, converting JSON type errors into schema
// errors that name the field (e.g. fractional qty into an integral field).
func decodeInto(ot model.OrderType, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return schemaErrorf(ot, typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return schemaErrorf(ot, "", "payload decode: %v", err)
	}
	return nil
}

func requireTimeInForce(ot model.OrderType, tif string) error {
	if !timeInForceValues[tif] {
		return schemaErrorf(ot, "time_in_force", "must be one of day, gtc, ioc, fok; got %q", tif)
	}
	return nil
}

// checkConditionalPrices enforces limit_price/stop_price presence by order
// class: required iff the class uses them, forbidden otherwise.
func checkConditionalPrices(ot model.OrderType, class string, limit, stop *float64, stopAllowed bool) error {
	needsLimit := class == model.ClassLimit || class == model.ClassStopLimit
	needsStop := stopAllowed && (class == model.ClassStop || class == model.ClassStopLimit)

	switch {
	case needsLimit && limit == nil:
		return schemaErrorf(ot, "limit_price", "required for order_class %q", class)
	case !needsLimit && limit != nil:
		return schemaErrorf(ot, "limit_price", "not accepted for order_class %q", class)
	case limit != nil && *limit <= 0:
		return schemaErrorf(ot, "limit_price", "must be positive, got %v", *limit)
	}
	switch {
	case needsStop && stop == nil:
		return schemaErrorf(ot, "stop_price", "required for order_class %q", class)
	case !needsStop && stop != nil:
		return schemaErrorf(ot, "stop_price", "not accepted for order_class %q", class)
	case stop != nil && *stop <= 0:
		return schemaErrorf(ot, "stop_price", "must be positive, got %v", *stop)
	}
	return nil
}

func validateStockOrder(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.StockOrder
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if p.Symbol == "" || len(p.Symbol) > 10 {
		return nil, schemaErrorf(ot, "symbol", "must be 1-10 characters, got %q", p.Symbol)
	}
	if p.Qty <= 0 {
		return nil, schemaErrorf(ot, "qty", "must be positive, got %v", p.Qty)
	}
	switch p.OrderClass {
	case model.ClassMarket, model.ClassLimit, model.ClassStop, model.ClassStopLimit:
	default:
		return nil, schemaErrorf(ot, "order_class", "must be one of market, limit, stop, stop_limit; got %q", p.OrderClass)
	}
	if err := checkConditionalPrices(ot, p.OrderClass, p.LimitPrice, p.StopPrice, true); err != nil {
		return nil, err
	}
	if err := requireTimeInForce(ot, p.TimeInForce); err != nil {
		return nil, err
	}
	return p, nil
}

func validateOptionSingle(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.OptionSingle
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if !occSymbolPattern.MatchString(p.Symbol) {
		return nil, schemaErrorf(ot, "symbol", "must be an OCC option symbol, got %q", p.Symbol)
	}
	if p.Qty <= 0 {
		return nil, schemaErrorf(ot, "qty", "must be a positive whole number of contracts, got %d", p.Qty)
	}
	if !sideValues[p.Side] {
		return nil, schemaErrorf(ot, "side", "must be buy or sell, got %q", p.Side)
	}
	if p.OrderClass != model.ClassMarket && p.OrderClass != model.ClassLimit {
		return nil, schemaErrorf(ot, "order_class", "must be market or limit, got %q", p.OrderClass)
	}
	if err := checkConditionalPrices(ot, p.OrderClass, p.LimitPrice, nil, false); err != nil {
		return nil, err
	}
	if err := requireTimeInForce(ot, p.TimeInForce); err != nil {
		return nil, err
	}
	return p, nil
}

func validateOptionMulti(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.OptionMulti
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if p.OrderClass != model.ClassMultiLeg {
		return nil, schemaErrorf(ot, "order_class", "must be %q, got %q", model.ClassMultiLeg, p.OrderClass)
	}
	if p.Type != model.ClassLimit {
		return nil, schemaErrorf(ot, "type", "must be %q, got %q", model.ClassLimit, p.Type)
	}
	if p.LimitPrice <= 0 {
		return nil, schemaErrorf(ot, "limit_price", "must be positive, got %v", p.LimitPrice)
	}
	if err := requireTimeInForce(ot, p.TimeInForce); err != nil {
		return nil, err
	}
	if len(p.Legs) < 2 {
		return nil, schemaErrorf(ot, "legs", "must have at least 2 legs, got %d", len(p.Legs))
	}
	for i, leg := range p.Legs {
		if leg.Symbol == "" {
			return nil, schemaErrorf(ot, fmt.Sprintf("legs[%d].symbol", i), "must not be empty")
		}
		if !sideValues[leg.Side] {
			return nil, schemaErrorf(ot, fmt.Sprintf("legs[%d].side", i), "must be buy or sell, got %q", leg.Side)
		}
		if leg.RatioQty <= 0 {
			return nil, schemaErrorf(ot, fmt.Sprintf("legs[%d].ratio_qty", i), "must be a positive integer, got %d", leg.RatioQty)
		}
	}
	return p, nil
}

func validateCryptoOrder(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.CryptoOrder
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if !cryptoSymbolPattern.MatchString(p.Symbol) {
		return nil, schemaErrorf(ot, "symbol", "must match [A-Z]+USD (e.g. BTCUSD), got %q", p.Symbol)
	}
	if p.Qty <= 0 {
		return nil, schemaErrorf(ot, "qty", "must be positive, got %v", p.Qty)
	}
	if p.OrderClass != model.ClassMarket && p.OrderClass != model.ClassLimit {
		return nil, schemaErrorf(ot, "order_class", "must be market or limit, got %q", p.OrderClass)
	}
	if err := checkConditionalPrices(ot, p.OrderClass, p.LimitPrice, nil, false); err != nil {
		return nil, err
	}
	if err := requireTimeInForce(ot, p.TimeInForce); err != nil {
		return nil, err
	}
	return p, nil
}

func validateMarketData(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.MarketDataQuery
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if len(p.Symbols) == 0 {
		return nil, schemaErrorf(ot, "symbols", "must not be empty")
	}
	for i, s := range p.Symbols {
		if s == "" {
			return nil, schemaErrorf(ot, fmt.Sprintf("symbols[%d]", i), "must not be empty")
		}
	}
	if !dataTypeValues[p.DataType] {
		return nil, schemaErrorf(ot, "data_type", "must be one of quote, bar, trade; got %q", p.DataType)
	}
	return p, nil
}

func validateOrderLookup(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.OrderLookup
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	switch {
	case p.AlpacaOrderID == "" && p.ClientOrderID == "":
		return nil, schemaErrorf(ot, "alpaca_order_id", "exactly one of alpaca_order_id or client_order_id is required")
	case p.AlpacaOrderID != "" && p.ClientOrderID != "":
		return nil, schemaErrorf(ot, "alpaca_order_id", "alpaca_order_id and client_order_id are mutually exclusive")
	}
	return p, nil
}

func validateOpenOrders(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.OpenOrdersQuery
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = "open"
	}
	if !queryStatusValues[p.Status] {
		return nil, schemaErrorf(ot, "status", "must be one of open, closed, all; got %q", p.Status)
	}
	if p.Limit == 0 {
		p.Limit = 100
	}
	if p.Limit < 0 || p.Limit > 500 {
		return nil, schemaErrorf(ot, "limit", "must be between 1 and 500, got %d", p.Limit)
	}
	return p, nil
}

func validateAllOrders(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.AllOrdersQuery
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = "all"
	}
	if !queryStatusValues[p.Status] {
		return nil, schemaErrorf(ot, "status", "must be one of open, closed, all; got %q", p.Status)
	}
	if p.Limit == 0 {
		p.Limit = 100
	}
	if p.Limit < 0 || p.Limit > 500 {
		return nil, schemaErrorf(ot, "limit", "must be between 1 and 500, got %d", p.Limit)
	}
	if p.Direction == "" {
		p.Direction = "desc"
	}
	if p.Direction != "asc" && p.Direction != "desc" {
		return nil, schemaErrorf(ot, "direction", "must be asc or desc, got %q", p.Direction)
	}
	return p, nil
}

func validatePositions(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.PositionsQuery
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	if p.AssetClass != "" && !assetClassValues[p.AssetClass] {
		return nil, schemaErrorf(ot, "asset_class", "must be one of us_equity, us_option, crypto; got %q", p.AssetClass)
	}
	return p, nil
}

func validateAccountInfo(ot model.OrderType, raw json.RawMessage) (model.Payload, error) {
	var p model.AccountQuery
	if err := decodeInto(ot, raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
