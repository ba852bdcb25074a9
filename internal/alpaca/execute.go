package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/internal/model"
)

// Result is the outcome of one executed job. OrderID is set when the call
// created, looked up, or canceled a single upstream order.
type Result struct {
	Data    any
	OrderID *string
}

// Execute routes a validated job to its upstream endpoint.
func (c *Client) Execute(ctx context.Context, job *model.Job) (*Result, error) {
	switch p := job.Payload.(type) {
	case model.StockOrder:
		return c.submitOrder(ctx, stockBody(job, p))
	case model.CryptoOrder:
		return c.submitOrder(ctx, cryptoBody(job, p))
	case model.OptionSingle:
		return c.submitOrder(ctx, optionSingleBody(job, p))
	case model.OptionMulti:
		return c.submitOrder(ctx, optionMultiBody(job, p))
	case model.MarketDataQuery:
		return c.marketData(ctx, p)
	case model.OrderLookup:
		if job.Identity.OrderType.IsCancel() {
			return c.cancelOrder(ctx, p)
		}
		return c.orderStatus(ctx, p)
	case model.OpenOrdersQuery:
		return c.listOrders(ctx, openOrdersQuery(p))
	case model.AllOrdersQuery:
		return c.listOrders(ctx, allOrdersQuery(p))
	case model.PositionsQuery:
		return c.positions(ctx, p)
	case model.AccountQuery:
		return c.account(ctx)
	}
	return nil, errors.Newf("no endpoint for payload %T", job.Payload)
}

// sideFor derives the side for buy/sell order type pairs.
func sideFor(t model.OrderType) string {
	if t == model.OrderStockSell || t == model.OrderCryptoSell {
		return "sell"
	}
	return "buy"
}

// The trading API takes qty and prices as decimal strings.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stockBody(job *model.Job, p model.StockOrder) map[string]any {
	body := map[string]any{
		"symbol":          p.Symbol,
		"qty":             num(p.Qty),
		"side":            sideFor(job.Identity.OrderType),
		"type":            p.OrderClass,
		"time_in_force":   p.TimeInForce,
		"client_order_id": job.ClientOrderID(),
	}
	if p.LimitPrice != nil {
		body["limit_price"] = num(*p.LimitPrice)
	}
	if p.StopPrice != nil {
		body["stop_price"] = num(*p.StopPrice)
	}
	return body
}

func cryptoBody(job *model.Job, p model.CryptoOrder) map[string]any {
	body := map[string]any{
		"symbol":          p.Symbol,
		"qty":             num(p.Qty),
		"side":            sideFor(job.Identity.OrderType),
		"type":            p.OrderClass,
		"time_in_force":   p.TimeInForce,
		"client_order_id": job.ClientOrderID(),
	}
	if p.LimitPrice != nil {
		body["limit_price"] = num(*p.LimitPrice)
	}
	return body
}

func optionSingleBody(job *model.Job, p model.OptionSingle) map[string]any {
	body := map[string]any{
		"symbol":          p.Symbol,
		"qty":             strconv.Itoa(p.Qty),
		"side":            p.Side,
		"type":            p.OrderClass,
		"time_in_force":   p.TimeInForce,
		"client_order_id": job.ClientOrderID(),
	}
	if p.LimitPrice != nil {
		body["limit_price"] = num(*p.LimitPrice)
	}
	return body
}

func optionMultiBody(job *model.Job, p model.OptionMulti) map[string]any {
	legs := make([]map[string]any, 0, len(p.Legs))
	for _, leg := range p.Legs {
		legs = append(legs, map[string]any{
			"symbol":    leg.Symbol,
			"side":      leg.Side,
			"ratio_qty": strconv.Itoa(leg.RatioQty),
		})
	}
	return map[string]any{
		"order_class":     p.OrderClass,
		"type":            p.Type,
		"qty":             "1",
		"limit_price":     num(p.LimitPrice),
		"time_in_force":   p.TimeInForce,
		"legs":            legs,
		"client_order_id": job.ClientOrderID(),
	}
}

func (c *Client) submitOrder(ctx context.Context, body map[string]any) (*Result, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode order body")
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/orders", encoded)
	if err != nil {
		return nil, err
	}
	var order map[string]any
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return &Result{Data: order, OrderID: orderIDOf(order)}, nil
}

func orderIDOf(order map[string]any) *string {
	if id, ok := order["id"].(string); ok && id != "" {
		return &id
	}
	return nil
}

// resolveOrder fetches one order by whichever id form the lookup carries.
func (c *Client) resolveOrder(ctx context.Context, p model.OrderLookup) (map[string]any, error) {
	var u string
	if p.AlpacaOrderID != "" {
		u = c.baseURL + "/v2/orders/" + url.PathEscape(p.AlpacaOrderID)
	} else {
		u = c.baseURL + "/v2/orders:by_client_order_id?client_order_id=" + url.QueryEscape(p.ClientOrderID)
	}
	var order map[string]any
	if err := c.getJSON(ctx, u, &order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) orderStatus(ctx context.Context, p model.OrderLookup) (*Result, error) {
	order, err := c.resolveOrder(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Result{Data: order, OrderID: orderIDOf(order)}, nil
}

// cancelOrder resolves the upstream order id first when only the client order
// id is known, then requests cancellation. Cancellation is asynchronous
// upstream; a 204 means accepted, not yet canceled.
func (c *Client) cancelOrder(ctx context.Context, p model.OrderLookup) (*Result, error) {
	orderID := p.AlpacaOrderID
	if orderID == "" {
		order, err := c.resolveOrder(ctx, p)
		if err != nil {
			return nil, err
		}
		id := orderIDOf(order)
		if id == nil {
			return nil, errors.New("order lookup response has no id")
		}
		orderID = *id
	}
	if _, err := c.do(ctx, http.MethodDelete, c.baseURL+"/v2/orders/"+url.PathEscape(orderID), nil); err != nil {
		return nil, err
	}
	return &Result{
		Data:    map[string]any{"order_id": orderID, "status": "cancel_requested"},
		OrderID: &orderID,
	}, nil
}

func openOrdersQuery(p model.OpenOrdersQuery) url.Values {
	q := url.Values{}
	q.Set("status", p.Status)
	q.Set("limit", strconv.Itoa(p.Limit))
	if len(p.Symbols) > 0 {
		q.Set("symbols", strings.Join(p.Symbols, ","))
	}
	return q
}

func allOrdersQuery(p model.AllOrdersQuery) url.Values {
	q := url.Values{}
	q.Set("status", p.Status)
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("direction", p.Direction)
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Until != "" {
		q.Set("until", p.Until)
	}
	return q
}

func (c *Client) listOrders(ctx context.Context, q url.Values) (*Result, error) {
	var orders []map[string]any
	if err := c.getJSON(ctx, c.baseURL+"/v2/orders?"+q.Encode(), &orders); err != nil {
		return nil, err
	}
	return &Result{Data: map[string]any{"orders": orders, "count": len(orders)}}, nil
}

// positions lists open positions; the asset class filter is applied locally
// because the upstream endpoint has no such parameter.
func (c *Client) positions(ctx context.Context, p model.PositionsQuery) (*Result, error) {
	var all []map[string]any
	if err := c.getJSON(ctx, c.baseURL+"/v2/positions", &all); err != nil {
		return nil, err
	}
	positions := all
	if p.AssetClass != "" {
		positions = make([]map[string]any, 0, len(all))
		for _, pos := range all {
			if cls, _ := pos["asset_class"].(string); cls == p.AssetClass {
				positions = append(positions, pos)
			}
		}
	}
	return &Result{Data: map[string]any{"positions": positions, "count": len(positions)}}, nil
}

func (c *Client) account(ctx context.Context) (*Result, error) {
	var acct map[string]any
	if err := c.getJSON(ctx, c.baseURL+"/v2/account", &acct); err != nil {
		return nil, err
	}
	return &Result{Data: acct}, nil
}

// dataKind maps the query data type onto the latest-value endpoint segment,
// shared by the stock and crypto hosts.
var dataKind = map[string]string{
	"quote": "quotes",
	"bar":   "bars",
	"trade": "trades",
}

// marketData fetches the latest quote, bar, or trade per symbol. Symbols
// matching the crypto pair form are routed to the crypto host, the rest to
// the stock host; a mixed query produces both sections.
func (c *Client) marketData(ctx context.Context, p model.MarketDataQuery) (*Result, error) {
	kind := dataKind[p.DataType]
	var stocks, crypto []string
	for _, s := range p.Symbols {
		if isCryptoSymbol(s) {
			crypto = append(crypto, cryptoPair(s))
		} else {
			stocks = append(stocks, s)
		}
	}

	data := map[string]any{"data_type": p.DataType}
	if len(stocks) > 0 {
		var body map[string]any
		u := c.dataURL + "/v2/stocks/" + kind + "/latest?symbols=" + url.QueryEscape(strings.Join(stocks, ","))
		if err := c.getJSON(ctx, u, &body); err != nil {
			return nil, err
		}
		data["stocks"] = body[kind]
	}
	if len(crypto) > 0 {
		var body map[string]any
		u := c.dataURL + "/v1beta3/crypto/us/latest/" + kind + "?symbols=" + url.QueryEscape(strings.Join(crypto, ","))
		if err := c.getJSON(ctx, u, &body); err != nil {
			return nil, err
		}
		data["crypto"] = body[kind]
	}
	return &Result{Data: data}, nil
}

func isCryptoSymbol(s string) bool {
	return len(s) > 3 && strings.HasSuffix(s, "USD")
}

// cryptoPair rewrites BTCUSD into the BTC/USD form the crypto host expects.
func cryptoPair(s string) string {
	if strings.Contains(s, "/") {
		return s
	}
	return strings.TrimSuffix(s, "USD") + "/USD"
}
