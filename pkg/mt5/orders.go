package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
)

// OrdersTotal returns the count of active pending orders.
func (c *Client) OrdersTotal(ctx context.Context) (int64, error) {
	v, err := c.resilientCall(ctx, "orders_total", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().OrdersTotal(ctx, &mt5gen.Empty{})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp.Value, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// OrdersGet lists active pending orders, optionally filtered by symbol or
// ticket (zero values mean "all orders").
func (c *Client) OrdersGet(ctx context.Context, symbol string, ticket int64) ([]map[string]any, error) {
	v, err := c.resilientCall(ctx, "orders_get", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().OrdersGet(ctx, &mt5gen.OrdersRequest{Symbol: symbol, Ticket: ticket})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return decodeJSONList(resp.JSONItems)
	})
	if err != nil {
		return nil, err
	}
	return v.([]map[string]any), nil
}
