package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
)

// HistoryOrdersTotal counts historical orders matching the filter.
func (c *Client) HistoryOrdersTotal(ctx context.Context, dateFrom, dateTo, ticket, position int64) (int64, error) {
	v, err := c.resilientCall(ctx, "history_orders_total", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().HistoryOrdersTotal(ctx, &mt5gen.HistoryRequest{DateFrom: dateFrom, DateTo: dateTo, Ticket: ticket, Position: position})
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

// HistoryOrdersGet lists historical orders matching the filter.
func (c *Client) HistoryOrdersGet(ctx context.Context, dateFrom, dateTo, ticket, position int64) ([]map[string]any, error) {
	v, err := c.resilientCall(ctx, "history_orders_get", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().HistoryOrdersGet(ctx, &mt5gen.HistoryRequest{DateFrom: dateFrom, DateTo: dateTo, Ticket: ticket, Position: position})
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

// HistoryDealsTotal counts historical deals matching the filter.
func (c *Client) HistoryDealsTotal(ctx context.Context, dateFrom, dateTo, ticket, position int64) (int64, error) {
	v, err := c.resilientCall(ctx, "history_deals_total", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().HistoryDealsTotal(ctx, &mt5gen.HistoryRequest{DateFrom: dateFrom, DateTo: dateTo, Ticket: ticket, Position: position})
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

// HistoryDealsGet lists historical deals matching the filter.
func (c *Client) HistoryDealsGet(ctx context.Context, dateFrom, dateTo, ticket, position int64) ([]map[string]any, error) {
	v, err := c.resilientCall(ctx, "history_deals_get", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().HistoryDealsGet(ctx, &mt5gen.HistoryRequest{DateFrom: dateFrom, DateTo: dateTo, Ticket: ticket, Position: position})
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
