package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
)

// PositionsTotal returns the count of open positions.
func (c *Client) PositionsTotal(ctx context.Context) (int64, error) {
	v, err := c.resilientCall(ctx, "positions_total", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().PositionsTotal(ctx, &mt5gen.Empty{})
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

// PositionsGet lists open positions, optionally filtered by symbol or
// ticket (zero values mean "all positions").
func (c *Client) PositionsGet(ctx context.Context, symbol string, ticket int64) ([]map[string]any, error) {
	v, err := c.resilientCall(ctx, "positions_get", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().PositionsGet(ctx, &mt5gen.PositionsRequest{Symbol: symbol, Ticket: ticket})
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
