package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
)

// MarketBookAdd subscribes to market depth (DOM) updates for a symbol.
func (c *Client) MarketBookAdd(ctx context.Context, symbol string) (bool, error) {
	v, err := c.resilientCall(ctx, "market_book_add", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().MarketBookAdd(ctx, &mt5gen.BookRequest{Symbol: symbol})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp.Result, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// MarketBookGet returns the current DOM snapshot for a symbol subscribed
// via MarketBookAdd.
func (c *Client) MarketBookGet(ctx context.Context, symbol string) ([]map[string]any, error) {
	v, err := c.resilientCall(ctx, "market_book_get", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().MarketBookGet(ctx, &mt5gen.BookRequest{Symbol: symbol})
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

// MarketBookRelease unsubscribes from market depth updates for a symbol.
func (c *Client) MarketBookRelease(ctx context.Context, symbol string) (bool, error) {
	v, err := c.resilientCall(ctx, "market_book_release", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().MarketBookRelease(ctx, &mt5gen.BookRequest{Symbol: symbol})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp.Result, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
