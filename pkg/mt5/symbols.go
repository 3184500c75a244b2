package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
)

// SymbolsTotal returns the count of symbols in the terminal's Market Watch.
func (c *Client) SymbolsTotal(ctx context.Context) (int64, error) {
	v, err := c.resilientCall(ctx, "symbols_total", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().SymbolsTotal(ctx, &mt5gen.Empty{})
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

// SymbolsGet lists symbol names, optionally filtered by a group mask
// carried in SymbolRequest.Symbol (e.g. "*USD*"). The terminal's chunked
// JSON response is concatenated here.
func (c *Client) SymbolsGet(ctx context.Context, groupFilter string) ([]string, error) {
	v, err := c.resilientCall(ctx, "symbols_get", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().SymbolsGet(ctx, &mt5gen.SymbolRequest{Symbol: groupFilter})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return decodeSymbolsChunks(resp.Chunks)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// SymbolInfo returns a symbol's full info as a decoded JSON object.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (map[string]any, error) {
	v, err := c.resilientCall(ctx, "symbol_info", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().SymbolInfo(ctx, &mt5gen.SymbolRequest{Symbol: symbol})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return decodeJSONObject(resp.JSONData)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// SymbolInfoTick returns a symbol's last tick as a decoded JSON object.
func (c *Client) SymbolInfoTick(ctx context.Context, symbol string) (map[string]any, error) {
	v, err := c.resilientCall(ctx, "symbol_info_tick", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().SymbolInfoTick(ctx, &mt5gen.SymbolRequest{Symbol: symbol})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return decodeJSONObject(resp.JSONData)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// SymbolSelect adds or removes a symbol from Market Watch.
func (c *Client) SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error) {
	v, err := c.resilientCall(ctx, "symbol_select", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().SymbolSelect(ctx, &mt5gen.SymbolSelectRequest{Symbol: symbol, Enable: enable})
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
