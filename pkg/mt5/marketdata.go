package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
	"mt5bridge/pkg/numpy"
)

// CopyRatesFrom returns count bars of timeframe starting at dateFrom
// (unix seconds).
func (c *Client) CopyRatesFrom(ctx context.Context, symbol string, timeframe int32, dateFrom int64, count int32) ([]numpy.Rate, error) {
	v, err := c.resilientCall(ctx, "copy_rates_from", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().CopyRatesFrom(ctx, &mt5gen.CopyRatesRequest{Symbol: symbol, Timeframe: timeframe, DateFrom: dateFrom, Count: count})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return numpy.DecodeRates(resp.Data, resp.Dtype, resp.Shape)
	})
	if err != nil {
		return nil, err
	}
	return v.([]numpy.Rate), nil
}

// CopyRatesFromPos returns count bars starting at a position offset from
// the current bar (0 = most recent).
func (c *Client) CopyRatesFromPos(ctx context.Context, symbol string, timeframe, start, count int32) ([]numpy.Rate, error) {
	v, err := c.resilientCall(ctx, "copy_rates_from_pos", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().CopyRatesFromPos(ctx, &mt5gen.CopyRatesPosRequest{Symbol: symbol, Timeframe: timeframe, Start: start, Count: count})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return numpy.DecodeRates(resp.Data, resp.Dtype, resp.Shape)
	})
	if err != nil {
		return nil, err
	}
	return v.([]numpy.Rate), nil
}

// CopyRatesRange returns bars of timeframe within an inclusive date range.
func (c *Client) CopyRatesRange(ctx context.Context, symbol string, timeframe int32, dateFrom, dateTo int64) ([]numpy.Rate, error) {
	v, err := c.resilientCall(ctx, "copy_rates_range", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().CopyRatesRange(ctx, &mt5gen.CopyRatesRangeRequest{Symbol: symbol, Timeframe: timeframe, DateFrom: dateFrom, DateTo: dateTo})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return numpy.DecodeRates(resp.Data, resp.Dtype, resp.Shape)
	})
	if err != nil {
		return nil, err
	}
	return v.([]numpy.Rate), nil
}

// CopyTicksFrom returns count ticks starting at dateFrom (unix seconds).
func (c *Client) CopyTicksFrom(ctx context.Context, symbol string, dateFrom int64, count, flags int32) ([]numpy.Tick, error) {
	v, err := c.resilientCall(ctx, "copy_ticks_from", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().CopyTicksFrom(ctx, &mt5gen.CopyTicksRequest{Symbol: symbol, DateFrom: dateFrom, Count: count, Flags: flags})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return numpy.DecodeTicks(resp.Data, resp.Dtype, resp.Shape)
	})
	if err != nil {
		return nil, err
	}
	return v.([]numpy.Tick), nil
}

// CopyTicksRange returns ticks within an inclusive date range.
func (c *Client) CopyTicksRange(ctx context.Context, symbol string, dateFrom, dateTo int64, flags int32) ([]numpy.Tick, error) {
	v, err := c.resilientCall(ctx, "copy_ticks_range", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().CopyTicksRange(ctx, &mt5gen.CopyTicksRangeRequest{Symbol: symbol, DateFrom: dateFrom, DateTo: dateTo, Flags: flags})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return numpy.DecodeTicks(resp.Data, resp.Dtype, resp.Shape)
	})
	if err != nil {
		return nil, err
	}
	return v.([]numpy.Tick), nil
}
