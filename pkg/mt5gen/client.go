package mt5gen

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "/mt5.MT5Service/"

// CallOption lets the façade attach per-call options (deadlines are set by
// the caller via context; this is for things like the json content
// subtype, kept out of this package's own defaults so callers stay in
// control of them).
type CallOption = grpc.CallOption

// MT5ServiceClient is the typed surface of the ~36 MT5Service RPCs
// (spec.md §6). The façade in pkg/mt5 depends on this interface, never on
// *grpc.ClientConn directly, so it can be exercised with a fake in tests.
type MT5ServiceClient interface {
	// terminal
	Initialize(ctx context.Context, in *InitRequest, opts ...CallOption) (*BoolResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...CallOption) (*BoolResponse, error)
	Shutdown(ctx context.Context, in *Empty, opts ...CallOption) (*Empty, error)
	Version(ctx context.Context, in *Empty, opts ...CallOption) (*MT5Version, error)
	LastError(ctx context.Context, in *Empty, opts ...CallOption) (*ErrorInfo, error)
	TerminalInfo(ctx context.Context, in *Empty, opts ...CallOption) (*DictData, error)
	AccountInfo(ctx context.Context, in *Empty, opts ...CallOption) (*DictData, error)
	HealthCheck(ctx context.Context, in *Empty, opts ...CallOption) (*HealthStatus, error)
	GetConstants(ctx context.Context, in *Empty, opts ...CallOption) (*Constants, error)

	// symbols
	SymbolsTotal(ctx context.Context, in *Empty, opts ...CallOption) (*IntResponse, error)
	SymbolsGet(ctx context.Context, in *SymbolRequest, opts ...CallOption) (*SymbolsResponse, error)
	SymbolInfo(ctx context.Context, in *SymbolRequest, opts ...CallOption) (*DictData, error)
	SymbolInfoTick(ctx context.Context, in *SymbolRequest, opts ...CallOption) (*DictData, error)
	SymbolSelect(ctx context.Context, in *SymbolSelectRequest, opts ...CallOption) (*BoolResponse, error)

	// market data
	CopyRatesFrom(ctx context.Context, in *CopyRatesRequest, opts ...CallOption) (*NumpyArray, error)
	CopyRatesFromPos(ctx context.Context, in *CopyRatesPosRequest, opts ...CallOption) (*NumpyArray, error)
	CopyRatesRange(ctx context.Context, in *CopyRatesRangeRequest, opts ...CallOption) (*NumpyArray, error)
	CopyTicksFrom(ctx context.Context, in *CopyTicksRequest, opts ...CallOption) (*NumpyArray, error)
	CopyTicksRange(ctx context.Context, in *CopyTicksRangeRequest, opts ...CallOption) (*NumpyArray, error)

	// trading
	OrderCalcMargin(ctx context.Context, in *MarginRequest, opts ...CallOption) (*FloatResponse, error)
	OrderCalcProfit(ctx context.Context, in *ProfitRequest, opts ...CallOption) (*FloatResponse, error)
	OrderCheck(ctx context.Context, in *OrderRequest, opts ...CallOption) (*DictData, error)
	OrderSend(ctx context.Context, in *OrderRequest, opts ...CallOption) (*DictData, error)

	// positions
	PositionsTotal(ctx context.Context, in *Empty, opts ...CallOption) (*IntResponse, error)
	PositionsGet(ctx context.Context, in *PositionsRequest, opts ...CallOption) (*DictList, error)

	// orders
	OrdersTotal(ctx context.Context, in *Empty, opts ...CallOption) (*IntResponse, error)
	OrdersGet(ctx context.Context, in *OrdersRequest, opts ...CallOption) (*DictList, error)

	// history
	HistoryOrdersTotal(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*IntResponse, error)
	HistoryOrdersGet(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*DictList, error)
	HistoryDealsTotal(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*IntResponse, error)
	HistoryDealsGet(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*DictList, error)

	// market depth
	MarketBookAdd(ctx context.Context, in *BookRequest, opts ...CallOption) (*BoolResponse, error)
	MarketBookGet(ctx context.Context, in *BookRequest, opts ...CallOption) (*DictList, error)
	MarketBookRelease(ctx context.Context, in *BookRequest, opts ...CallOption) (*BoolResponse, error)
}

// client is the grpc.ClientConnInterface-backed implementation. Every
// method is the same one-line pattern protoc-gen-go-grpc would emit.
type client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a dialed connection (from pkg/connection) as a typed
// MT5ServiceClient.
func NewClient(cc grpc.ClientConnInterface) MT5ServiceClient {
	return &client{cc: cc}
}

func (c *client) Initialize(ctx context.Context, in *InitRequest, opts ...CallOption) (*BoolResponse, error) {
	out := new(BoolResponse)
	if err := c.cc.Invoke(ctx, serviceName+"Initialize", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) Login(ctx context.Context, in *LoginRequest, opts ...CallOption) (*BoolResponse, error) {
	out := new(BoolResponse)
	if err := c.cc.Invoke(ctx, serviceName+"Login", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) Shutdown(ctx context.Context, in *Empty, opts ...CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, serviceName+"Shutdown", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) Version(ctx context.Context, in *Empty, opts ...CallOption) (*MT5Version, error) {
	out := new(MT5Version)
	if err := c.cc.Invoke(ctx, serviceName+"Version", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) LastError(ctx context.Context, in *Empty, opts ...CallOption) (*ErrorInfo, error) {
	out := new(ErrorInfo)
	if err := c.cc.Invoke(ctx, serviceName+"LastError", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) TerminalInfo(ctx context.Context, in *Empty, opts ...CallOption) (*DictData, error) {
	out := new(DictData)
	if err := c.cc.Invoke(ctx, serviceName+"TerminalInfo", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) AccountInfo(ctx context.Context, in *Empty, opts ...CallOption) (*DictData, error) {
	out := new(DictData)
	if err := c.cc.Invoke(ctx, serviceName+"AccountInfo", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) HealthCheck(ctx context.Context, in *Empty, opts ...CallOption) (*HealthStatus, error) {
	out := new(HealthStatus)
	if err := c.cc.Invoke(ctx, serviceName+"HealthCheck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) GetConstants(ctx context.Context, in *Empty, opts ...CallOption) (*Constants, error) {
	out := new(Constants)
	if err := c.cc.Invoke(ctx, serviceName+"GetConstants", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SymbolsTotal(ctx context.Context, in *Empty, opts ...CallOption) (*IntResponse, error) {
	out := new(IntResponse)
	if err := c.cc.Invoke(ctx, serviceName+"SymbolsTotal", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SymbolsGet(ctx context.Context, in *SymbolRequest, opts ...CallOption) (*SymbolsResponse, error) {
	out := new(SymbolsResponse)
	if err := c.cc.Invoke(ctx, serviceName+"SymbolsGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SymbolInfo(ctx context.Context, in *SymbolRequest, opts ...CallOption) (*DictData, error) {
	out := new(DictData)
	if err := c.cc.Invoke(ctx, serviceName+"SymbolInfo", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SymbolInfoTick(ctx context.Context, in *SymbolRequest, opts ...CallOption) (*DictData, error) {
	out := new(DictData)
	if err := c.cc.Invoke(ctx, serviceName+"SymbolInfoTick", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SymbolSelect(ctx context.Context, in *SymbolSelectRequest, opts ...CallOption) (*BoolResponse, error) {
	out := new(BoolResponse)
	if err := c.cc.Invoke(ctx, serviceName+"SymbolSelect", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CopyRatesFrom(ctx context.Context, in *CopyRatesRequest, opts ...CallOption) (*NumpyArray, error) {
	out := new(NumpyArray)
	if err := c.cc.Invoke(ctx, serviceName+"CopyRatesFrom", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CopyRatesFromPos(ctx context.Context, in *CopyRatesPosRequest, opts ...CallOption) (*NumpyArray, error) {
	out := new(NumpyArray)
	if err := c.cc.Invoke(ctx, serviceName+"CopyRatesFromPos", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CopyRatesRange(ctx context.Context, in *CopyRatesRangeRequest, opts ...CallOption) (*NumpyArray, error) {
	out := new(NumpyArray)
	if err := c.cc.Invoke(ctx, serviceName+"CopyRatesRange", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CopyTicksFrom(ctx context.Context, in *CopyTicksRequest, opts ...CallOption) (*NumpyArray, error) {
	out := new(NumpyArray)
	if err := c.cc.Invoke(ctx, serviceName+"CopyTicksFrom", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CopyTicksRange(ctx context.Context, in *CopyTicksRangeRequest, opts ...CallOption) (*NumpyArray, error) {
	out := new(NumpyArray)
	if err := c.cc.Invoke(ctx, serviceName+"CopyTicksRange", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) OrderCalcMargin(ctx context.Context, in *MarginRequest, opts ...CallOption) (*FloatResponse, error) {
	out := new(FloatResponse)
	if err := c.cc.Invoke(ctx, serviceName+"OrderCalcMargin", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) OrderCalcProfit(ctx context.Context, in *ProfitRequest, opts ...CallOption) (*FloatResponse, error) {
	out := new(FloatResponse)
	if err := c.cc.Invoke(ctx, serviceName+"OrderCalcProfit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) OrderCheck(ctx context.Context, in *OrderRequest, opts ...CallOption) (*DictData, error) {
	out := new(DictData)
	if err := c.cc.Invoke(ctx, serviceName+"OrderCheck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) OrderSend(ctx context.Context, in *OrderRequest, opts ...CallOption) (*DictData, error) {
	out := new(DictData)
	if err := c.cc.Invoke(ctx, serviceName+"OrderSend", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) PositionsTotal(ctx context.Context, in *Empty, opts ...CallOption) (*IntResponse, error) {
	out := new(IntResponse)
	if err := c.cc.Invoke(ctx, serviceName+"PositionsTotal", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) PositionsGet(ctx context.Context, in *PositionsRequest, opts ...CallOption) (*DictList, error) {
	out := new(DictList)
	if err := c.cc.Invoke(ctx, serviceName+"PositionsGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) OrdersTotal(ctx context.Context, in *Empty, opts ...CallOption) (*IntResponse, error) {
	out := new(IntResponse)
	if err := c.cc.Invoke(ctx, serviceName+"OrdersTotal", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) OrdersGet(ctx context.Context, in *OrdersRequest, opts ...CallOption) (*DictList, error) {
	out := new(DictList)
	if err := c.cc.Invoke(ctx, serviceName+"OrdersGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) HistoryOrdersTotal(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*IntResponse, error) {
	out := new(IntResponse)
	if err := c.cc.Invoke(ctx, serviceName+"HistoryOrdersTotal", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) HistoryOrdersGet(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*DictList, error) {
	out := new(DictList)
	if err := c.cc.Invoke(ctx, serviceName+"HistoryOrdersGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) HistoryDealsTotal(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*IntResponse, error) {
	out := new(IntResponse)
	if err := c.cc.Invoke(ctx, serviceName+"HistoryDealsTotal", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) HistoryDealsGet(ctx context.Context, in *HistoryRequest, opts ...CallOption) (*DictList, error) {
	out := new(DictList)
	if err := c.cc.Invoke(ctx, serviceName+"HistoryDealsGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) MarketBookAdd(ctx context.Context, in *BookRequest, opts ...CallOption) (*BoolResponse, error) {
	out := new(BoolResponse)
	if err := c.cc.Invoke(ctx, serviceName+"MarketBookAdd", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) MarketBookGet(ctx context.Context, in *BookRequest, opts ...CallOption) (*DictList, error) {
	out := new(DictList)
	if err := c.cc.Invoke(ctx, serviceName+"MarketBookGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) MarketBookRelease(ctx context.Context, in *BookRequest, opts ...CallOption) (*BoolResponse, error) {
	out := new(BoolResponse)
	if err := c.cc.Invoke(ctx, serviceName+"MarketBookRelease", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
