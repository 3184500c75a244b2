// Package mt5gen holds the wire messages and service client for the
// MT5Service gRPC API (spec.md §6). In a real build these would come out
// of protoc; here they are hand-authored in the shape protoc-gen-go would
// have produced, and travel over the wire through the json codec in
// codec.go rather than the protobuf wire format, since there is no .proto
// source to compile. The RPC surface and field names are otherwise exactly
// what §6 specifies.
package mt5gen

// Empty is sent where a call takes no arguments.
type Empty struct{}

// BoolResponse wraps a single boolean result.
type BoolResponse struct {
	Result bool `json:"result"`
}

// IntResponse wraps a single integer result.
type IntResponse struct {
	Value int64 `json:"value"`
}

// FloatResponse wraps an optional float result; HasValue distinguishes
// "zero" from "not returned" for calls like order_calc_profit that can
// legitimately fail without an error (e.g. unsupported symbol).
type FloatResponse struct {
	Value    float64 `json:"value"`
	HasValue bool    `json:"has_value"`
}

// ErrorInfo mirrors the terminal's last_error() result.
type ErrorInfo struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// MT5Version mirrors the terminal's version() result.
type MT5Version struct {
	Major int32  `json:"major"`
	Minor int32  `json:"minor"`
	Build string `json:"build"`
}

// Constants carries the terminal's named integer constant table.
type Constants struct {
	Values map[string]int64 `json:"values"`
}

// DictData carries a single JSON-serialized object (e.g. account_info()).
type DictData struct {
	JSONData string `json:"json_data"`
}

// DictList carries a list of JSON-serialized objects (e.g. positions_get()).
type DictList struct {
	JSONItems []string `json:"json_items"`
}

// NumpyArray carries a raw buffer plus enough metadata for pkg/numpy to
// reconstruct a typed array: a byte buffer, a dtype descriptor (either a
// simple name like "float64" or a structured dtype literal like
// "[('time','<i8'),('open','<f8')]"), and an optional shape.
type NumpyArray struct {
	Data  []byte  `json:"data"`
	Dtype string  `json:"dtype"`
	Shape []int32 `json:"shape,omitempty"`
}

// SymbolsResponse carries a symbol list chunked into several JSON arrays
// to stay under the per-message size limit; the caller concatenates them.
type SymbolsResponse struct {
	Total  int32    `json:"total"`
	Chunks []string `json:"chunks"`
}

// HealthStatus is the payload of the health_check RPC.
type HealthStatus struct {
	Healthy      bool   `json:"healthy"`
	MT5Available bool   `json:"mt5_available"`
	Connected    bool   `json:"connected"`
	TradeAllowed bool   `json:"trade_allowed"`
	Build        string `json:"build"`
	Reason       string `json:"reason"`
}

// InitRequest starts the terminal at an optional installation path.
type InitRequest struct {
	Path string `json:"path,omitempty"`
}

// LoginRequest authenticates against a trade account.
type LoginRequest struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

// SymbolRequest names a single symbol.
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// SymbolSelectRequest adds or removes a symbol from Market Watch.
type SymbolSelectRequest struct {
	Symbol string `json:"symbol"`
	Enable bool   `json:"enable"`
}

// CopyRatesRequest requests count bars of a timeframe starting at a date.
type CopyRatesRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe int32  `json:"timeframe"`
	DateFrom  int64  `json:"date_from"`
	Count     int32  `json:"count"`
}

// CopyRatesPosRequest requests count bars starting at a position offset
// from the current bar.
type CopyRatesPosRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe int32  `json:"timeframe"`
	Start     int32  `json:"start"`
	Count     int32  `json:"count"`
}

// CopyRatesRangeRequest requests bars within an inclusive date range.
type CopyRatesRangeRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe int32  `json:"timeframe"`
	DateFrom  int64  `json:"date_from"`
	DateTo    int64  `json:"date_to"`
}

// CopyTicksRequest requests count ticks starting at a date.
type CopyTicksRequest struct {
	Symbol   string `json:"symbol"`
	DateFrom int64  `json:"date_from"`
	Count    int32  `json:"count"`
	Flags    int32  `json:"flags"`
}

// CopyTicksRangeRequest requests ticks within an inclusive date range.
type CopyTicksRangeRequest struct {
	Symbol   string `json:"symbol"`
	DateFrom int64  `json:"date_from"`
	DateTo   int64  `json:"date_to"`
	Flags    int32  `json:"flags"`
}

// MarginRequest is the input to order_calc_margin.
type MarginRequest struct {
	ActionType int32   `json:"action_type"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
}

// ProfitRequest is the input to order_calc_profit.
type ProfitRequest struct {
	ActionType int32   `json:"action_type"`
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	PriceOpen  float64 `json:"price_open"`
	PriceClose float64 `json:"price_close"`
}

// OrderRequest carries an order_check/order_send payload as a single JSON
// blob; the terminal's MqlTradeRequest has too many optional fields to be
// worth modeling individually here.
type OrderRequest struct {
	JSONRequest string `json:"json_request"`
}

// PositionsRequest filters positions_get by symbol or ticket; both empty
// means "all positions".
type PositionsRequest struct {
	Symbol string `json:"symbol,omitempty"`
	Ticket int64  `json:"ticket,omitempty"`
}

// OrdersRequest filters orders_get the same way PositionsRequest does for
// positions.
type OrdersRequest struct {
	Symbol string `json:"symbol,omitempty"`
	Ticket int64  `json:"ticket,omitempty"`
}

// HistoryRequest filters history orders/deals by date range, ticket, or
// position id.
type HistoryRequest struct {
	DateFrom int64 `json:"date_from,omitempty"`
	DateTo   int64 `json:"date_to,omitempty"`
	Ticket   int64 `json:"ticket,omitempty"`
	Position int64 `json:"position,omitempty"`
}

// BookRequest names the symbol for market depth operations.
type BookRequest struct {
	Symbol string `json:"symbol"`
}
