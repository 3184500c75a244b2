package mt5

import (
	"context"
	"encoding/json"
	"fmt"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/classifier"
	"mt5bridge/pkg/mt5gen"
	"mt5bridge/pkg/txn"
)

// TradeRequest is the terminal's MqlTradeRequest, carried as a generic map
// since it has far more optional fields than are worth modeling
// individually (mirrors mt5gen.OrderRequest's own rationale).
type TradeRequest map[string]any

func (r TradeRequest) comment() string {
	v, _ := r["comment"].(string)
	return v
}

func (r TradeRequest) withComment(comment string) TradeRequest {
	out := make(TradeRequest, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out["comment"] = comment
	return out
}

// OrderCalcMargin computes the margin required to open a position.
func (c *Client) OrderCalcMargin(ctx context.Context, actionType int32, symbol string, volume, price float64) (float64, bool, error) {
	v, err := c.resilientCall(ctx, "order_calc_margin", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().OrderCalcMargin(ctx, &mt5gen.MarginRequest{ActionType: actionType, Symbol: symbol, Volume: volume, Price: price})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp, nil
	})
	if err != nil {
		return 0, false, err
	}
	resp := v.(*mt5gen.FloatResponse)
	return resp.Value, resp.HasValue, nil
}

// OrderCalcProfit computes the profit of a hypothetical closed position.
func (c *Client) OrderCalcProfit(ctx context.Context, actionType int32, symbol string, volume, priceOpen, priceClose float64) (float64, bool, error) {
	v, err := c.resilientCall(ctx, "order_calc_profit", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().OrderCalcProfit(ctx, &mt5gen.ProfitRequest{ActionType: actionType, Symbol: symbol, Volume: volume, PriceOpen: priceOpen, PriceClose: priceClose})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp, nil
	})
	if err != nil {
		return 0, false, err
	}
	resp := v.(*mt5gen.FloatResponse)
	return resp.Value, resp.HasValue, nil
}

// OrderCheck dry-runs a trade request against margin and market rules
// without sending it. It is Critical (per classifier's table) but, unlike
// OrderSend, has no side effects for the orchestrator to protect: it uses
// the generic resilient path.
func (c *Client) OrderCheck(ctx context.Context, request TradeRequest) (map[string]any, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("mt5: marshal order_check request: %w", err)
	}
	v, err := c.resilientCall(ctx, "order_check", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().OrderCheck(ctx, &mt5gen.OrderRequest{JSONRequest: string(body)})
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

// newOrderOrchestrator builds a fresh txn.Orchestrator for a single
// OrderSend/OrderSendAsync call. It must be built per-call: ExecuteGRPC
// closes over this specific request's fields, and the orchestrator itself
// is stateless beyond that closure.
func (c *Client) newOrderOrchestrator(request TradeRequest) (*txn.Orchestrator, error) {
	executeGRPC := func(ctx context.Context, requestID, markedComment string, attempt int) (*txn.Result, error) {
		body, err := json.Marshal(request.withComment(markedComment))
		if err != nil {
			return nil, fmt.Errorf("mt5: marshal order_send request: %w", err)
		}
		resp, err := c.rpc().OrderSend(ctx, &mt5gen.OrderRequest{JSONRequest: string(body)})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		if resp.JSONData == "" {
			return nil, nil // empty response: txn.Execute's step (d)
		}
		obj, err := decodeJSONObject(resp.JSONData)
		if err != nil {
			return nil, err
		}
		return &txn.Result{RequestID: requestID, Retcode: retcodeOf(obj), Raw: obj}, nil
	}

	var txnMetrics txn.Metrics
	if c.metrics != nil {
		txnMetrics = c.metrics
	}

	return txn.New(txn.Config{
		MaxAttempts: c.cfg.Retry.CriticalMaxAttempts,
		DelayFor:    c.cfg.Retry.CriticalDelayFor,
		CallTimeout: c.cfg.Conn.RPCTimeoutOrDefault(),
		Breaker:     c.breaker,
		WAL:         c.wal,
		Metrics:     txnMetrics,
		ExecuteGRPC: executeGRPC,
		VerifyState: c.verifyOrderState,
		HealthCheck: c.healthCheckBool,
	})
}

// resultToMap renders a txn.Result as the map callers of OrderSend expect,
// falling back to the bare retcode/request_id when the terminal's raw
// payload wasn't a decoded object (true of any result synthesized by
// verification rather than returned directly by order_send).
func resultToMap(r *txn.Result) map[string]any {
	if obj, ok := r.Raw.(map[string]any); ok {
		return obj
	}
	return map[string]any{"request_id": r.RequestID, "retcode": r.Retcode}
}

// OrderSend submits a trade request through the transaction orchestrator:
// spec.md §4.7. Like OrderSendAsync and OrderSendBatch, it bypasses
// resilientCall, since its retry/verify contract is materially different
// from every other RPC's.
func (c *Client) OrderSend(ctx context.Context, request TradeRequest) (map[string]any, error) {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("mt5: marshal order_send request: %w", err)
	}

	orch, err := c.newOrderOrchestrator(request)
	if err != nil {
		return nil, err
	}

	priority := classifier.Critical.Priority()
	v, err := c.queue.Submit(ctx, "order_send", priority, "", func(ctx context.Context) (any, error) {
		return orch.Execute(ctx, request.comment(), string(requestJSON))
	})
	if err != nil {
		return nil, err
	}
	return resultToMap(v.(*txn.Result)), nil
}

// OrderSendAsync fires a trade request on the queue and returns its
// request_id immediately, per spec.md §4.9; onComplete/onError run on the
// background goroutine once the orchestrator settles. The request_id
// returned here is reserved up front so it matches the one the WAL and the
// remote comment end up tagged with.
func (c *Client) OrderSendAsync(ctx context.Context, request TradeRequest, onComplete func(map[string]any), onError func(error)) (string, error) {
	requestID, err := txn.ReserveRequestID()
	if err != nil {
		return "", fmt.Errorf("mt5: reserve request id: %w", err)
	}

	requestJSON, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("mt5: marshal order_send request: %w", err)
	}

	orch, err := c.newOrderOrchestrator(request)
	if err != nil {
		return "", err
	}

	go func() {
		v, err := c.queue.Submit(ctx, "order_send", classifier.Critical.Priority(), "", func(ctx context.Context) (any, error) {
			return orch.ExecuteWithID(ctx, requestID, request.comment(), string(requestJSON))
		})
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onComplete != nil {
			onComplete(resultToMap(v.(*txn.Result)))
		}
	}()

	return requestID, nil
}

// BatchResult pairs a submitted order with its outcome for OrderSendBatch.
type BatchResult struct {
	RequestID string
	Result    map[string]any
	Err       error
}

// OrderSendBatch submits every request in parallel, each through its own
// orchestrator instance per spec.md §4.9. Per-order callbacks fire as each
// settles; onAllComplete fires once after every order has settled,
// regardless of individual outcome.
func (c *Client) OrderSendBatch(ctx context.Context, requests []TradeRequest, onEachComplete func(BatchResult), onEachError func(BatchResult), onAllComplete func([]BatchResult)) []BatchResult {
	results := make([]BatchResult, len(requests))
	done := make(chan struct{})

	for i, request := range requests {
		go func(i int, request TradeRequest) {
			defer func() {
				done <- struct{}{}
			}()

			requestJSON, err := json.Marshal(request)
			if err != nil {
				br := BatchResult{Err: fmt.Errorf("mt5: marshal order_send request: %w", err)}
				results[i] = br
				if onEachError != nil {
					onEachError(br)
				}
				return
			}

			orch, err := c.newOrderOrchestrator(request)
			if err != nil {
				br := BatchResult{Err: err}
				results[i] = br
				if onEachError != nil {
					onEachError(br)
				}
				return
			}

			v, err := c.queue.Submit(ctx, "order_send", classifier.Critical.Priority(), "", func(ctx context.Context) (any, error) {
				return orch.Execute(ctx, request.comment(), string(requestJSON))
			})
			if err != nil {
				br := BatchResult{Err: err}
				results[i] = br
				if onEachError != nil {
					onEachError(br)
				}
				return
			}

			result := v.(*txn.Result)
			br := BatchResult{RequestID: result.RequestID, Result: resultToMap(result)}
			results[i] = br
			if onEachComplete != nil {
				onEachComplete(br)
			}
		}(i, request)
	}

	for range requests {
		<-done
	}

	if onAllComplete != nil {
		onAllComplete(results)
	}
	return results
}
