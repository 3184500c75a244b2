package mt5

import (
	"context"
	"encoding/json"
	"time"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/idempotency"
	"mt5bridge/pkg/mt5gen"
	"mt5bridge/pkg/txn"
)

// commentOf reads the "comment" field a history deal/order record carries,
// tolerating its absence.
func commentOf(record map[string]any) string {
	if v, ok := record["comment"].(string); ok {
		return v
	}
	return ""
}

// retcodeOf reads a record's "retcode" field, defaulting to the DONE retcode
// when absent: a record found in history at all means the terminal executed
// something, even if it didn't echo a retcode back.
func retcodeOf(record map[string]any) int {
	if v, ok := record["retcode"].(float64); ok {
		return int(v)
	}
	return 10009 // DONE
}

// findByRequestID scans decoded history records for one whose comment was
// marked with requestID, per idempotency.Mark's format.
func findByRequestID(records []map[string]any, requestID string) map[string]any {
	for _, r := range records {
		if id, ok := idempotency.Extract(commentOf(r)); ok && id == requestID {
			return r
		}
	}
	return nil
}

// verifyOrderState implements txn.VerifyStateFunc: it searches deal and
// order history within the configured verification window for a record
// tagged with requestID. hint is not used — the search
// is identical whether triggered by an empty response, an ambiguous
// retcode, or post-crash recovery.
func (c *Client) verifyOrderState(ctx context.Context, requestID string, hint *txn.Result) (*txn.Result, error) {
	window := c.cfg.Txn.VerificationWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	now := time.Now()
	req := &mt5gen.HistoryRequest{
		DateFrom: now.Add(-window).Unix(),
		DateTo:   now.Unix(),
	}

	deals, err := c.rpc().HistoryDealsGet(ctx, req)
	if err != nil {
		return nil, apperror.FromGRPC(err)
	}
	dealRecords, err := decodeJSONList(deals.JSONItems)
	if err != nil {
		return nil, err
	}
	if record := findByRequestID(dealRecords, requestID); record != nil {
		return &txn.Result{RequestID: requestID, Retcode: retcodeOf(record), Raw: record}, nil
	}

	orders, err := c.rpc().HistoryOrdersGet(ctx, req)
	if err != nil {
		return nil, apperror.FromGRPC(err)
	}
	orderRecords, err := decodeJSONList(orders.JSONItems)
	if err != nil {
		return nil, err
	}
	if record := findByRequestID(orderRecords, requestID); record != nil {
		return &txn.Result{RequestID: requestID, Retcode: retcodeOf(record), Raw: record}, nil
	}

	return nil, nil
}

// recoverIncomplete reconciles every WAL entry left PENDING or SENT by a
// previous, uncleanly terminated process: spec.md §4.6's crash-recovery
// contract. Each entry is resolved against remote history rather than
// retried, since a PENDING/SENT entry may already have reached the
// terminal.
func (c *Client) recoverIncomplete(ctx context.Context) {
	entries, err := c.wal.GetIncomplete(ctx)
	if err != nil {
		return
	}

	for _, entry := range entries {
		result, err := c.verifyOrderState(ctx, entry.RequestID, nil)
		if err != nil || result == nil {
			c.wal.MarkFailed(ctx, entry.RequestID, "unrecoverable: no matching history record found within verification window")
			if c.metrics != nil {
				c.metrics.RecordWALEntry("failed")
			}
			continue
		}

		resultJSON := marshalRecoveredResult(result)
		c.wal.MarkRecovered(ctx, entry.RequestID, &resultJSON)
		if c.metrics != nil {
			c.metrics.WALRecoveredTotal.Inc()
			c.metrics.RecordWALEntry("recovered")
		}
	}
}

// marshalRecoveredResult re-serializes a verified result's raw record for
// WAL storage, best-effort: a marshal failure just loses the result detail,
// not the RECOVERED status itself.
func marshalRecoveredResult(r *txn.Result) string {
	b, err := json.Marshal(r.Raw)
	if err != nil {
		return ""
	}
	return string(b)
}
