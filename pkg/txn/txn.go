// Package txn implements the transaction orchestrator for critical order
// submission: spec.md §4.7, "the hardest part". Execute is pure
// orchestration logic — the gRPC call, remote verification, and liveness
// probe are all injected, so this package never touches the network
// directly and can be tested without a terminal.
package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/breaker"
	"mt5bridge/pkg/classifier"
	"mt5bridge/pkg/idempotency"
	"mt5bridge/pkg/retry"
	"mt5bridge/pkg/wal"
)

// Result is the outcome of a single attempt at executing an order, or of
// verifying one against remote history.
type Result struct {
	RequestID string
	Retcode   int
	Raw       any // decoded order/deal payload
}

// ExecuteGRPCFunc performs one remote order_send attempt. A nil result
// with a nil error signals an empty response from the terminal — distinct
// from an error, which signals a transport or protocol failure.
type ExecuteGRPCFunc func(ctx context.Context, requestID, markedComment string, attempt int) (*Result, error)

// VerifyStateFunc looks for an executed order/deal tagged with requestID
// in remote history. hint carries the ambiguous result that triggered
// verification, if any (nil for the empty-response case). A nil result
// with a nil error means no matching order was found.
type VerifyStateFunc func(ctx context.Context, requestID string, hint *Result) (*Result, error)

// HealthCheckFunc performs a quick remote liveness probe.
type HealthCheckFunc func(ctx context.Context) bool

// Metrics is the minimal surface the orchestrator needs from pkg/metrics.
// Kept as a small interface, not the concrete Prometheus type, so this
// package stays importable and testable without pulling in Prometheus.
type Metrics interface {
	RecordOrderOutcome(outcome string)
	RecordVerifyCall(found bool)
}

// Config wires the orchestrator's dependencies and tuning knobs. Breaker,
// WAL, and Metrics are optional: a nil Breaker always admits, a nil WAL
// makes every WAL call a no-op, and a nil Metrics makes every metrics call
// a no-op. CallTimeout bounds a single ExecuteGRPC attempt (spec.md §5);
// it defaults to 30s when unset.
type Config struct {
	MaxAttempts int
	DelayFor    func(attempt int) time.Duration
	CallTimeout time.Duration
	Breaker     *breaker.Breaker
	WAL         *wal.WAL
	Metrics     Metrics
	ExecuteGRPC ExecuteGRPCFunc
	VerifyState VerifyStateFunc
	HealthCheck HealthCheckFunc
}

// Orchestrator executes order_send with idempotency marking, ambiguous
// result verification, and retry-safe recovery, so an order is never
// silently duplicated or lost.
type Orchestrator struct {
	cfg Config
}

// New creates an Orchestrator from cfg. MaxAttempts must be >= 1.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("txn: max_attempts must be >= 1")
	}
	if cfg.ExecuteGRPC == nil || cfg.VerifyState == nil || cfg.HealthCheck == nil {
		return nil, fmt.Errorf("txn: ExecuteGRPC, VerifyState, and HealthCheck are required")
	}
	return &Orchestrator{cfg: cfg}, nil
}

func (o *Orchestrator) canAdmit() bool {
	if o.cfg.Breaker == nil {
		return true
	}
	return o.cfg.Breaker.CanAdmit()
}

func (o *Orchestrator) recordSuccess() {
	if o.cfg.Breaker != nil {
		o.cfg.Breaker.RecordSuccess()
	}
}

func (o *Orchestrator) callTimeout() time.Duration {
	if o.cfg.CallTimeout <= 0 {
		return 30 * time.Second
	}
	return o.cfg.CallTimeout
}

func (o *Orchestrator) recordFailure() {
	if o.cfg.Breaker != nil {
		o.cfg.Breaker.RecordFailure()
	}
}

func (o *Orchestrator) recordOutcome(outcome classifier.TransactionOutcome) {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordOrderOutcome(strings.ToLower(outcome.String()))
	}
}

func (o *Orchestrator) recordVerify(found bool) {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordVerifyCall(found)
	}
}

func marshalResult(r *Result) string {
	if r == nil {
		return ""
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"request_id":%q,"retcode":%d}`, r.RequestID, r.Retcode)
	}
	return string(b)
}

// Execute runs the full order-submission contract of spec.md §4.7, generating
// a fresh request_id. Step numbers in comments below match the spec's
// numbered list.
func (o *Orchestrator) Execute(ctx context.Context, originalComment, requestJSON string) (*Result, error) {
	return o.execute(ctx, "", originalComment, requestJSON)
}

// ReserveRequestID generates a request_id using the same generator Execute
// uses internally. order_send_async needs the id before the orchestrator
// runs, to return it to the caller immediately per spec.md §4.9.
func ReserveRequestID() (string, error) {
	return idempotency.NewKey()
}

// ExecuteWithID runs the same contract as Execute but under a caller-supplied
// request_id (from a prior ReserveRequestID call) instead of generating a
// fresh one, so an async caller's returned request_id matches the one the
// WAL and remote comment are tagged with.
func (o *Orchestrator) ExecuteWithID(ctx context.Context, requestID, originalComment, requestJSON string) (*Result, error) {
	if requestID == "" {
		return nil, fmt.Errorf("txn: ExecuteWithID requires a non-empty request id")
	}
	return o.execute(ctx, requestID, originalComment, requestJSON)
}

func (o *Orchestrator) execute(ctx context.Context, requestID, originalComment, requestJSON string) (*Result, error) {
	// 2. Prepare request: fresh (or reserved) request_id, mark the comment field.
	if requestID == "" {
		var err error
		requestID, err = idempotency.NewKey()
		if err != nil {
			return nil, fmt.Errorf("txn: generate request id: %w", err)
		}
	}
	markedComment := idempotency.Mark(originalComment, requestID)

	// 3. WAL.log_intent.
	if err := o.cfg.WAL.LogIntent(ctx, requestID, requestJSON); err != nil {
		return nil, fmt.Errorf("txn: log_intent: %w", err)
	}

	var lastResult *Result

	for attempt := 0; attempt < o.cfg.MaxAttempts; attempt++ {
		// a. Breaker gate.
		if !o.canAdmit() {
			o.recordFailure()
			o.recordOutcome(classifier.OutcomePermanentFailure)
			o.cfg.WAL.MarkFailed(ctx, requestID, "circuit breaker open")
			return nil, apperror.New(apperror.CodeCircuitOpen, "circuit breaker refused admission").WithDetails("request_id", requestID)
		}

		// b. WAL.mark_sent.
		if err := o.cfg.WAL.MarkSent(ctx, requestID); err != nil {
			return nil, fmt.Errorf("txn: mark_sent: %w", err)
		}

		// c. execute_grpc, bounded by CallTimeout (spec.md §5).
		result, callErr := retry.ExecuteWithTimeoutAndCancel(ctx, o.callTimeout(), "order_send",
			func(ctx context.Context) (*Result, error) {
				return o.cfg.ExecuteGRPC(ctx, requestID, markedComment, attempt)
			})

		if callErr != nil {
			outcome, handled := o.handleCallError(ctx, requestID, attempt, callErr)
			if handled {
				return outcome.result, outcome.err
			}
			if outcome.shouldRetry {
				o.sleepBeforeRetry(ctx, attempt)
				continue
			}
			return nil, outcome.err
		}

		// d. Empty response.
		if result == nil {
			verified, verifyErr := o.cfg.VerifyState(ctx, requestID, nil)
			o.recordVerify(verifyErr == nil && verified != nil)
			if verifyErr == nil && verified != nil {
				o.recordSuccess()
				o.recordOutcome(classifier.OutcomeSuccess)
				o.cfg.WAL.MarkVerified(ctx, requestID, marshalResult(verified))
				return verified, nil
			}
			if !o.cfg.HealthCheck(ctx) {
				o.recordFailure()
				o.recordOutcome(classifier.OutcomePermanentFailure)
				o.cfg.WAL.MarkFailed(ctx, requestID, "empty response and terminal unreachable")
				return nil, apperror.New(apperror.CodePermanentOrder, "empty response from unreachable terminal; unsafe to retry").WithDetails("request_id", requestID)
			}
			o.recordFailure()
			o.sleepBeforeRetry(ctx, attempt)
			continue
		}

		lastResult = result

		// e/f/g/h/i. Classify and map to outcome.
		classification := classifier.ClassifyRetcode(result.Retcode)
		outcome := classification.ToOutcome()
		switch outcome {
		case classifier.OutcomeSuccess, classifier.OutcomePartial:
			o.recordSuccess()
			o.recordOutcome(outcome)
			o.cfg.WAL.MarkVerified(ctx, requestID, marshalResult(result))
			return result, nil

		case classifier.OutcomePermanentFailure:
			o.recordFailure()
			o.recordOutcome(outcome)
			o.cfg.WAL.MarkFailed(ctx, requestID, fmt.Sprintf("permanent retcode %d", result.Retcode))
			return nil, apperror.New(apperror.CodePermanentOrder, fmt.Sprintf("order rejected with permanent retcode %d", result.Retcode)).WithDetails("request_id", requestID)

		case classifier.OutcomeVerifyRequired:
			verified, verifyErr := o.cfg.VerifyState(ctx, requestID, result)
			o.recordVerify(verifyErr == nil && verified != nil)
			if verifyErr == nil && verified != nil {
				o.recordSuccess()
				o.recordOutcome(classifier.OutcomeSuccess)
				o.cfg.WAL.MarkVerified(ctx, requestID, marshalResult(verified))
				return verified, nil
			}
			o.recordFailure()
			o.recordOutcome(classifier.OutcomePermanentFailure)
			o.cfg.WAL.MarkFailed(ctx, requestID, "verification failed")
			return nil, apperror.New(apperror.CodePermanentOrder, "verification failed").WithDetails("request_id", requestID)

		case classifier.OutcomeRetry:
			o.recordFailure()
			o.sleepBeforeRetry(ctx, attempt)
			continue
		}
	}

	// 5. Attempt budget exhausted.
	o.recordOutcome(classifier.OutcomePermanentFailure)
	if lastResult != nil {
		o.cfg.WAL.MarkFailed(ctx, requestID, fmt.Sprintf("max retries exceeded, last retcode %d", lastResult.Retcode))
		return nil, apperror.New(apperror.CodePermanentOrder, fmt.Sprintf("max retries exceeded, last retcode %d", lastResult.Retcode)).WithDetails("request_id", requestID)
	}
	o.cfg.WAL.MarkFailed(ctx, requestID, "max retries exceeded")
	return nil, apperror.New(apperror.CodeMaxRetries, "max retry attempts exceeded").WithDetails("request_id", requestID)
}

func (o *Orchestrator) sleepBeforeRetry(ctx context.Context, attempt int) {
	var delay time.Duration
	if o.cfg.DelayFor != nil {
		delay = o.cfg.DelayFor(attempt)
	}
	if delay <= 0 {
		return
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

type callErrorOutcome struct {
	result      *Result
	err         error
	shouldRetry bool
}

// handleCallError implements the "exception handling around the gRPC
// call" contract of spec.md §4.7. The second return is true when Execute
// should return outcome.result/outcome.err immediately; false means the
// caller decides between retrying (outcome.shouldRetry) and returning
// outcome.err as-is.
func (o *Orchestrator) handleCallError(ctx context.Context, requestID string, attempt int, callErr error) (callErrorOutcome, bool) {
	if apperror.Is(callErr, apperror.CodePermanentOrder) {
		o.recordOutcome(classifier.OutcomePermanentFailure)
		return callErrorOutcome{err: callErr}, true
	}

	if !classifier.IsRetryableException(callErr) {
		o.recordFailure()
		o.recordOutcome(classifier.OutcomePermanentFailure)
		o.cfg.WAL.MarkFailed(ctx, requestID, callErr.Error())
		return callErrorOutcome{err: callErr}, true
	}

	o.recordFailure()

	if !o.cfg.HealthCheck(ctx) {
		// Health is down: a retry here may duplicate an order that
		// actually went through. Try one last verification before giving
		// up.
		verified, verifyErr := o.cfg.VerifyState(ctx, requestID, nil)
		o.recordVerify(verifyErr == nil && verified != nil)
		if verifyErr == nil && verified != nil {
			o.recordSuccess()
			o.recordOutcome(classifier.OutcomeSuccess)
			o.cfg.WAL.MarkVerified(ctx, requestID, marshalResult(verified))
			return callErrorOutcome{result: verified}, true
		}
		o.recordOutcome(classifier.OutcomePermanentFailure)
		o.cfg.WAL.MarkFailed(ctx, requestID, "unhealthy after call error, verification failed")
		return callErrorOutcome{err: apperror.New(apperror.CodePermanentOrder, "terminal unhealthy after call error; unsafe to retry").WithDetails("request_id", requestID)}, true
	}

	return callErrorOutcome{shouldRetry: true}, false
}
