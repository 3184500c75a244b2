// Package classifier implements the pure error classification functions of
// the resilience layer: given a transport status, a terminal retcode, or an
// operation name, decide what the rest of the system should do about it.
// Nothing here touches the network, a clock, or a lock — every function is
// a deterministic lookup over a small set of closed tables.
package classifier

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/retry"
)

// ErrorClassification is the internal, fine-grained result of classifying a
// terminal retcode.
type ErrorClassification int

const (
	Success ErrorClassification = iota
	Partial
	Retryable
	VerifyRequired
	Conditional
	Permanent
	Unknown
)

func (c ErrorClassification) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Partial:
		return "PARTIAL"
	case Retryable:
		return "RETRYABLE"
	case VerifyRequired:
		return "VERIFY_REQUIRED"
	case Conditional:
		return "CONDITIONAL"
	case Permanent:
		return "PERMANENT"
	default:
		return "UNKNOWN"
	}
}

// TransactionOutcome is the simplified, public-facing result the
// orchestrator and façade report to callers.
type TransactionOutcome int

const (
	OutcomeSuccess TransactionOutcome = iota
	OutcomePartial
	OutcomeRetry
	OutcomeVerifyRequired
	OutcomePermanentFailure
)

func (o TransactionOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomePartial:
		return "PARTIAL"
	case OutcomeRetry:
		return "RETRY"
	case OutcomeVerifyRequired:
		return "VERIFY_REQUIRED"
	case OutcomePermanentFailure:
		return "PERMANENT_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// ToOutcome maps a fine-grained classification to the public outcome per
// spec.md §4.7: CONDITIONAL and UNKNOWN are conservatively mapped to
// VERIFY_REQUIRED, never to RETRY or PERMANENT_FAILURE, since the order may
// already have executed.
func (c ErrorClassification) ToOutcome() TransactionOutcome {
	switch c {
	case Success:
		return OutcomeSuccess
	case Partial:
		return OutcomePartial
	case Retryable:
		return OutcomeRetry
	case VerifyRequired, Conditional, Unknown:
		return OutcomeVerifyRequired
	case Permanent:
		return OutcomePermanentFailure
	default:
		return OutcomeVerifyRequired
	}
}

// OperationCriticality ranks how carefully an operation's failures must be
// handled. Higher values get more retry budget and trigger verification.
type OperationCriticality int

const (
	Low OperationCriticality = iota
	Normal
	High
	Critical
)

func (c OperationCriticality) String() string {
	switch c {
	case Low:
		return "LOW"
	case Normal:
		return "NORMAL"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// Priority maps criticality to the queue's priority band: CRITICAL is
// priority 0 (highest), LOW is priority 3 (lowest).
func (c OperationCriticality) Priority() int {
	switch c {
	case Critical:
		return 0
	case High:
		return 1
	case Normal:
		return 2
	default:
		return 3
	}
}

// transportRetryable holds the gRPC status codes considered safe to retry
// at the transport level. Any other status is permanent.
var transportRetryable = map[codes.Code]bool{
	codes.Unavailable:       true,
	codes.DeadlineExceeded:  true,
	codes.Aborted:           true,
	codes.ResourceExhausted: true,
}

// IsRetryableTransport reports whether a gRPC status code is safe to retry
// purely at the transport level.
func IsRetryableTransport(code codes.Code) bool {
	return transportRetryable[code]
}

// Terminal retcodes, grouped into pairwise-disjoint sets whose union covers
// every known code. See spec.md §4.2 for the authoritative enumeration.
var (
	successSet = map[int]bool{
		10008: true, // PLACED
		10009: true, // DONE
	}
	partialSet = map[int]bool{
		10010: true, // DONE_PARTIAL
	}
	verifyRequiredSet = map[int]bool{
		10012: true, // TIMEOUT
		10031: true, // CONNECTION
	}
	retryableSet = map[int]bool{
		10004: true, // REQUOTE
		10020: true, // PRICE_CHANGED
		10021: true, // PRICE_OFF
		10024: true, // TOO_MANY_REQUESTS
	}
	conditionalSet = map[int]bool{
		10007: true, // CANCEL
		10018: true, // MARKET_CLOSED
		10023: true, // ORDER_CHANGED
		10025: true, // NO_CHANGES
	}
	permanentSet = map[int]bool{
		10006: true, 10011: true, 10013: true, 10014: true, 10015: true,
		10016: true, 10017: true, 10019: true, 10022: true,
		10026: true, 10027: true, 10028: true, 10029: true, 10030: true,
		10032: true, 10033: true, 10034: true, 10035: true, 10036: true,
		10037: true, 10038: true, 10039: true, 10040: true, 10041: true,
		10042: true, 10043: true, 10044: true, 10045: true,
	}
)

// ClassifyRetcode maps a terminal result code to its ErrorClassification.
// Codes in none of the known sets classify as Unknown.
func ClassifyRetcode(retcode int) ErrorClassification {
	switch {
	case successSet[retcode]:
		return Success
	case partialSet[retcode]:
		return Partial
	case verifyRequiredSet[retcode]:
		return VerifyRequired
	case retryableSet[retcode]:
		return Retryable
	case conditionalSet[retcode]:
		return Conditional
	case permanentSet[retcode]:
		return Permanent
	default:
		return Unknown
	}
}

// operationCriticality is the OPERATION_CRITICALITY table of spec.md §4.2.
// Unlisted operations default to Normal.
var operationCriticality = map[string]OperationCriticality{
	"order_send":  Critical,
	"order_check": Critical,

	"positions_get": High,
	"account_info":  High,
	"orders_get":    High,

	"symbol_info":     Normal,
	"copy_rates_from": Normal,

	"symbols_total": Low,
	"version":       Low,
}

// OperationCriticalityOf returns the criticality of op, defaulting to
// Normal for operations not in the table.
func OperationCriticalityOf(op string) OperationCriticality {
	if c, ok := operationCriticality[op]; ok {
		return c
	}
	return Normal
}

// retryableCodes holds the apperror.ErrorCode values that are always safe
// to retry, independent of the transport/terminal retcode tables.
var retryableCodes = map[apperror.ErrorCode]bool{
	apperror.CodeRetryableTerminal: true,
	apperror.CodeRetryableOrder:    true,
}

// IsRetryableException reports whether an arbitrary error returned by a
// call is safe to retry. True for errors self-identifying as retryable via
// apperror, for a per-call timeout (retry.ErrTimedOut), or for a raw gRPC
// status using a retryable transport code; false for programmer errors
// such as "not connected", which must never be silently retried.
func IsRetryableException(err error) bool {
	if err == nil {
		return false
	}
	if retryableCodes[apperror.Code(err)] {
		return true
	}
	var timedOut *retry.ErrTimedOut
	if errors.As(err, &timedOut) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		return IsRetryableTransport(st.Code())
	}
	return false
}

// ShouldVerifyState reports whether an ambiguous result for op must be
// verified against remote history before any retry decision is made.
// Per spec.md §4.2: CRITICAL operations whose classification is
// CONDITIONAL, UNKNOWN, or VERIFY_REQUIRED must be verified, never
// blindly retried.
func ShouldVerifyState(op string, classification ErrorClassification) bool {
	if OperationCriticalityOf(op) != Critical {
		return false
	}
	switch classification {
	case Conditional, Unknown, VerifyRequired:
		return true
	default:
		return false
	}
}
