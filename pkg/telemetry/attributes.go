package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys for bridge spans.
const (
	AttrOperation    = "mt5.operation"
	AttrRequestID    = "mt5.request_id"
	AttrPriority     = "mt5.priority"
	AttrCoalesceKey  = "mt5.coalesce_key"
	AttrAttempt      = "mt5.attempt"
	AttrRetcode      = "mt5.retcode"
	AttrCriticality  = "mt5.criticality"
	AttrDisposition  = "mt5.disposition"
	AttrBreakerState = "mt5.breaker_state"
	AttrVerified     = "mt5.verified"
)

// OperationAttributes describes the façade call a span covers.
func OperationAttributes(operation, requestID string, priority int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrOperation, operation),
		attribute.String(AttrRequestID, requestID),
		attribute.Int(AttrPriority, priority),
	}
}

// RetryAttributes describes a single retry-loop attempt.
func RetryAttributes(attempt int, criticality string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrAttempt, attempt),
		attribute.String(AttrCriticality, criticality),
	}
}

// ClassificationAttributes describes the outcome of the error classifier.
func ClassificationAttributes(retcode int, disposition string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRetcode, retcode),
		attribute.String(AttrDisposition, disposition),
	}
}

// VerificationAttributes describes a state-verification call following an
// ambiguous order result.
func VerificationAttributes(requestID string, verified bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRequestID, requestID),
		attribute.Bool(AttrVerified, verified),
	}
}
