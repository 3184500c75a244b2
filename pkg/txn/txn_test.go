package txn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/breaker"
)

func noDelay(int) time.Duration { return time.Millisecond }

func alwaysHealthy(context.Context) bool { return true }

func noMatch(context.Context, string, *Result) (*Result, error) { return nil, nil }

func baseConfig() Config {
	return Config{
		MaxAttempts: 5,
		DelayFor:    noDelay,
		HealthCheck: alwaysHealthy,
		VerifyState: noMatch,
	}
}

// TestHappyPathSucceedsOnFirstAttempt is scenario S1.
func TestHappyPathSucceedsOnFirstAttempt(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return &Result{RequestID: requestID, Retcode: 10009}, nil
	}

	orch, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	result, err := orch.Execute(context.Background(), "buy", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Retcode != 10009 {
		t.Errorf("retcode = %d, want 10009", result.Retcode)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryableRetcodeRetriesThenSucceeds(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		if calls == 1 {
			return &Result{RequestID: requestID, Retcode: 10004}, nil // REQUOTE, retryable
		}
		return &Result{RequestID: requestID, Retcode: 10008}, nil
	}

	orch, _ := New(cfg)
	result, err := orch.Execute(context.Background(), "buy", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Retcode != 10008 {
		t.Errorf("retcode = %d, want 10008", result.Retcode)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestPermanentRetcodeRaisesImmediately(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return &Result{RequestID: requestID, Retcode: 10013}, nil // INVALID, permanent
	}

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if err == nil {
		t.Fatal("expected an error for a permanent retcode")
	}
	if !apperror.Is(err, apperror.CodePermanentOrder) {
		t.Errorf("error = %v, want CodePermanentOrder", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent failure)", calls)
	}
}

// TestAmbiguousTimeoutVerifiesAndFindsDeal is scenario S4(a): TIMEOUT
// (10012) triggers verify_state, which finds the deal.
func TestAmbiguousTimeoutVerifiesAndFindsDeal(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return &Result{RequestID: requestID, Retcode: 10012}, nil // TIMEOUT
	}
	cfg.VerifyState = func(ctx context.Context, requestID string, hint *Result) (*Result, error) {
		return &Result{RequestID: requestID, Retcode: 10009}, nil
	}

	orch, _ := New(cfg)
	result, err := orch.Execute(context.Background(), "buy", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Retcode != 10009 {
		t.Errorf("retcode = %d, want 10009 (the verified deal)", result.Retcode)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 — no blind retry on VERIFY_REQUIRED", calls)
	}
}

// TestAmbiguousTimeoutVerificationNotFound is scenario S4(b): TIMEOUT with
// no matching deal raises PermanentError and never retries order_send.
func TestAmbiguousTimeoutVerificationNotFound(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return &Result{RequestID: requestID, Retcode: 10012}, nil
	}
	cfg.VerifyState = noMatch

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if err == nil {
		t.Fatal("expected an error when verification finds nothing")
	}
	if !apperror.Is(err, apperror.CodePermanentOrder) {
		t.Errorf("error = %v, want CodePermanentOrder", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 — under no path does a second order_send fire", calls)
	}
}

func TestConditionalClassificationRequiresVerification(t *testing.T) {
	cfg := baseConfig()
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		return &Result{RequestID: requestID, Retcode: 10007}, nil // CANCEL, conditional
	}
	verifyCalled := false
	cfg.VerifyState = func(ctx context.Context, requestID string, hint *Result) (*Result, error) {
		verifyCalled = true
		return nil, nil
	}

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !verifyCalled {
		t.Error("CONDITIONAL classification must trigger verify_state, never a blind retry or permanent failure")
	}
}

// TestEmptyResponseUnreachableRaisesPermanent covers step 4.d: an empty
// response combined with a failing health check is unsafe to retry.
func TestEmptyResponseUnreachableRaisesPermanent(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return nil, nil
	}
	cfg.HealthCheck = func(context.Context) bool { return false }

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperror.Is(err, apperror.CodePermanentOrder) {
		t.Errorf("error = %v, want CodePermanentOrder", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmptyResponseVerifiedSucceeds(t *testing.T) {
	cfg := baseConfig()
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		return nil, nil
	}
	cfg.VerifyState = func(ctx context.Context, requestID string, hint *Result) (*Result, error) {
		return &Result{RequestID: requestID, Retcode: 10008}, nil
	}

	orch, _ := New(cfg)
	result, err := orch.Execute(context.Background(), "buy", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Retcode != 10008 {
		t.Errorf("retcode = %d, want 10008", result.Retcode)
	}
}

func TestMaxRetriesExceededRaisesPermanentWithLastRetcode(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxAttempts = 3
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return &Result{RequestID: requestID, Retcode: 10004}, nil // always retryable
	}

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !apperror.Is(err, apperror.CodePermanentOrder) {
		t.Errorf("error = %v, want CodePermanentOrder", err)
	}
	if !strings.Contains(err.Error(), "last retcode 10004") {
		t.Errorf("error = %v, want it to carry last retcode 10004", err)
	}
}

// TestBreakerOpenRefusesAdmission is scenario S5's consuming side: once the
// breaker is open, Execute must raise CircuitBreakerOpenError without
// calling ExecuteGRPC at all.
func TestBreakerOpenRefusesAdmission(t *testing.T) {
	b := breaker.New(breaker.Config{Threshold: 1, RecoverySeconds: time.Hour, HalfOpenMax: 1})
	b.RecordFailure() // trips to OPEN

	cfg := baseConfig()
	cfg.Breaker = b
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return &Result{Retcode: 10009}, nil
	}

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if !apperror.Is(err, apperror.CodeCircuitOpen) {
		t.Errorf("error = %v, want CodeCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 — breaker must refuse before any transport call", calls)
	}
}

func TestNonRetryableTransportErrorDoesNotRetry(t *testing.T) {
	cfg := baseConfig()
	calls := 0
	sentinel := apperror.New(apperror.CodeInvalidArgument, "bad volume")
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return nil, sentinel
	}

	orch, _ := New(cfg)
	_, err := orch.Execute(context.Background(), "buy", "{}")
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestUnhealthyAfterTransportErrorVerifiesBeforeGivingUp(t *testing.T) {
	cfg := baseConfig()
	cfg.HealthCheck = func(context.Context) bool { return false }
	calls := 0
	cfg.ExecuteGRPC = func(ctx context.Context, requestID, comment string, attempt int) (*Result, error) {
		calls++
		return nil, apperror.New(apperror.CodeRetryableTerminal, "transient")
	}
	cfg.VerifyState = func(ctx context.Context, requestID string, hint *Result) (*Result, error) {
		return &Result{RequestID: requestID, Retcode: 10009}, nil
	}

	orch, _ := New(cfg)
	result, err := orch.Execute(context.Background(), "buy", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Retcode != 10009 {
		t.Errorf("retcode = %d, want 10009", result.Retcode)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 — unhealthy after a transport error must not retry blindly", calls)
	}
}

func TestNewRejectsZeroMaxAttempts(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxAttempts = 0
	cfg.ExecuteGRPC = func(context.Context, string, string, int) (*Result, error) { return nil, nil }
	if _, err := New(cfg); err == nil {
		t.Error("expected an error for max_attempts=0")
	}
}
