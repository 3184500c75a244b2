package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNew(t *testing.T) {
	err := New(CodeCircuitOpen, "breaker is open")
	require.NotNil(t, err)
	assert.Equal(t, CodeCircuitOpen, err.Code)
	assert.Equal(t, SeverityError, err.Severity)
	assert.Equal(t, "[CIRCUIT_OPEN] breaker is open", err.Error())
}

func TestNewWithField(t *testing.T) {
	err := NewWithField(CodeInvalidArgument, "bad volume", "volume")
	assert.Equal(t, "volume", err.Field)
	assert.Contains(t, err.Error(), "field: volume")
}

func TestSeverityConstructors(t *testing.T) {
	w := NewWarning(CodeNotAvailable, "market closed")
	assert.Equal(t, SeverityWarning, w.Severity)
	assert.True(t, IsWarning(w))

	c := NewCritical(CodeMaxRetries, "gave up")
	assert.Equal(t, SeverityCritical, c.Severity)
	assert.True(t, IsCritical(c))
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(cause, CodeNotConnected, "could not reach terminal")
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestFluentSetters(t *testing.T) {
	err := New(CodeQueueFull, "queue full").
		WithField("queue").
		WithSeverity(SeverityCritical).
		WithDetails("depth", 500)

	assert.Equal(t, "queue", err.Field)
	assert.Equal(t, SeverityCritical, err.Severity)
	assert.Equal(t, 500, err.Details["depth"])
}

func TestIsAndCode(t *testing.T) {
	err := New(CodeCircuitOpen, "open")
	assert.True(t, Is(err, CodeCircuitOpen))
	assert.False(t, Is(err, CodeQueueFull))
	assert.Equal(t, CodeCircuitOpen, Code(err))

	plain := errors.New("plain")
	assert.False(t, Is(plain, CodeCircuitOpen))
	assert.Equal(t, CodeInternal, Code(plain))
}

func TestGRPCStatusMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want codes.Code
	}{
		{CodeInvalidArgument, codes.InvalidArgument},
		{CodeNotConnected, codes.Unavailable},
		{CodeNotInitialized, codes.Unavailable},
		{CodeConnectionLost, codes.Unavailable},
		{CodeNotAvailable, codes.FailedPrecondition},
		{CodeTimeout, codes.DeadlineExceeded},
		{CodeCircuitOpen, codes.ResourceExhausted},
		{CodeQueueFull, codes.ResourceExhausted},
		{CodeMaxRetries, codes.Aborted},
		{CodeUnimplemented, codes.Unimplemented},
		{CodeInternal, codes.Internal},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			err := New(tc.code, "msg")
			assert.Equal(t, tc.want, err.GRPCStatus().Code())
		})
	}
}

func TestToGRPCAndFromGRPC(t *testing.T) {
	appErr := New(CodeCircuitOpen, "open")
	grpcErr := ToGRPC(appErr)
	st, ok := status.FromError(grpcErr)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())

	assert.Nil(t, ToGRPC(nil))

	plain := errors.New("boom")
	wrapped := ToGRPC(plain)
	st2, ok := status.FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st2.Code())

	already := status.Error(codes.Unavailable, "down")
	assert.Equal(t, already, ToGRPC(already))

	back := FromGRPC(status.Error(codes.Unavailable, "down"))
	assert.Equal(t, CodeRetryableTerminal, back.Code)

	assert.Nil(t, FromGRPC(nil))

	nonStatus := FromGRPC(fmt.Errorf("wrapped: %w", plain))
	assert.Equal(t, CodeInternal, nonStatus.Code)
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	assert.True(t, v.IsValid())

	v.AddError(CodeInvalidArgument, "bad symbol")
	v.AddWarning(CodeNotAvailable, "stale quote")
	v.AddErrorWithField(CodeInvalidArgument, "bad volume", "volume")

	assert.True(t, v.HasErrors())
	assert.True(t, v.HasWarnings())
	assert.False(t, v.IsValid())
	assert.Len(t, v.ErrorMessages(), 2)
	assert.Len(t, v.WarningMessages(), 1)

	other := NewValidationErrors()
	other.AddError(CodeTimeout, "slow")
	v.Merge(other)
	assert.Len(t, v.Errors, 3)

	v.Merge(nil)
	assert.Len(t, v.Errors, 3)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "unknown", Severity(99).String())
}
