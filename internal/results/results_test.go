// internal/results/results_test.go
package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKAndFailBasics(t *testing.T) {
	ok := OK(42)
	assert.True(t, ok.IsSuccess())
	assert.False(t, ok.IsFailure())
	assert.Equal(t, CodeOK, ok.Code)
	assert.Equal(t, 42, ok.Data)
	assert.Empty(t, ok.Error())

	fail := Fail[int](CodeTargetNotFound, "no element matches #login")
	assert.True(t, fail.IsFailure())
	assert.Equal(t, CodeTargetNotFound, fail.Code)
	assert.Equal(t, RecoveryCheckTarget, fail.Context.RecoveryHint)
	assert.Equal(t, "TARGET_NOT_FOUND: no element matches #login", fail.Error())
}

func TestFailfFormatsMessage(t *testing.T) {
	r := Failf[bool](CodeWindowNotFound, "window index %d out of range", 7)
	assert.Equal(t, "window index 7 out of range", r.Err)
	assert.Equal(t, RecoveryCheckTarget, r.Context.RecoveryHint)
}

func TestOKWithDuration(t *testing.T) {
	r := OKWithDuration("payload", 150*time.Millisecond)
	assert.True(t, r.IsSuccess())
	assert.Equal(t, 150*time.Millisecond, r.Context.Duration)
}

// Every code must map to a hint; the mapping drives the engine's retry logic,
// so each class is pinned here.
func TestRecoveryMappingIsTotal(t *testing.T) {
	cases := []struct {
		code Code
		hint RecoveryHint
	}{
		{CodeOK, RecoveryNone},
		{CodeTimeout, RecoveryRetry},
		{CodeProcessFailed, RecoveryRetry},
		{CodeMouseClickFailed, RecoveryRetryWithDelay},
		{CodeElementNotVisible, RecoveryRetryWithDelay},
		{CodeElementNotInteractable, RecoveryRetryWithDelay},
		{CodeChromeNotRunning, RecoveryRetryWithDelay},
		{CodeTargetNotFound, RecoveryCheckTarget},
		{CodeMultipleTargetsFound, RecoveryCheckTarget},
		{CodeWindowNotFound, RecoveryCheckTarget},
		{CodePermissionDenied, RecoveryPermission},
		{CodeInvalidInput, RecoveryNone},
		{CodeInvalidCoordinates, RecoveryNone},
		{CodeJavaScriptError, RecoveryNone},
		{CodeUnknown, RecoveryNone},
		{Code("SOMETHING_NEW"), RecoveryNone},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.hint, Recovery(tc.code))
		})
	}
}

func TestFailFromPreservesFailureState(t *testing.T) {
	src := Fail[string](CodePermissionDenied, "osascript is not authorized").
		WithMetadata("stderr", "-1743")

	dst := FailFrom[int](src)
	assert.Equal(t, CodePermissionDenied, dst.Code)
	assert.Equal(t, src.Err, dst.Err)
	assert.Equal(t, RecoveryPermission, dst.Context.RecoveryHint)
	assert.Equal(t, "-1743", dst.Context.Metadata["stderr"])
}

func TestGeneralize(t *testing.T) {
	ok := Generalize(OK("hello"))
	require.True(t, ok.IsSuccess())
	assert.Equal(t, "hello", ok.Data)

	fail := Generalize(Fail[string](CodeTimeout, "deadline exceeded"))
	require.True(t, fail.IsFailure())
	assert.Nil(t, fail.Data)
	assert.Equal(t, CodeTimeout, fail.Code)
	assert.Equal(t, RecoveryRetry, fail.Context.RecoveryHint)
}

func TestWithMetadataDoesNotMutateReceiver(t *testing.T) {
	base := Fail[int](CodeJavaScriptError, "boom")
	withMeta := base.WithMetadata("method", "paste")

	assert.Nil(t, base.Context.Metadata)
	assert.Equal(t, "paste", withMeta.Context.Metadata["method"])

	// Chaining accumulates keys without sharing the map.
	more := withMeta.WithMetadata("attempt", 2)
	assert.Len(t, withMeta.Context.Metadata, 1)
	assert.Len(t, more.Context.Metadata, 2)
}
