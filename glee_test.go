package glee_test

import (
	"testing"

	"github.com/glee-cse/glee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorReason_String(t *testing.T) {
	assert.Equal(t, "bad_vector_access", glee.ReasonBadVectorAccess.String())
	assert.Equal(t, "exit", glee.ReasonExit.String())
	assert.Equal(t, "ErrorReason<100>", glee.ErrorReason(100).String())
}

func TestParseErrorReason(t *testing.T) {
	for _, tt := range []struct {
		name string
		want glee.ErrorReason
	}{
		{"ptr", glee.ReasonPtr},
		{"Bad-Vector-Access", glee.ReasonBadVectorAccess},
		{" report_error ", glee.ReasonReportError},
	} {
		t.Run(tt.name, func(t *testing.T) {
			reason, err := glee.ParseErrorReason(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reason)
		})
	}

	t.Run("ErrUnknown", func(t *testing.T) {
		_, err := glee.ParseErrorReason("segfault")
		assert.EqualError(t, err, `glee: unknown error reason: "segfault"`)
	})

	t.Run("ErrNone", func(t *testing.T) {
		_, err := glee.ParseErrorReason("none")
		assert.Error(t, err)
	})
}

func TestErrorReason_MarshalText(t *testing.T) {
	buf, err := glee.ReasonOverflow.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "overflow", string(buf))

	var reason glee.ErrorReason
	require.NoError(t, reason.UnmarshalText(buf))
	assert.Equal(t, glee.ReasonOverflow, reason)
	assert.Error(t, reason.UnmarshalText([]byte("bogus")))
}

func TestRuntimeError_Error(t *testing.T) {
	err := &glee.RuntimeError{Reason: glee.ReasonAbort, Message: "panic: boom"}
	assert.Equal(t, "glee: abort: panic: boom", err.Error())
}

func TestUnsupportedError_Error(t *testing.T) {
	err := &glee.UnsupportedError{Construct: "goroutines"}
	assert.Equal(t, "glee: goroutines not supported", err.Error())
}
