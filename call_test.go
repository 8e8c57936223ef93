package textextractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

func TestCallStateMachine(t *testing.T) {
	c := newCall(OpRecognize, unified.PlatformAndroid, zap.NewNop())
	assert.Equal(t, stateIdle, c.current())
	assert.NotEmpty(t, c.id)

	assert.True(t, c.start())
	assert.Equal(t, stateInFlight, c.current())
	assert.False(t, c.start())

	c.resolve()
	assert.Equal(t, stateResolved, c.current())

	// terminal: a late rejection does not change the state
	oe := c.reject(errors.New("late"))
	assert.Equal(t, stateResolved, c.current())
	assert.Equal(t, c.id, oe.CallID)
}

func TestCallRejectWrapsForeignErrors(t *testing.T) {
	c := newCall(OpRecognize, unified.PlatformIOS, zap.NewNop())
	c.start()

	oe := c.reject(errors.New("boom"))
	assert.Equal(t, ocrerror.ErrorUnknown, oe.Code)
	assert.Equal(t, stateRejected, c.current())
	assert.Equal(t, "rejected", c.current().String())
}

func TestCallIDsAreUnique(t *testing.T) {
	a := newCall(OpRecognize, unified.PlatformNone, zap.NewNop())
	b := newCall(OpRecognize, unified.PlatformNone, zap.NewNop())
	assert.NotEqual(t, a.id, b.id)
}
