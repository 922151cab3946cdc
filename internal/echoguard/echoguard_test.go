package echoguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSend_InitiallyTrue(t *testing.T) {
	g := New()
	assert.True(t, g.ShouldSend(Sum([]byte("foo"))))
}

func TestShouldSend_SuppressesLastSent(t *testing.T) {
	g := New()
	fp := Sum([]byte("foo"))
	g.RecordSent(fp)
	assert.False(t, g.ShouldSend(fp))
}

func TestShouldSend_SuppressesLastReceived(t *testing.T) {
	g := New()
	fp := Sum([]byte("foo"))
	g.RecordReceived(fp)
	assert.False(t, g.ShouldSend(fp))
}

func TestShouldSend_DifferentContentNotSuppressed(t *testing.T) {
	g := New()
	g.RecordSent(Sum([]byte("foo")))
	assert.True(t, g.ShouldSend(Sum([]byte("bar"))))
}

func TestClear_ResetsBothSlots(t *testing.T) {
	g := New()
	fp := Sum([]byte("x"))
	g.RecordSent(fp)
	g.Clear()
	assert.True(t, g.ShouldSend(fp))

	g.RecordReceived(fp)
	g.Clear()
	assert.True(t, g.ShouldSend(fp))
}

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	assert.Equal(t, a, b)
	assert.Len(t, string(a), 64)
}

func TestSum_DifferentInputsDiffer(t *testing.T) {
	assert.NotEqual(t, Sum([]byte("hello")), Sum([]byte("world")))
}
