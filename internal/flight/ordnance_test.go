package flight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdnanceDeploy(t *testing.T) {
	o := NewOrdnance[*string]()
	_, err := o.Deploy()
	require.ErrorIs(t, err, ErrNoOrdnance)

	o.Load(nil)
	assert.False(t, o.Loaded())
	_, err = o.Deploy()
	require.ErrorIs(t, err, ErrNoOrdnance)

	v := "payload"
	o.Load(&v)
	assert.True(t, o.Loaded())
	got, err := o.Deploy()
	require.NoError(t, err)
	assert.Equal(t, "payload", *got)
	assert.False(t, o.Loaded(), "deploy clears")
}

func TestOrdnanceSentinels(t *testing.T) {
	o := NewOrdnanceWithSentinels("", "n/a")

	o.Load("n/a")
	_, err := o.Deploy()
	require.ErrorIs(t, err, ErrNoOrdnance)
	assert.Equal(t, "n/a", o.Peek(), "a failed deploy keeps the value")

	o.Load("ok")
	got, err := o.Deploy()
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestOptionalOrdnanceDeploysNull(t *testing.T) {
	o := NewOptionalOrdnance[map[string]any]()
	o.Load(nil)
	got, err := o.Deploy()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrdnanceClear(t *testing.T) {
	o := NewOrdnance[[]string]()
	o.Load([]string{"a"})
	o.Clear()
	assert.False(t, o.Loaded())
	assert.Nil(t, o.Peek())
}
