package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabledSet(t *testing.T) {
	set, err := NewEnabledSet("XAUUSD", "BTCUSD")
	require.NoError(t, err)

	assert.True(t, set.Contains("XAUUSD"))
	assert.False(t, set.Contains("ETHUSD"))
	assert.Equal(t, []string{"BTCUSD", "XAUUSD"}, set.List())

	set.Disable("XAUUSD")
	assert.False(t, set.Contains("XAUUSD"))

	require.NoError(t, set.Enable("ETHUSD"))
	assert.Equal(t, []string{"BTCUSD", "ETHUSD"}, set.List())
}

func TestEnabledSetRejectsUnknownSymbol(t *testing.T) {
	set, err := NewEnabledSet()
	require.NoError(t, err)
	assert.Error(t, set.Enable("PLTN"))

	_, err = NewEnabledSet("XAUUSD", "PLTN")
	assert.Error(t, err)
}

func TestEnabledSetIdempotentEnable(t *testing.T) {
	set, err := NewEnabledSet("XAUUSD")
	require.NoError(t, err)
	require.NoError(t, set.Enable("XAUUSD"))
	assert.Equal(t, []string{"XAUUSD"}, set.List())
}
