package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsValidate(t *testing.T) {
	valid := Settings{RiskPercentage: 1, StopLossDistance: 10, TakeProfitDistance: 20}
	assert.NoError(t, valid.Validate())

	assert.NoError(t, Settings{RiskPercentage: 5, StopLossDistance: 1}.Validate(),
		"zero take profit distance means no take profit")

	assert.Error(t, Settings{RiskPercentage: 0, StopLossDistance: 10}.Validate())
	assert.Error(t, Settings{RiskPercentage: -1, StopLossDistance: 10}.Validate())
	assert.Error(t, Settings{RiskPercentage: 5.1, StopLossDistance: 10}.Validate())
	assert.Error(t, Settings{RiskPercentage: 1, StopLossDistance: 0}.Validate())
	assert.Error(t, Settings{RiskPercentage: 1, StopLossDistance: 10, TakeProfitDistance: -1}.Validate())
}

func TestStoreDefaults(t *testing.T) {
	s := NewStore()

	set, ok := s.Get("XAUUSD")
	require.True(t, ok)
	assert.Equal(t, 1.0, set.RiskPercentage)
	assert.Equal(t, 10.0, set.StopLossDistance)
	assert.Equal(t, 20.0, set.TakeProfitDistance)

	_, ok = s.Get("NOPE")
	assert.False(t, ok)
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()

	next := Settings{RiskPercentage: 2, StopLossDistance: 15, TakeProfitDistance: 45}
	require.NoError(t, s.Update("XAUUSD", next))

	got, ok := s.Get("XAUUSD")
	require.True(t, ok)
	assert.Equal(t, next, got)

	assert.Error(t, s.Update("NOPE", next), "unknown symbol")
	assert.Error(t, s.Update("XAUUSD", Settings{RiskPercentage: 99, StopLossDistance: 1}))

	// A rejected update must not change the stored settings.
	got, _ = s.Get("XAUUSD")
	assert.Equal(t, next, got)
}
