package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalTextFromFloat(t *testing.T) {
	assert.Equal(t, "101.5", DecimalTextFromFloat(101.5))
	assert.Equal(t, "0.1", DecimalTextFromFloat(0.1))
	assert.Equal(t, "0", DecimalTextFromFloat(0))
}

func TestDecimalTextFromString(t *testing.T) {
	got, err := DecimalTextFromString(" 0.2400 ")
	require.NoError(t, err)
	assert.Equal(t, "0.24", got)

	for _, bad := range []string{"", "None", "n/a"} {
		_, err := DecimalTextFromString(bad)
		assert.Error(t, err, bad)
	}
}

func TestPercentToFractionText(t *testing.T) {
	assert.Equal(t, "0.0015", PercentToFractionText(0.15))
	assert.Equal(t, "0.2", PercentToFractionText(20))
}
