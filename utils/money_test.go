package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKopecks(t *testing.T) {
	assert.Equal(t, int64(2000), Kopecks(20.00))
	assert.Equal(t, int64(152), Kopecks(1.52))
	assert.Equal(t, int64(1), Kopecks(0.005))
	assert.Equal(t, int64(0), Kopecks(0))
	assert.Equal(t, int64(-2550), Kopecks(-25.50))

	// 19.99 is not exactly representable; rounding must absorb that.
	assert.Equal(t, int64(1999), Kopecks(19.99))
}

func TestRubles(t *testing.T) {
	assert.Equal(t, 20.00, Rubles(2000))
	assert.Equal(t, 1.52, Rubles(152))
	assert.Equal(t, -25.50, Rubles(-2550))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "20.00", FormatAmount(2000))
	assert.Equal(t, "1.52", FormatAmount(152))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "-25.50", FormatAmount(-2550))
}
