package utils

import (
	"fmt"
	"math"
)

// Kopecks converts a ruble amount to minor currency units, rounding to the
// nearest kopeck.
func Kopecks(rubles float64) int64 {
	return int64(math.Round(rubles * 100))
}

// Rubles converts minor currency units back to rubles.
func Rubles(kopecks int64) float64 {
	return float64(kopecks) / 100
}

// FormatAmount renders minor currency units as "123.45".
func FormatAmount(kopecks int64) string {
	sign := ""
	if kopecks < 0 {
		sign = "-"
		kopecks = -kopecks
	}
	return fmt.Sprintf("%s%d.%02d", sign, kopecks/100, kopecks%100)
}
