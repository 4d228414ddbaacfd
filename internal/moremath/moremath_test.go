package moremath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWasmCompatMin(t *testing.T) {
	tests := []struct {
		name     string
		x, y     float64
		expected float64
	}{
		{name: "1 < 2", x: 1, y: 2, expected: 1},
		{name: "2 > 1", x: 2, y: 1, expected: 1},
		{name: "NaN, 1", x: math.NaN(), y: 1, expected: math.NaN()},
		{name: "1, NaN", x: 1, y: math.NaN(), expected: math.NaN()},
		{name: "-Inf wins", x: math.Inf(-1), y: 1, expected: math.Inf(-1)},
		{name: "0, -0", x: 0, y: math.Copysign(0, -1), expected: math.Copysign(0, -1)},
		{name: "-0, 0", x: math.Copysign(0, -1), y: 0, expected: math.Copysign(0, -1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual := WasmCompatMin(tc.x, tc.y)
			if math.IsNaN(tc.expected) {
				require.True(t, math.IsNaN(actual))
				return
			}
			require.Equal(t, math.Signbit(tc.expected), math.Signbit(actual))
			require.Equal(t, tc.expected, actual)
		})
	}
}

func TestWasmCompatMax(t *testing.T) {
	tests := []struct {
		name     string
		x, y     float64
		expected float64
	}{
		{name: "1 < 2", x: 1, y: 2, expected: 2},
		{name: "2 > 1", x: 2, y: 1, expected: 2},
		{name: "NaN, 1", x: math.NaN(), y: 1, expected: math.NaN()},
		{name: "+Inf wins", x: math.Inf(1), y: 1, expected: math.Inf(1)},
		{name: "0, -0", x: 0, y: math.Copysign(0, -1), expected: 0},
		{name: "-0, 0", x: math.Copysign(0, -1), y: 0, expected: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual := WasmCompatMax(tc.x, tc.y)
			if math.IsNaN(tc.expected) {
				require.True(t, math.IsNaN(actual))
				return
			}
			require.Equal(t, math.Signbit(tc.expected), math.Signbit(actual))
			require.Equal(t, tc.expected, actual)
		})
	}
}
