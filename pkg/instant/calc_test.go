package instant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/types"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected float64
	}{
		{name: "addition", expr: "2+3", expected: 5},
		{name: "precedence", expr: "2+3*4", expected: 14},
		{name: "parens", expr: "(2+3)*4", expected: 20},
		{name: "nested parens", expr: "((1+2)*(3+4))", expected: 21},
		{name: "division", expr: "7/2", expected: 3.5},
		{name: "modulo", expr: "7%3", expected: 1},
		{name: "power", expr: "2^10", expected: 1024},
		{name: "power right assoc", expr: "2^3^2", expected: 512},
		{name: "unary minus", expr: "-5+3", expected: -2},
		{name: "double unary", expr: "--5", expected: 5},
		{name: "unicode operators", expr: "6×7−2÷2", expected: 41},
		{name: "decimals", expr: "0.1+0.2", expected: 0.3},
		{name: "whitespace", expr: "  2 +  2 ", expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCalculateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "division by zero", expr: "1/0"},
		{name: "modulo by zero", expr: "5%0"},
		{name: "dangling operator", expr: "2+"},
		{name: "unclosed paren", expr: "(2+3"},
		{name: "empty", expr: ""},
		{name: "letters", expr: "two plus two"},
		{name: "trailing garbage", expr: "2+2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.expr)
			require.Error(t, err)
			assert.Equal(t, types.KindValidation, types.KindOf(err))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "42", FormatNumber(42))
	assert.Equal(t, "3.5", FormatNumber(3.5))
	assert.Equal(t, "-7", FormatNumber(-7))
}
