package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"quoted thousands", `"14,430,365,174.00"`, "14430365174.00"},
		{"plain", "1500.5", "1500.50"},
		{"single quotes", "'2,000'", "2000.00"},
		{"surrounding spaces", "  42  ", "42.00"},
		{"empty", "", "0.00"},
		{"nil", nil, "0.00"},
		{"text", "abc", "0.00"},
		{"dash", "-", "0.00"},
		{"negative", "-15.00", "0.00"},
		{"rounds half up", "10.005", "10.01"},
		{"scientific", "1.5E+3", "1500.00"},
		{"float", 12.345, "12.35"},
		{"int", 7, "7.00"},
		{"unsupported type", []byte("12"), "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.in)
			require.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestParseAmount_HasTwoPlaces(t *testing.T) {
	require.Equal(t, int32(-2), ParseAmount("").Exponent())
	require.True(t, ParseAmount("abc").Equal(decimal.Zero))
}
