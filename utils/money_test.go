package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"2.675", "2.68"},
		{"-1.005", "-1.01"},
		{"-2.345", "-2.35"},
		{"10", "10"},
		{"0.125", "0.13"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.True(t, dec(tc.want).Equal(Round(dec(tc.in))), "Round(%s) = %s", tc.in, Round(dec(tc.in)))
		})
	}
}

func TestSumRoundedRoundsOnce(t *testing.T) {
	// three thirds of a cent each round to zero, summed they do not
	got := SumRounded(dec("0.004"), dec("0.004"), dec("0.004"))
	assert.True(t, dec("0.01").Equal(got), got.String())
	assert.True(t, decimal.Zero.Equal(SumRounded()))
}

func TestPercent(t *testing.T) {
	assert.True(t, dec("25").Equal(Percent(dec("25"), dec("100"))))
	assert.True(t, dec("33.33").Equal(Percent(dec("1"), dec("3"))))
	assert.True(t, decimal.Zero.Equal(Percent(dec("5"), decimal.Zero)))
	assert.True(t, decimal.Zero.Equal(Percent(dec("5"), dec("-1"))))
}
