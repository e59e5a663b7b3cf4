package types

import "testing"

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{1.004, 1.0},
		{2.675, 2.68},
		{10, 10},
		{-1.005, -1.01},
		{0.125, 0.13},
		{123.4549, 123.45},
	}
	for _, tt := range tests {
		if got := RoundMoney(tt.in); got != tt.want {
			t.Errorf("RoundMoney(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoundThreeDecimals(t *testing.T) {
	if got := Round(1.0625, 3); got != 1.063 {
		t.Errorf("Round(1.0625, 3) = %v, want 1.063", got)
	}
}
