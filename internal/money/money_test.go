package money

import (
	"errors"
	"math"
	"testing"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		want    int64
		wantErr bool
	}{
		{
			name:   "whole amount",
			amount: 50,
			want:   5000,
		},
		{
			name:   "two decimal places",
			amount: 10.25,
			want:   1025,
		},
		{
			name:   "rounds sub-cent precision",
			amount: 10.009,
			want:   1001,
		},
		{
			name:   "rounds extra precision",
			amount: 0.1 + 0.2,
			want:   30,
		},
		{
			name:    "zero",
			amount:  0,
			wantErr: true,
		},
		{
			name:    "negative",
			amount:  -5,
			wantErr: true,
		},
		{
			name:    "rounds to zero",
			amount:  0.004,
			wantErr: true,
		},
		{
			name:    "NaN",
			amount:  math.NaN(),
			wantErr: true,
		},
		{
			name:    "Inf",
			amount:  math.Inf(1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToCents(tt.amount)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ToCents(%v) error = %v, want ErrInvalidAmount", tt.amount, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToCents(%v) error: %v", tt.amount, err)
			}
			if got != tt.want {
				t.Fatalf("ToCents(%v) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFromCents(t *testing.T) {
	if got := FromCents(1025); got != 10.25 {
		t.Fatalf("FromCents(1025) = %v, want 10.25", got)
	}
	if got := FromCents(0); got != 0 {
		t.Fatalf("FromCents(0) = %v, want 0", got)
	}
}

func TestRoundTrip(t *testing.T) {
	cents, err := ToCents(100.00)
	if err != nil {
		t.Fatalf("ToCents error: %v", err)
	}
	if FromCents(cents) != 100.00 {
		t.Fatalf("round trip of 100.00 lost precision: %v", FromCents(cents))
	}
}
