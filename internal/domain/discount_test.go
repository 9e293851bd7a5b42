package domain

import (
	"testing"
	"time"
)

func TestDiscount_IsRedeemable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	five := int32(5)

	tests := []struct {
		name        string
		discount    Discount
		redemptions int64
		want        bool
	}{
		{
			name:     "no caps and no window",
			discount: Discount{},
			want:     true,
		},
		{
			name:        "ended yesterday with no redemptions",
			discount:    Discount{EndsAt: &yesterday},
			redemptions: 0,
			want:        false,
		},
		{
			name:     "not started",
			discount: Discount{StartsAt: &tomorrow},
			want:     false,
		},
		{
			name:     "inside window",
			discount: Discount{StartsAt: &yesterday, EndsAt: &tomorrow},
			want:     true,
		},
		{
			name:        "cap reached",
			discount:    Discount{MaxRedemptions: &five},
			redemptions: 5,
			want:        false,
		},
		{
			name:        "one below cap",
			discount:    Discount{MaxRedemptions: &five},
			redemptions: 4,
			want:        true,
		},
		{
			name:     "ends exactly now",
			discount: Discount{EndsAt: &now},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.discount.IsRedeemable(now, tt.redemptions); got != tt.want {
				t.Errorf("IsRedeemable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentFromBasisPoints(t *testing.T) {
	tests := []struct {
		basisPoints int32
		want        float64
	}{
		{1250, 12.5},
		{1, 0.01},
		{333, 3.33},
		{10000, 100},
	}

	for _, tt := range tests {
		if got := PercentFromBasisPoints(tt.basisPoints); got != tt.want {
			t.Errorf("PercentFromBasisPoints(%d) = %v, want %v", tt.basisPoints, got, tt.want)
		}
	}
}
