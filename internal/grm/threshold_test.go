package grm

import (
	"testing"

	"fiacore/pkg/domain"
)

func TestThresholds(t *testing.T) {
	cases := []struct {
		est   EstimationType
		class domain.SpeciesClass
		want  float64
	}{
		{EstAllLive, domain.Softwood, 1.0},
		{EstAllLive, domain.Hardwood, 1.0},
		{EstGrowingStock, domain.Softwood, 5.0},
		{EstGrowingStock, domain.Hardwood, 5.0},
		{EstSawlog, domain.Softwood, 9.0},
		{EstSawlog, domain.Hardwood, 11.0},
	}
	for _, tc := range cases {
		if got := Threshold(tc.est, tc.class); got != tc.want {
			t.Fatalf("threshold(%s, %s) = %f, want %f", tc.est, tc.class, got, tc.want)
		}
	}
}

func TestAtOrAbove(t *testing.T) {
	if atOrAbove(nil, 5.0) {
		t.Fatal("nil diameter must not qualify")
	}
	d := 5.0
	if !atOrAbove(&d, 5.0) {
		t.Fatal("diameter equal to threshold must qualify")
	}
}
