package domain

import "testing"

func TestQualityLevel(t *testing.T) {
	cases := []struct {
		name     string
		lost     uint32
		received uint32
		want     QualityLevel
	}{
		{"no loss", 0, 1000, QualityGood},
		{"one percent", 1, 100, QualityGood},
		{"three percent", 3, 100, QualityFair},
		{"six percent", 6, 100, QualityPoor},
		{"boundary two percent", 2, 100, QualityGood},
		{"boundary five percent", 5, 100, QualityFair},
		{"nothing received yet", 10, 0, QualityGood},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := QualitySample{PacketsLost: tc.lost, PacketsReceived: tc.received}
			if got := s.Level(); got != tc.want {
				t.Errorf("Level() = %s, want %s", got, tc.want)
			}
		})
	}
}
