package domain

import "time"

// QualityLevel is the coarse classification of a QualitySample.
type QualityLevel string

const (
	QualityGood QualityLevel = "good"
	QualityFair QualityLevel = "fair"
	QualityPoor QualityLevel = "poor"
)

// QualitySample is one periodic reading of inbound video statistics.
// Only the most recent sample is kept; nothing is persisted.
type QualitySample struct {
	PacketsLost     uint32    `json:"packetsLost"`
	PacketsReceived uint32    `json:"packetsReceived"`
	SampledAt       time.Time `json:"sampledAt"`
}

// Level classifies the sample: loss above 5% is poor, above 2% is fair.
func (s QualitySample) Level() QualityLevel {
	if s.PacketsReceived == 0 {
		return QualityGood
	}
	ratio := float64(s.PacketsLost) / float64(s.PacketsReceived)
	switch {
	case ratio > 0.05:
		return QualityPoor
	case ratio > 0.02:
		return QualityFair
	default:
		return QualityGood
	}
}
