package domain

import (
	"math"
	"time"
)

// Sample is one scalar value at an instant. Missing data is NaN; it
// propagates through every downstream computation instead of being
// replaced with a default.
type Sample struct {
	Time  time.Time
	Value float64
}

// Series is a scalar model time series extracted at one station's
// resolved node and layer.
type Series struct {
	StationID string
	Variable  VariableKind
	Samples   []Sample
}

// VectorSample is one current observation: speed in the model's
// velocity units and direction in degrees clockwise from true north.
type VectorSample struct {
	Time      time.Time
	Speed     float64
	Direction float64
}

// VectorSeries is a current time series at one station.
type VectorSeries struct {
	StationID string
	Samples   []VectorSample
}

// sentinelBand is the magnitude at or beyond which a value is
// instrument or fill noise rather than data.
const sentinelBand = 999.0

// MaskSentinel returns NaN for values in the sentinel band and the
// value unchanged otherwise.
func MaskSentinel(v float64) float64 {
	if math.Abs(v) >= sentinelBand {
		return math.NaN()
	}
	return v
}

// SpeedDirection converts east/north velocity components to magnitude
// and compass direction. A NaN component yields NaN for both.
func SpeedDirection(u, v float64) (speed, direction float64) {
	speed = math.Sqrt(u*u + v*v)
	direction = math.Atan2(u, v) * 180.0 / math.Pi
	direction = math.Mod(direction+360.0, 360.0)
	return speed, direction
}

// Shift adds a static bias to every sample, preserving NaN.
func (s *Series) Shift(offset float64) {
	if offset == 0 {
		return
	}
	for i := range s.Samples {
		s.Samples[i].Value += offset
	}
}

// Trim drops samples outside [start, end].
func (s *Series) Trim(start, end time.Time) {
	out := s.Samples[:0]
	for _, p := range s.Samples {
		if p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		out = append(out, p)
	}
	s.Samples = out
}

// TrimVector drops samples outside [start, end].
func (s *VectorSeries) TrimVector(start, end time.Time) {
	out := s.Samples[:0]
	for _, p := range s.Samples {
		if p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		out = append(out, p)
	}
	s.Samples = out
}
