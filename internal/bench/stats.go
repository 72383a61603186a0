package bench

import (
	"math"
	"time"
)

// Summary describes a sample of measurements.
type Summary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Summarize returns mean, sample standard deviation, min and max of samples.
// A single sample has a standard deviation of 0. An empty sample summarizes
// to zero values.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	s := Summary{
		Mean: Mean(samples),
		Min:  samples[0],
		Max:  samples[0],
	}
	for _, v := range samples[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if len(samples) > 1 {
		var sq float64
		for _, v := range samples {
			d := v - s.Mean
			sq += d * d
		}
		s.Std = math.Sqrt(sq / float64(len(samples)-1))
	}
	// Rounding in the mean can push it a hair outside [Min, Max] when every
	// sample is equal.
	s.Mean = math.Min(math.Max(s.Mean, s.Min), s.Max)
	return s
}

// Mean returns the arithmetic mean of samples, or 0 when there are none.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func microseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
