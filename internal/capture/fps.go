package capture

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum FPS standard deviation as a fraction of the mean
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum mean jitter as a fraction of the expected interval
	jitterStabilityThreshold = 0.20
)

// FPSStats summarizes the read cadence of a source over a probe period
type FPSStats struct {
	FramesReceived int
	Duration       time.Duration

	FPSMean   float64
	FPSStdDev float64
	FPSMin    float64
	FPSMax    float64

	// Jitter is the absolute deviation of each interval from 1/FPSMean, in seconds
	JitterMean   float64
	JitterStdDev float64
	JitterMax    float64

	// IsStable is true when stddev < 15% of mean and jitter < 20% of the expected interval
	IsStable bool
}

// MeasureFPS computes FPS statistics from read timestamps
func MeasureFPS(frameTimes []time.Time, totalDuration time.Duration) FPSStats {
	n := len(frameTimes)
	stats := FPSStats{FramesReceived: n, Duration: totalDuration}
	if n == 0 || totalDuration <= 0 {
		return stats
	}

	stats.FPSMean = float64(n) / totalDuration.Seconds()

	intervals := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if d := frameTimes[i].Sub(frameTimes[i-1]).Seconds(); d > 0 {
			intervals = append(intervals, d)
		}
	}
	if len(intervals) == 0 {
		return stats
	}

	instantaneous := make([]float64, len(intervals))
	for i, d := range intervals {
		instantaneous[i] = 1.0 / d
	}

	stats.FPSMin, stats.FPSMax = instantaneous[0], instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		stats.FPSMin = math.Min(stats.FPSMin, fps)
		stats.FPSMax = math.Max(stats.FPSMax, fps)
		diff := fps - stats.FPSMean
		sumSquares += diff * diff
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instantaneous)))

	expected := 1.0 / stats.FPSMean
	var jitterSum float64
	jitters := make([]float64, len(intervals))
	for i, d := range intervals {
		jitters[i] = math.Abs(d - expected)
		jitterSum += jitters[i]
		stats.JitterMax = math.Max(stats.JitterMax, jitters[i])
	}
	stats.JitterMean = jitterSum / float64(len(jitters))

	var jitterSquares float64
	for _, j := range jitters {
		diff := j - stats.JitterMean
		jitterSquares += diff * diff
	}
	stats.JitterStdDev = math.Sqrt(jitterSquares / float64(len(jitters)))

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold

	return stats
}
