// Package anomaly flags weekly throughput readings that deviate sharply
// from the recent trend.
package anomaly

import "math"

const (
	// MinSamples is the smallest history that supports detection.
	MinSamples = 4
	// Window is how many trailing readings form a point's baseline.
	Window = 8
	// Threshold is the absolute z-score at which a reading is anomalous.
	Threshold = 2.0
)

// Point is one scored throughput reading.
type Point struct {
	Index     int
	Value     int
	ZScore    float64
	Anomalous bool
}

// Detect scores each reading against the mean and standard deviation of its
// trailing window, so an aberrant week cannot dilute its own baseline. The
// first MinSamples-1 readings have no baseline and carry no score. Returns
// nil when the series is too short.
func Detect(samples []int) []Point {
	if len(samples) < MinSamples {
		return nil
	}

	points := make([]Point, 0, len(samples)-(MinSamples-1))
	for i := MinSamples - 1; i < len(samples); i++ {
		start := max(i-Window, 0)
		window := samples[start:i]

		mean := 0.0
		for _, s := range window {
			mean += float64(s)
		}
		mean /= float64(len(window))

		variance := 0.0
		for _, s := range window {
			d := float64(s) - mean
			variance += d * d
		}
		variance /= float64(len(window))
		stddev := math.Sqrt(variance)

		value := float64(samples[i])
		z := 0.0
		switch {
		case stddev > 0:
			z = (value - mean) / stddev
		case value != mean:
			// A flat window gives no scale to score against; any move off
			// it breaks the trend. Report it at the threshold.
			z = math.Copysign(Threshold, value-mean)
		}

		points = append(points, Point{
			Index:     i,
			Value:     samples[i],
			ZScore:    z,
			Anomalous: math.Abs(z) >= Threshold,
		})
	}
	return points
}

// Anomalies filters Detect output down to the anomalous readings.
func Anomalies(samples []int) []Point {
	var out []Point
	for _, p := range Detect(samples) {
		if p.Anomalous {
			out = append(out, p)
		}
	}
	return out
}
