// Package forecast produces throughput-based completion forecasts using
// bootstrap Monte Carlo simulation over historical weekly throughput.
package forecast

import (
	"math/rand"
	"sort"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
)

const (
	// MinSamples is the smallest history that supports a forecast.
	MinSamples = 4
	// WindowWeeks bounds the trailing history used as the bootstrap pool.
	WindowWeeks = 12
	// Trials is the number of Monte Carlo simulation runs.
	Trials = 5000
	// maxWeeks caps a single trial so a zero-throughput history cannot
	// loop forever.
	maxWeeks = 520
)

// ErrInsufficientData indicates too little throughput history to forecast.
var ErrInsufficientData = apperrors.New(apperrors.CodeForecastInsufficientData, "not enough throughput history to forecast")

// Result holds the percentile outcomes of a simulation, in weeks until the
// remaining scope completes.
type Result struct {
	RemainingTasks int
	SampleWeeks    int
	Trials         int
	P50Weeks       int
	P75Weeks       int
	P90Weeks       int
}

// Run simulates completion of remainingTasks using the trailing WindowWeeks
// of weeklyThroughput as a bootstrap pool. Each trial draws past weeks with
// replacement until the remaining scope is exhausted. Results are
// deterministic for a given seed.
func Run(weeklyThroughput []int, remainingTasks int, seed int64) (Result, error) {
	samples := trailingWindow(weeklyThroughput)
	if len(samples) < MinSamples {
		return Result{}, ErrInsufficientData
	}
	if allZero(samples) {
		return Result{}, ErrInsufficientData
	}
	if remainingTasks <= 0 {
		return Result{
			RemainingTasks: 0,
			SampleWeeks:    len(samples),
			Trials:         Trials,
		}, nil
	}

	rng := rand.New(rand.NewSource(seed))
	outcomes := make([]int, Trials)
	for trial := 0; trial < Trials; trial++ {
		remaining := remainingTasks
		weeks := 0
		for remaining > 0 && weeks < maxWeeks {
			remaining -= samples[rng.Intn(len(samples))]
			weeks++
		}
		outcomes[trial] = weeks
	}
	sort.Ints(outcomes)

	return Result{
		RemainingTasks: remainingTasks,
		SampleWeeks:    len(samples),
		Trials:         Trials,
		P50Weeks:       percentile(outcomes, 50),
		P75Weeks:       percentile(outcomes, 75),
		P90Weeks:       percentile(outcomes, 90),
	}, nil
}

func trailingWindow(samples []int) []int {
	if len(samples) <= WindowWeeks {
		return samples
	}
	return samples[len(samples)-WindowWeeks:]
}

func allZero(samples []int) bool {
	for _, s := range samples {
		if s > 0 {
			return false
		}
	}
	return true
}

// percentile returns the nearest-rank percentile of sorted outcomes.
func percentile(sorted []int, pct int) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
