package model

// rampStart is the grace period in seconds after the timeout during which
// an overshooting inactivity interval still scores full satisfaction.
const rampStart = 60.0

// WeightedSatisfaction scores one inactivity interval t against a candidate
// timeout. Intervals shorter than the timeout score 1; longer ones ramp
// linearly from 1 at timeout+rampStart down to 0 at timeout+threshold.
func WeightedSatisfaction(t, timeout, threshold float64) float64 {
	if t < timeout {
		return 1
	}
	w := (threshold - (t - timeout)) / (threshold - rampStart)
	if w > 1 {
		return 1
	}
	if w < 0 {
		return 0
	}
	return w
}

// MeanSatisfaction averages WeightedSatisfaction over a sample of
// inactivity intervals. An empty sample scores 0.
func MeanSatisfaction(sample []float64, timeout, threshold float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	var sum float64
	for _, t := range sample {
		sum += WeightedSatisfaction(t, timeout, threshold)
	}
	return sum / float64(len(sample))
}
