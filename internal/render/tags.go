package render

// TagTailSeconds is the minimum room left after the last tag start.
const TagTailSeconds = 2.0

// TagTimes returns tag start offsets in seconds: 0, interval, 2*interval, ...
// while the start is strictly before durationSeconds-TagTailSeconds.
// Non-positive intervals yield no tags.
func TagTimes(durationSeconds float64, intervalSeconds int) []float64 {
	if intervalSeconds <= 0 {
		return nil
	}
	var times []float64
	step := float64(intervalSeconds)
	for t := 0.0; t < durationSeconds-TagTailSeconds; t += step {
		times = append(times, t)
	}
	return times
}
