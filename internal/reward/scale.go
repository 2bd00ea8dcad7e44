package reward

import "math"

// Scale clamps score to [0, 1] and maps it onto the integer range
// [floor, ceiling], truncating toward negative infinity. NaN scores must be
// rejected before calling Scale.
func Scale(score float64, floor, ceiling int) int {
	s := min(max(score, 0), 1)
	return int(math.Floor(float64(floor) + s*float64(ceiling-floor)))
}
