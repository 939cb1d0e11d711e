package fingerprint

import "math"

// ExtractScenes reduces a brightness sequence to its scene transitions: the
// strict local maxima separated by at least minSpacing seconds.
//
// A sample qualifies as a peak only when it is strictly greater than every
// neighbor within order = floor(minSpacing*fps) (at least 1) on both sides, so ties never
// produce peaks. Samples too close to either end for a full window are not
// eligible. Each retained peak carries the gap in seconds to the previous
// one; the first peak's gap is measured from frame zero.
func ExtractScenes(brightness []float64, fps, minSpacing float64) []Scene {
	if fps <= 0 || len(brightness) == 0 {
		return nil
	}

	order := int(math.Floor(minSpacing * fps))
	if order < 1 {
		order = 1
	}

	var scenes []Scene
	prev := 0
	for i := order; i < len(brightness)-order; i++ {
		if !isPeak(brightness, i, order) {
			continue
		}
		scenes = append(scenes, Scene{
			Frame: i,
			Gap:   float64(i-prev) / fps,
		})
		prev = i
	}
	return scenes
}

func isPeak(b []float64, i, order int) bool {
	for j := i - order; j <= i+order; j++ {
		if j == i {
			continue
		}
		if b[j] >= b[i] {
			return false
		}
	}
	return true
}
