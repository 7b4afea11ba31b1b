package linear

// FindNearest searches outward from start for the closest index in
// [lower, upper) satisfying test. Indices are visited in the order
// start, start+1, start-1, start+2, start-2, ... so on equal distance the
// upper side wins. Returns -1 if no index matches.
func FindNearest(start, lower, upper int, test func(i int) bool) int {
	if lower >= upper {
		return -1
	}
	if start < lower {
		start = lower
	} else if start >= upper {
		start = upper - 1
	}

	if test(start) {
		return start
	}
	for d := 1; ; d++ {
		up := start + d
		down := start - d
		if up >= upper && down < lower {
			return -1
		}
		if up < upper && test(up) {
			return up
		}
		if down >= lower && test(down) {
			return down
		}
	}
}
