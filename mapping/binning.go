package mapping

// Normalize maps val from [min, max] onto [0, 1]. Values outside the range
// map outside [0, 1].
func Normalize(val, min, max float64) float64 {
	return (val - min) / (max - min)
}

// Discretize maps a continuous coordinate into one of bins integer bins.
// Out-of-range inputs clamp to the first or last bin; max itself lands in
// the last bin.
func Discretize(val, min, max float64, bins int) int {
	bin := int(float64(bins) * Normalize(val, min, max))
	return clampBin(bin, 0, bins-1)
}

func clampBin(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CrossedBins returns the bins strictly between a and b, in ascending order.
// Neither a nor b is included, so equal or adjacent bins cross nothing.
func CrossedBins(a, b int) []int {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi-lo < 2 {
		return nil
	}
	bins := make([]int, 0, hi-lo-1)
	for i := lo + 1; i < hi; i++ {
		bins = append(bins, i)
	}
	return bins
}
