package engine

// Sum implements sum(col_or_result): a 64-bit accumulator over values,
// avoiding overflow for large tables of 32-bit values (§4.5).
func Sum(values []int32) int64 {
	var total int64
	for _, v := range values {
		total += int64(v)
	}
	return total
}

// Avg implements avg(col_or_result): sum/count as a float64. An empty
// input reports ok=false so the caller can produce an empty-tuple result
// instead of NaN.
func Avg(values []int32) (result float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	return float64(Sum(values)) / float64(len(values)), true
}

// Min implements min(col_or_result). ok is false for empty input; callers
// must not crash on that case, per §4.5.
func Min(values []int32) (result int32, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

// Max implements max(col_or_result).
func Max(values []int32) (result int32, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// Add implements add(a, b): element-wise sum. Panics are avoided by the
// caller (dispatcher) rejecting mismatched lengths as incomplete_data
// before calling in; this function trusts equal length per §4.5.
func Add(a, b []int32) []int32 {
	out := make([]int32, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Sub implements sub(a, b) as add(a, b*-1), matching §4.5 exactly.
func Sub(a, b []int32) []int32 {
	neg := make([]int32, len(b))
	for i, v := range b {
		neg[i] = -v
	}
	return Add(a, neg)
}
