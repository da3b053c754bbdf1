package abi

import "math"

// SafeMul returns a*b and false when the product does not fit in an int64.
func SafeMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

// SafeAdd returns a+b and false on int64 overflow.
func SafeAdd(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

// AlignTo rounds offset up to the next multiple of align. Negative offsets
// round toward positive infinity as well.
func AlignTo(offset, align int64) int64 {
	if align <= 1 {
		return offset
	}
	r := offset % align
	if r == 0 {
		return offset
	}
	if r < 0 {
		return offset - r
	}
	return offset + align - r
}

// Min64 returns the smaller of a and b.
func Min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Max64 returns the larger of a and b.
func Max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
