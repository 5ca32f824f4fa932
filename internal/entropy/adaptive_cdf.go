package entropy

// AdaptiveCDF is a self-adapting cumulative distribution over a small
// alphabet, used by the intra mode CDF (C7) and by the generic Model
// (generic.go).
// Counts are unscaled Q15 frequencies; after every decode the winning
// symbol's mass is nudged up and the table renormalised, the same
// "move toward the observed symbol" update used by every adaptive binary
// arithmetic coder since CACM87.
type AdaptiveCDF struct {
	cdf  []uint16
	rate uint // adaptation rate: larger values adapt more slowly
}

// NewAdaptiveCDF builds a uniform starting distribution over n symbols.
func NewAdaptiveCDF(n int, rate uint) *AdaptiveCDF {
	a := &AdaptiveCDF{cdf: make([]uint16, n), rate: rate}
	for i := range a.cdf {
		a.cdf[i] = uint16((i + 1) * 32768 / n)
	}
	return a
}

// Decode draws a symbol from the oracle using the current distribution and
// adapts the table toward it.
func (a *AdaptiveCDF) Decode(d *Decoder) int {
	sym := d.DecodeCDF(a.cdf, len(a.cdf))
	a.update(sym)
	return sym
}

func (a *AdaptiveCDF) update(sym int) {
	n := len(a.cdf)
	for i := 0; i < n-1; i++ {
		if i < sym {
			a.cdf[i] -= a.cdf[i] >> a.rate
		} else {
			a.cdf[i] += (32768 - a.cdf[i]) >> a.rate
		}
	}
}
