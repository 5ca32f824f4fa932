// Package pvq implements pyramid vector quantization de-quantization and
// its companion adaptation bookkeeping: decoding the residual coefficient
// vector for a block either through the plain DC+Laplace path or the
// gain/theta (PVQ proper) path, and folding per-block statistics into a
// per-superblock-row running average that seeds the next row's
// adaptation Context. The decode models do not read these statistics.
package pvq

// NoValue marks a per-superblock statistic as "not observed this
// superblock" so the row-level promotion step can skip it instead of
// polluting the running average with a zero.
const NoValue = -1

// Adapt statistic slots: pulse count, sum of expectations, coded-position
// count, count expectation, all in Q8.
const (
	AdaptK = iota
	AdaptSumEx
	AdaptCount
	AdaptCountEx
	adaptNStats
)

// Context holds the four current adaptation values threaded through PVQ
// decode calls: seeded from the row context at each superblock, rewritten
// by every block decode, and finalized back into the superblock average.
type Context struct {
	Curr [adaptNStats]int
}

// DivuSmall computes round(total/count) using only integer arithmetic;
// count is always small and positive here (a superblock has at most a few
// dozen coded blocks per plane).
func DivuSmall(total, count int) int {
	if count <= 0 {
		return 0
	}
	return (total + count/2) / count
}

// BlockStats accumulates the raw per-block K/sum-ex/count/count-ex totals
// across one superblock's worth of block decodes. The engine starts one
// per (superblock, plane) and finalizes it before publishing.
type BlockStats struct {
	nk, kTotal, sumExTotal      int
	ncount, countTotal, countEx int
}

// ObserveK folds one block's K statistics in; called only when the block
// produced a K observation (Curr[AdaptK] >= 0).
func (s *BlockStats) ObserveK(kQ8, sumExQ8 int) {
	s.nk++
	s.kTotal += kQ8
	s.sumExTotal += sumExQ8
}

// ObserveCount is the COUNT-family counterpart of ObserveK.
func (s *BlockStats) ObserveCount(countQ8, countExQ8 int) {
	s.ncount++
	s.countTotal += countQ8
	s.countEx += countExQ8
}

// Finalize folds the accumulated per-block totals into ctx.Curr, using
// NoValue for any family with no observations this superblock. The K sum
// is accumulated in Q8 units of whole pulses and published as a Q16
// average; the encoder publishes through the identical formula.
func (s *BlockStats) Finalize(ctx *Context) {
	if s.nk > 0 {
		ctx.Curr[AdaptK] = DivuSmall(s.kTotal<<8, s.nk)
		ctx.Curr[AdaptSumEx] = DivuSmall(s.sumExTotal, s.nk)
	} else {
		ctx.Curr[AdaptK] = NoValue
		ctx.Curr[AdaptSumEx] = NoValue
	}
	if s.ncount > 0 {
		ctx.Curr[AdaptCount] = DivuSmall(s.countTotal, s.ncount)
		ctx.Curr[AdaptCountEx] = DivuSmall(s.countEx, s.ncount)
	} else {
		ctx.Curr[AdaptCount] = NoValue
		ctx.Curr[AdaptCountEx] = NoValue
	}
}

// HMeanContext accumulates a harmonic mean of each per-superblock Context
// published across one superblock row. A harmonic mean weights down the
// occasional superblock with an unusually extreme single-block value.
type HMeanContext struct {
	sumInv [adaptNStats]float64
	n      [adaptNStats]int
}

// Observe folds one superblock's finalized Context into the row's
// harmonic-mean accumulator, skipping any slot still at NoValue.
func (h *HMeanContext) Observe(ctx *Context) {
	for i := 0; i < adaptNStats; i++ {
		if v := ctx.Curr[i]; v != NoValue && v > 0 {
			h.sumInv[i] += 1 / float64(v)
			h.n[i]++
		}
	}
}

// HarmonicMeans returns the row's current harmonic-mean estimates for
// (K, sumEx, count, countEx), or 0 for any slot with no observations yet.
func (h *HMeanContext) HarmonicMeans() (k, sumEx, count, countEx float64) {
	hm := func(i int) float64 {
		if h.n[i] == 0 || h.sumInv[i] == 0 {
			return 0
		}
		return float64(h.n[i]) / h.sumInv[i]
	}
	return hm(AdaptK), hm(AdaptSumEx), hm(AdaptCount), hm(AdaptCountEx)
}

// RowContext is the per-plane adaptation state that survives from one
// superblock row to the next. It holds the previous row's promoted
// averages, NoValue until a row produces one.
type RowContext struct {
	base [adaptNStats]int
}

// NewRowContext returns a row context with every statistic unobserved.
func NewRowContext() *RowContext {
	r := &RowContext{}
	for i := range r.base {
		r.base[i] = NoValue
	}
	return r
}

// Seed loads the row's current baselines into ctx ahead of a superblock
// decode.
func (r *RowContext) Seed(ctx *Context) {
	ctx.Curr = r.base
}

// PromoteRow folds a completed row's harmonic means into the baseline for
// the next row, keeping the old baseline for any statistic the row never
// observed.
func (r *RowContext) PromoteRow(h *HMeanContext) {
	k, sumEx, count, countEx := h.HarmonicMeans()
	vals := [adaptNStats]float64{k, sumEx, count, countEx}
	for i := range r.base {
		if h.n[i] > 0 {
			r.base[i] = int(vals[i] + 0.5)
		}
	}
}
