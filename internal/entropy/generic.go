package entropy

// genericBuckets is the number of power-of-two magnitude buckets the
// adaptive model tracks; the mantissa within a bucket is coded as raw
// bits.
const genericBuckets = 16

// Model is the adaptive geometric model behind DecodeGeneric: a per-plane
// running model for DC and gain magnitudes.
type Model struct {
	bucketCDF AdaptiveCDF
}

// NewModel returns a freshly-initialized generic model; the frame engine
// re-initializes its models once per frame.
func NewModel() *Model {
	return &Model{bucketCDF: *NewAdaptiveCDF(genericBuckets, 5)}
}

// DecodeGeneric decodes a non-negative integer, adapting model and ex (the
// running Q8 expectation) in place. shift biases how aggressively ex is
// updated for callers that track faster- or slower-moving statistics (DC
// vs. gain).
func (d *Decoder) DecodeGeneric(m *Model, ex *int, shift int) int {
	bucket := d.DecodeCDF(m.bucketCDF.cdf, len(m.bucketCDF.cdf))
	m.bucketCDF.update(bucket)

	var val int
	if bucket == 0 {
		val = 0
	} else {
		extra := bucket - 1
		mantissa := 0
		if extra > 0 {
			mantissa = int(d.DecodeBits(extra))
		}
		val = (1 << uint(extra)) + mantissa - 1
	}

	rate := 4 + shift
	if rate < 1 {
		rate = 1
	}
	*ex += ((val << 8) - *ex) >> uint(rate)
	if *ex < 1 {
		*ex = 1
	}
	return val
}
