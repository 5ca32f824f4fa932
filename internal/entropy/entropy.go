// Package entropy implements the range coder the rest of the decode
// pipeline treats as a black box: a probability-weighted interval that
// narrows on every decoded symbol. Probabilities are 15-bit; adaptive
// models (CDFs, the generic-exponential magnitude model) live alongside
// the raw coder so encoder and decoder evolve them in lock-step.
package entropy

import "math/bits"

// ecTop is the renormalisation threshold: after normalize, rng is kept in
// [ecTop, 2^32).
const ecTop = 1 << 24

// Decoder implements the boolean-q15, uniform-uint, raw-bits, CDF,
// Laplace and generic-exponential decode operations consumed by the rest
// of the core. Decode order is significant: the caller must request
// symbols in exactly the order the encoder produced them.
type Decoder struct {
	buf []byte
	pos int
	rng uint32
	dif uint32
	eof bool
}

// NewDecoder binds a Decoder to a packet buffer.
func NewDecoder(buf []byte) *Decoder {
	d := &Decoder{buf: buf}
	d.Init(buf)
	return d
}

// Init (re)binds the decoder to a packet buffer, discarding any prior
// state. Lets the frame engine reuse a pooled Decoder across packets.
func (d *Decoder) Init(buf []byte) {
	d.buf = buf
	d.pos = 0
	d.rng = 0xFFFFFFFF
	d.eof = false
	d.dif = 0
	for i := 0; i < 4; i++ {
		d.dif = d.dif<<8 | uint32(d.nextByte())
	}
}

// nextByte returns the next input byte, or 0 once the buffer is
// exhausted, latching eof so callers can fail the packet.
func (d *Decoder) nextByte() byte {
	if d.pos < len(d.buf) {
		b := d.buf[d.pos]
		d.pos++
		return b
	}
	d.eof = true
	return 0
}

// EOF reports whether the decoder has been asked to read past the end of
// the packet. Once true, the current frame must be abandoned.
func (d *Decoder) EOF() bool {
	return d.eof
}

// normalize restores rng to the renormalised range after a split narrows
// it, pulling in fresh bytes from the packet as needed.
func (d *Decoder) normalize() {
	for d.rng < ecTop {
		d.dif = d.dif<<8 | uint32(d.nextByte())
		d.rng <<= 8
	}
}

// DecodeBool decodes a single boolean symbol given a probability of "1" in
// Q15 (pQ15 in [1, 2^15-1]).
func (d *Decoder) DecodeBool(pQ15 uint16) int {
	d.normalize()
	split := uint32((uint64(d.rng) * uint64(pQ15)) >> 15)
	if d.dif < split {
		d.rng = split
		return 1
	}
	d.dif -= split
	d.rng -= split
	return 0
}

// DecodeBits decodes a raw n-bit integer, MSB first, with no adaptation
// (each bit is uniform, i.e. decoded at p=1/2).
func (d *Decoder) DecodeBits(n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<1 | uint32(d.DecodeBool(1<<14))
	}
	return v
}

// DecodeUint decodes a uniform integer in [0, n). Values are drawn from the
// smallest power-of-two superset of [0, n) and folded back into range,
// which keeps the decode a fixed number of oracle calls (no rejection
// loop) at the cost of a very slight non-uniformity near the fold
// boundary; n is always a small protocol constant (the mv_res range, the
// per-plane scale), so the skew is negligible.
func (d *Decoder) DecodeUint(n uint32) uint32 {
	if n < 2 {
		return 0
	}
	nbits := uint(bits.Len32(n - 1))
	v := d.DecodeBits(int(nbits))
	if v >= n {
		v -= n
	}
	return v
}

// DecodeCDF decodes an index in [0, n) drawn from an unscaled cumulative
// distribution of length n (cdf[n-1] is the total frequency). This is the
// building block for adaptively-coded symbols (intra modes, generic
// buckets) which own and update their own cdf tables between calls.
func (d *Decoder) DecodeCDF(cdf []uint16, n int) int {
	d.normalize()
	total := uint32(cdf[n-1])
	r := d.rng / total
	value := d.dif / r
	if value >= total {
		value = total - 1
	}
	sym := 0
	for sym < n-1 && uint32(cdf[sym]) <= value {
		sym++
	}
	var lo uint32
	if sym > 0 {
		lo = uint32(cdf[sym-1])
	}
	hi := uint32(cdf[sym])
	d.dif -= lo * r
	if sym == n-1 {
		d.rng -= lo * r
	} else {
		d.rng = (hi - lo) * r
	}
	return sym
}
