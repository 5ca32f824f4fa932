package dsp

// Thor-style deblocking filter, the alternative postfilter strategy to
// the lapped post-filter. This is a slightly modified form of the Thor
// deblocking filter; see draft-fuldseth-netvc-thor-00 for details. The
// engine selects exactly one postfilter strategy per stream.

var deblockBeta = [52]int{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 17, 18, 20, 22, 24, 26, 28, 30, 32, 34, 36, 38, 40, 42, 44, 46, 48, 50, 52, 54, 56, 58, 60, 62, 64,
}

var deblockTC = [52]int{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 5, 5, 6, 6, 7, 8, 9, 9, 10, 10, 11, 11, 12, 12,
}

func deblockBetaQ(q int) int {
	return deblockBeta[clampi(0, q-8, 51)]
}

func deblockTCQ(q int) int {
	return deblockTC[clampi(0, q-8, 51)]
}

// DeblockCol8 runs the deblocking filter across a vertical block boundary:
// base indexes the first row of the boundary column (the filter reads two
// samples either side of it, over eight rows).
func DeblockCol8(c []int16, base, stride, q int) {
	d := Abs(int(c[base+2*stride-2])-int(c[base+2*stride-1])) +
		Abs(int(c[base+2*stride+0])-int(c[base+2*stride+1])) +
		Abs(int(c[base+5*stride-2])-int(c[base+5*stride-1])) +
		Abs(int(c[base+5*stride+0])-int(c[base+5*stride+1]))
	if d >= deblockBetaQ(q) {
		return
	}
	tc := deblockTCQ(q)
	for k := 0; k < 8; k++ {
		p1 := int(c[base+k*stride-2])
		p0 := int(c[base+k*stride-1])
		q0 := int(c[base+k*stride+0])
		q1 := int(c[base+k*stride+1])
		delta := (18*(q0-p0) - 6*(q1-p1) + 16) >> 5
		delta = clampi(-tc, delta, tc)
		c[base+k*stride-2] = ClipCoeff(p1 + delta/2)
		c[base+k*stride-1] = ClipCoeff(p0 + delta)
		c[base+k*stride+0] = ClipCoeff(q0 - delta)
		c[base+k*stride+1] = ClipCoeff(q1 - delta/2)
	}
}

// DeblockRow8 is the horizontal-boundary counterpart of DeblockCol8.
func DeblockRow8(c []int16, base, stride, q int) {
	d := Abs(int(c[base+2-2*stride])-int(c[base+2-1*stride])) +
		Abs(int(c[base+2+0*stride])-int(c[base+2+1*stride])) +
		Abs(int(c[base+5-2*stride])-int(c[base+5-1*stride])) +
		Abs(int(c[base+5+0*stride])-int(c[base+5+1*stride]))
	if d >= deblockBetaQ(q) {
		return
	}
	tc := deblockTCQ(q)
	for k := 0; k < 8; k++ {
		p1 := int(c[base+k-2*stride])
		p0 := int(c[base+k-1*stride])
		q0 := int(c[base+k+0*stride])
		q1 := int(c[base+k+1*stride])
		delta := (18*(q0-p0) - 6*(q1-p1) + 16) >> 5
		delta = clampi(-tc, delta, tc)
		c[base+k-2*stride] = ClipCoeff(p1 + delta/2)
		c[base+k-1*stride] = ClipCoeff(p0 + delta)
		c[base+k+0*stride] = ClipCoeff(q0 - delta)
		c[base+k+1*stride] = ClipCoeff(q1 - delta/2)
	}
}
