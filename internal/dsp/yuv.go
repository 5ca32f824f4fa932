package dsp

// BT.601 YUV -> RGB conversion with the fixed-point coefficients from
// libwebp's yuv.h. The decode core itself never leaves YUV; cmd/lactdump
// uses this to write viewable PPM frames.

// YUV -> RGB fixed-point multipliers (from yuv.h).
const (
	yuvFix  = 16 // fixed-point precision
	yuvFix2 = 6  // additional precision for intermediate values
	yuvMask = (256 << yuvFix2) - 1

	kYScale = 19077 // 1.164 * (1 << 14)
	kRCr    = 26149 // 1.596 * (1 << 14)
	kGCb    = 6419  // 0.391 * (1 << 14)
	kGCr    = 13320 // 0.813 * (1 << 14)
	kBCb    = 33050 // 2.018 * (1 << 14)

	// Bias constants absorb the (Y-16) and (U/V-128) offsets into the
	// fixed-point formula; must match the libwebp reference exactly.
	kRBias = 14234
	kGBias = 8708
	kBBias = 17685
)

// multHi computes (v * coeff) >> 8.
func multHi(v, coeff int) int {
	return (v * coeff) >> 8
}

// vp8kClip maps input range [0..yuvMask] after a yuvFix2 shift to [0..255].
var vp8kClip [yuvMask + 1]uint8

func init() {
	for i := 0; i <= yuvMask; i++ {
		v := i >> yuvFix2
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		vp8kClip[i] = uint8(v)
	}
}

// YUVToR converts (y, v) to the R component.
func YUVToR(y, v int) uint8 {
	val := multHi(y, kYScale) + multHi(v, kRCr) - kRBias
	return clipYUVVal(val)
}

// YUVToG converts (y, u, v) to the G component.
func YUVToG(y, u, v int) uint8 {
	val := multHi(y, kYScale) - multHi(u, kGCb) - multHi(v, kGCr) + kGBias
	return clipYUVVal(val)
}

// YUVToB converts (y, u) to the B component.
func YUVToB(y, u int) uint8 {
	val := multHi(y, kYScale) + multHi(u, kBCb) - kBBias
	return clipYUVVal(val)
}

func clipYUVVal(val int) uint8 {
	if val < 0 {
		return 0
	}
	if val > yuvMask {
		return 255
	}
	return vp8kClip[val]
}

// YUVToRGB converts a single YUV sample triple to RGB, writing into rgb[0:3].
func YUVToRGB(y, u, v int, rgb []byte) {
	rgb[0] = YUVToR(y, v)
	rgb[1] = YUVToG(y, u, v)
	rgb[2] = YUVToB(y, u)
}
