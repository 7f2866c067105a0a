package exrio

import "math"

// halfToFloat32 converts IEEE 754 binary16 bits to a float32.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mantissa := uint32(h & 0x03ff)

	switch exp {
	case 0:
		if mantissa == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: normalize the mantissa.
		e := uint32(127 - 15 + 1)
		for mantissa&0x0400 == 0 {
			mantissa <<= 1
			e--
		}
		mantissa &= 0x03ff
		return math.Float32frombits(sign | e<<23 | mantissa<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mantissa<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | mantissa<<13)
	}
}
