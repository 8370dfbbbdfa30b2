package blend

// div255 divides x by 255 exactly for every uint16 input.
//
// Formula: ((x + 1) + ((x + 1) >> 8)) >> 8 (Alvy Ray Smith).
func div255(x uint16) uint16 {
	t := uint32(x) + 1
	return uint16((t + (t >> 8)) >> 8) //nolint:gosec // result fits
}

// mulDiv255 returns round-down(a*b/255) computed without division.
func mulDiv255(a, b byte) byte {
	return byte(div255(uint16(a) * uint16(b)))
}

// clamp255 clamps a uint16 to [0, 255].
func clamp255(x uint16) byte {
	if x > 255 {
		return 255
	}
	return byte(x)
}

// addClamp adds two bytes and clamps to 255.
func addClamp(a, b byte) byte {
	return clamp255(uint16(a) + uint16(b))
}

// floatToByte maps [0, 1] to [0, 255] with rounding, clamping outliers.
func floatToByte(f float64) byte {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return byte(f*255 + 0.5)
	}
}
