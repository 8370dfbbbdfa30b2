package blend

import "math"

// separableBlend applies a per-channel blend B to unpremultiplied channels:
//
//	Result = (1 - Sa) * D + (1 - Da) * S + Sa * Da * B(Cs, Cb)
func separableBlend(sr, sg, sb, sa, dr, dg, db, da byte, blendChan func(s, d byte) byte) (byte, byte, byte, byte) {
	if sa == 0 {
		return dr, dg, db, da
	}
	if da == 0 {
		return sr, sg, sb, sa
	}

	sur, sug, sub := unpremul(sr, sa), unpremul(sg, sa), unpremul(sb, sa)
	dur, dug, dub := unpremul(dr, da), unpremul(dg, da), unpremul(db, da)

	invSa := 255 - sa
	invDa := 255 - da
	saDa := mulDiv255(sa, da)

	channel := func(s, d, su, du byte) byte {
		c := addClamp(mulDiv255(d, invSa), mulDiv255(s, invDa))
		return addClamp(c, mulDiv255(saDa, blendChan(su, du)))
	}

	return channel(sr, dr, sur, dur),
		channel(sg, dg, sug, dug),
		channel(sb, db, sub, dub),
		addClamp(sa, mulDiv255(da, invSa))
}

func unpremul(c, a byte) byte {
	if a == 0 {
		return 0
	}
	v := (uint16(c)*255 + uint16(a)/2) / uint16(a)
	return clamp255(v)
}

// blendMultiply: B(Cb, Cs) = Cb * Cs
func blendMultiply(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, mulDiv255)
}

// blendScreen: B(Cb, Cs) = 1 - (1 - Cb) * (1 - Cs)
func blendScreen(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, screenChan)
}

func screenChan(s, d byte) byte {
	return 255 - mulDiv255(255-s, 255-d)
}

// hardLightChan is Multiply(Cb, 2*Cs) for Cs <= 0.5, else Screen(Cb, 2*Cs - 1).
func hardLightChan(s, d byte) byte {
	if s <= 127 {
		return clamp255(div255(2 * uint16(s) * uint16(d)))
	}
	return 255 - clamp255(div255(2*uint16(255-s)*uint16(255-d)))
}

// blendOverlay is HardLight with the layers swapped.
func blendOverlay(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, func(s, d byte) byte {
		return hardLightChan(d, s)
	})
}

func blendDarken(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, minByte)
}

func blendLighten(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, maxByte)
}

// blendColorDodge: B = 1 if Cs == 1, else min(1, Cb / (1 - Cs))
func blendColorDodge(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, func(s, d byte) byte {
		if d == 0 {
			return 0
		}
		if s == 255 {
			return 255
		}
		return clamp255(uint16(d) * 255 / uint16(255-s))
	})
}

// blendColorBurn: B = 0 if Cs == 0, else 1 - min(1, (1 - Cb) / Cs)
func blendColorBurn(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, func(s, d byte) byte {
		if d == 255 {
			return 255
		}
		if s == 0 {
			return 0
		}
		return 255 - clamp255(uint16(255-d)*255/uint16(s))
	})
}

func blendHardLight(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, hardLightChan)
}

// blendSoftLight follows the W3C formula with D(x) = sqrt(x) above 0.25.
func blendSoftLight(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, func(s, d byte) byte {
		sf := float64(s) / 255
		df := float64(d) / 255

		var result float64
		if sf <= 0.5 {
			result = df - (1-2*sf)*df*(1-df)
		} else {
			dx := math.Sqrt(df)
			if df <= 0.25 {
				dx = ((16*df-12)*df + 4) * df
			}
			result = df + (2*sf-1)*(dx-df)
		}
		return floatToByte(result)
	})
}

// blendDifference: B = |Cb - Cs|
func blendDifference(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separableBlend(sr, sg, sb, sa, dr, dg, db, da, func(s, d byte) byte {
		if s > d {
			return s - d
		}
		return d - s
	})
}

func minByte(a, b byte) byte {
	if a < b {
		return a
	}
	return b
}

func maxByte(a, b byte) byte {
	if a > b {
		return a
	}
	return b
}
