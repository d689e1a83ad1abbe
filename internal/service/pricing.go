package service

import "math"

// EffectivePrice applies a percentage discount to a minor-unit price,
// rounding half away from zero: 101 at 15% is 85.85, charged as 86.
func EffectivePrice(price int64, discount int) int64 {
	if discount <= 0 {
		return price
	}
	if discount >= 100 {
		return 0
	}
	return int64(math.Round(float64(price) * float64(100-discount) / 100))
}
