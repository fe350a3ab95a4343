package vision

// CannyThresholds переводит чувствительность 0..1 в пороги Canny:
// чем выше чувствительность, тем ниже пороги и тем больше контуров.
func CannyThresholds(sensitivity float64) (low, high float32) {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}
	low = float32(100 - 80*sensitivity)
	return low, low * 3
}
