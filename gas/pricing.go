package gas

// Price bounds in gwei. Labels and served predictions are clamped to this range.
const (
	MinPrice = 15.0
	MaxPrice = 300.0
)

// BasePrice computes the deterministic part of the reference gas price for a
// snapshot. The synthesizer adds uniform noise on top before clamping.
func BasePrice(s Snapshot) float64 {
	price := s.BaseFee * 1.1
	price += (s.PendingTxCount / 1000.0) * 50.0
	price += s.AvgGasUsedRatio * 40.0
	price += s.BlockUtilization * 30.0

	// Business-hour premium, off-hour discount.
	if s.HourOfDay >= 9 && s.HourOfDay <= 17 {
		price += 15.0
	} else {
		price -= 5.0
	}

	price += (s.HighPriorityTxCount / 300.0) * 25.0

	if s.Weekend {
		price -= 10.0
	} else {
		price += 5.0
	}

	return price
}

// ClampPrice bounds a raw price into the valid gwei range.
func ClampPrice(price float64) float64 {
	if price < MinPrice {
		return MinPrice
	}
	if price > MaxPrice {
		return MaxPrice
	}
	return price
}
