package valueobject

import (
	"errors"

	"github.com/shopspring/decimal"
)

// All monetary amounts in the system are single-currency integer minor
// units (cents). Ratios (refund tolerance, allocation weights) use
// decimal.Decimal; stored amounts never do.

// RoundHalfUpRatio returns value*num/den rounded half away from zero on cents.
// This is the one rounding rule used everywhere a ratio of money appears.
func RoundHalfUpRatio(value, num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(value).
		Mul(decimal.NewFromInt(num)).
		Div(decimal.NewFromInt(den)).
		Round(0).
		IntPart()
}

// ErrNoPositiveWeights indicates a proportional split had nothing to allocate to.
var ErrNoPositiveWeights = errors.New("no positive weights to allocate against")

// SplitProportional distributes totalCents across weights using the
// largest-remainder method. The parts always sum exactly to totalCents.
// Allocation is computed on the absolute total and the sign is reapplied
// uniformly, so a negative total (a credit) splits into negative parts.
func SplitProportional(totalCents int64, weights []decimal.Decimal) ([]int64, error) {
	weightSum := decimal.Zero
	for _, w := range weights {
		if w.IsPositive() {
			weightSum = weightSum.Add(w)
		}
	}
	if !weightSum.IsPositive() {
		return nil, ErrNoPositiveWeights
	}

	sign := int64(1)
	abs := totalCents
	if abs < 0 {
		sign = -1
		abs = -abs
	}

	parts := make([]int64, len(weights))
	remainders := make([]decimal.Decimal, len(weights))
	allocated := int64(0)
	absTotal := decimal.NewFromInt(abs)

	for i, w := range weights {
		if !w.IsPositive() {
			remainders[i] = decimal.Zero
			continue
		}
		raw := absTotal.Mul(w).Div(weightSum)
		floor := raw.Floor()
		parts[i] = floor.IntPart()
		remainders[i] = raw.Sub(floor)
		allocated += parts[i]
	}

	// Hand out the leftover cents to the largest fractional remainders,
	// first index winning ties so the result is deterministic.
	for leftover := abs - allocated; leftover > 0; leftover-- {
		best := -1
		for i, r := range remainders {
			if !weights[i].IsPositive() {
				continue
			}
			if best < 0 || r.GreaterThan(remainders[best]) {
				best = i
			}
		}
		parts[best]++
		remainders[best] = remainders[best].Sub(decimal.NewFromInt(1))
	}

	if sign < 0 {
		for i := range parts {
			parts[i] = -parts[i]
		}
	}
	return parts, nil
}
