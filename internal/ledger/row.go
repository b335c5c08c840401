package ledger

import (
	"math"

	"github.com/ukydev/fleet-logbook/internal/models"
)

// RowResult is what one itinerary row contributes to the running balances.
type RowResult struct {
	// Usage is the hours or km recorded across all modes, unrounded.
	Usage float64
	// Consumed is the fuel burnt on this row, rounded per the vehicle.
	Consumed float64
	// CumulativeUsage is the counter after this row.
	CumulativeUsage models.Usage
	// CumulativeFuel is the fuel balance after this row, rounded to 2 decimals.
	CumulativeFuel float64
}

// ComputeRow applies one row to the prior running balances. It never fails:
// NaN inputs come out as NaN, and a negative fuel balance is returned as is.
func ComputeRow(row models.Itinerary, priorUsage models.Usage, priorFuel float64, v *models.Vehicle) RowResult {
	var usage, consumed float64
	for _, m := range v.Modes {
		amount := row.Amount(m.ID)
		usage += amount
		consumed += amount * m.Rate
	}
	consumed = roundConsumed(consumed, v.Rounding)

	return RowResult{
		Usage:           usage,
		Consumed:        consumed,
		CumulativeUsage: priorUsage.As(v.DualEngine).Add(usage),
		CumulativeFuel:  round2(priorFuel + row.ReceivedFuel() - consumed),
	}
}

func roundConsumed(x float64, r models.Rounding) float64 {
	if r == models.RoundUp {
		return ceil2(x)
	}
	return round2(x)
}

// round2 rounds to 2 decimals, halves toward +Inf.
func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}

func ceil2(x float64) float64 {
	return math.Ceil(x*100) / 100
}

// DisplayUsage is the row usage as shown to users: whole km for distance
// vehicles, 2 decimals for round-up boats, exact hours otherwise. It is
// never fed back into a calculation.
func DisplayUsage(usage float64, v *models.Vehicle) float64 {
	switch {
	case v.Unit == models.UnitDistanceKm:
		return math.Floor(usage + 0.5)
	case v.Rounding == models.RoundUp:
		return round2(usage)
	default:
		return usage
	}
}
