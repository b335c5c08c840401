package ledger

import (
	"encoding/json"
	"sort"

	"github.com/ukydev/fleet-logbook/internal/models"
)

// CalculatedRow is an itinerary row with its derived values.
type CalculatedRow struct {
	models.Itinerary
	RowHours        float64
	RowConsumed     float64
	DisplayHours    float64
	CumulativeHours models.Usage
	CumulativeFuel  float64
}

type rowView struct {
	models.Itinerary
	DisplayHours    float64      `json:"displayHours"`
	CumulativeHours models.Usage `json:"cumulativeHours"`
	CumulativeFuel  float64      `json:"cumulativeFuel"`
}

// MarshalJSON emits rowHours/rowConsumed, or total/consumed for dual-engine rows.
func (r CalculatedRow) MarshalJSON() ([]byte, error) {
	base := rowView{
		Itinerary:       r.Itinerary,
		DisplayHours:    r.DisplayHours,
		CumulativeHours: r.CumulativeHours,
		CumulativeFuel:  r.CumulativeFuel,
	}
	if r.CumulativeHours.IsDual() {
		return json.Marshal(struct {
			rowView
			Total    float64 `json:"total"`
			Consumed float64 `json:"consumed"`
		}{base, r.RowHours, r.RowConsumed})
	}
	return json.Marshal(struct {
		rowView
		RowHours    float64 `json:"rowHours"`
		RowConsumed float64 `json:"rowConsumed"`
	}{base, r.RowHours, r.RowConsumed})
}

// CalculatedDocument is a road list with per-row and document totals.
type CalculatedDocument struct {
	models.RoadList
	Rows                   []CalculatedRow `json:"rows"`
	Hours                  float64         `json:"hours"`
	Fuel                   float64         `json:"fuel"`
	CumulativeReceivedFuel float64         `json:"cumulativeReceivedFuel"`
	CumulativeHours        models.Usage    `json:"cumulativeHours"`
	CumulativeFuel         float64         `json:"cumulativeFuel"`
}

// CalculateDocument runs the rows in stored order, seeded with the
// document's own start balances.
func CalculateDocument(doc models.RoadList, v *models.Vehicle) CalculatedDocument {
	out := CalculatedDocument{
		RoadList: doc,
		Rows:     make([]CalculatedRow, 0, len(doc.Itineraries)),
	}
	usage := doc.StartHours.As(v.DualEngine)
	fuel := doc.StartFuel
	out.RoadList.StartHours = usage

	for _, row := range doc.Itineraries {
		res := ComputeRow(row, usage, fuel, v)
		usage, fuel = res.CumulativeUsage, res.CumulativeFuel

		out.Rows = append(out.Rows, CalculatedRow{
			Itinerary:       row,
			RowHours:        res.Usage,
			RowConsumed:     res.Consumed,
			DisplayHours:    DisplayUsage(res.Usage, v),
			CumulativeHours: usage,
			CumulativeFuel:  fuel,
		})
		out.Hours += res.Usage
		out.Fuel += res.Consumed
		out.CumulativeReceivedFuel += row.ReceivedFuel()
	}
	out.CumulativeHours = usage
	out.CumulativeFuel = fuel
	return out
}

// SortChain orders road lists by end date, keeping the input order of ties.
// The input slice is not modified.
func SortChain(docs []models.RoadList) []models.RoadList {
	sorted := make([]models.RoadList, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].End.Before(sorted[j].End)
	})
	return sorted
}

// CalculateChain calculates every road list of one vehicle in end-date order.
// Each document is seeded with its stored start balances; the chain is not
// checked for consistency here (see Verify).
func CalculateChain(v *models.Vehicle, docs []models.RoadList) []CalculatedDocument {
	sorted := SortChain(docs)
	out := make([]CalculatedDocument, 0, len(sorted))
	for _, doc := range sorted {
		out = append(out, CalculateDocument(doc, v))
	}
	return out
}
