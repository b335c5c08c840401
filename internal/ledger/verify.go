package ledger

import (
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discrepancy is a road list whose stored start balances do not match the
// calculated end balances of the road list before it.
type Discrepancy struct {
	DocumentID    primitive.ObjectID `json:"document_id"`
	Index         int                `json:"index"`
	StoredFuel    float64            `json:"stored_fuel"`
	ExpectedFuel  float64            `json:"expected_fuel"`
	StoredHours   models.Usage       `json:"stored_hours"`
	ExpectedHours models.Usage       `json:"expected_hours"`
}

// Verify walks the chain in end-date order and reports every broken link.
// The first road list is never reported: nothing precedes it.
func Verify(v *models.Vehicle, chain []models.RoadList) []Discrepancy {
	sorted := SortChain(chain)
	var out []Discrepancy
	for j := 1; j < len(sorted); j++ {
		prev := CalculateDocument(sorted[j-1], v)
		doc := sorted[j]
		stored := doc.StartHours.As(v.DualEngine)
		if doc.StartFuel == prev.CumulativeFuel && stored.Equal(prev.CumulativeHours) {
			continue
		}
		out = append(out, Discrepancy{
			DocumentID:    doc.ID,
			Index:         j,
			StoredFuel:    doc.StartFuel,
			ExpectedFuel:  prev.CumulativeFuel,
			StoredHours:   stored,
			ExpectedHours: prev.CumulativeHours,
		})
	}
	return out
}
