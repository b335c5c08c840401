package ledger

import (
	"github.com/ukydev/fleet-logbook/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repair is the outcome of a chain mutation.
type Repair struct {
	// Chain is the vehicle's road lists in end-date order after the mutation,
	// with start balances re-derived where needed.
	Chain []models.RoadList
	// Changed lists, in chain order, the road lists that must be written back.
	Changed []models.RoadList
	// Position is the index of the upserted road list in Chain, or the index
	// the deleted one used to occupy.
	Position int
}

// Upsert replaces (by id) or inserts doc into the chain and re-seeds every
// road list after it from its predecessor's calculated end balances. doc
// keeps the start balances it carries. doc must have an id.
//
// If doc already existed and its end date moved it, the road lists that
// followed its old position are re-seeded as if it had been deleted first.
func Upsert(v *models.Vehicle, chain []models.RoadList, doc models.RoadList) Repair {
	doc.StartHours = doc.StartHours.As(v.DualEngine)
	work := SortChain(chain)

	if old := indexOf(work, doc.ID); old >= 0 {
		work = removeAt(work, old)
		propagate(v, work, seedIndex(old))
	}

	pos := insertPosition(work, doc)
	work = append(work, models.RoadList{})
	copy(work[pos+1:], work[pos:])
	work[pos] = doc
	propagate(v, work, pos)

	return Repair{
		Chain:    work,
		Changed:  changed(chain, work, doc.ID),
		Position: pos,
	}
}

// Delete removes the road list with the given id. If it was not the first in
// the chain, its successors are re-seeded from its predecessor; if it was the
// first, the new first road list keeps its stored start balances and the rest
// of the chain is re-seeded from there. ok is false when id is not in the chain.
func Delete(v *models.Vehicle, chain []models.RoadList, id primitive.ObjectID) (r Repair, ok bool) {
	work := SortChain(chain)
	pos := indexOf(work, id)
	if pos < 0 {
		return Repair{Chain: work, Position: -1}, false
	}
	work = removeAt(work, pos)
	propagate(v, work, seedIndex(pos))

	return Repair{
		Chain:    work,
		Changed:  changed(chain, work, primitive.NilObjectID),
		Position: pos,
	}, true
}

// Rebuild re-seeds every road list after the first. Use it on chains written
// without going through Upsert or Delete.
func Rebuild(v *models.Vehicle, chain []models.RoadList) Repair {
	work := SortChain(chain)
	propagate(v, work, 0)
	return Repair{
		Chain:   work,
		Changed: changed(chain, work, primitive.NilObjectID),
	}
}

// NextStart returns the balances a new road list appended to the chain
// should start from. ok is false for an empty chain.
func NextStart(v *models.Vehicle, chain []models.RoadList) (fuel float64, hours models.Usage, ok bool) {
	if len(chain) == 0 {
		return 0, v.ZeroUsage(), false
	}
	sorted := SortChain(chain)
	last := CalculateDocument(sorted[len(sorted)-1], v)
	return last.CumulativeFuel, last.CumulativeHours, true
}

// seedIndex is where forward propagation starts after removing the road list
// at pos: its predecessor, or the new first road list.
func seedIndex(pos int) int {
	if pos > 0 {
		return pos - 1
	}
	return 0
}

// propagate overwrites the start balances of chain[from+1:], each from the
// calculated end of the road list before it. It walks in chain order so every
// step sees its predecessor's fresh start balances.
func propagate(v *models.Vehicle, chain []models.RoadList, from int) {
	for j := from + 1; j < len(chain); j++ {
		prev := CalculateDocument(chain[j-1], v)
		chain[j].StartFuel = prev.CumulativeFuel
		chain[j].StartHours = prev.CumulativeHours
	}
}

func insertPosition(chain []models.RoadList, doc models.RoadList) int {
	for i, d := range chain {
		if d.End.After(doc.End) {
			return i
		}
	}
	return len(chain)
}

func indexOf(chain []models.RoadList, id primitive.ObjectID) int {
	for i := range chain {
		if chain[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(chain []models.RoadList, i int) []models.RoadList {
	out := make([]models.RoadList, 0, len(chain)-1)
	out = append(out, chain[:i]...)
	return append(out, chain[i+1:]...)
}

// changed returns the road lists of after whose start balances differ from
// before, plus always, if non-nil, the road list with id always.
func changed(before, after []models.RoadList, always primitive.ObjectID) []models.RoadList {
	prior := make(map[primitive.ObjectID]models.RoadList, len(before))
	for _, d := range before {
		prior[d.ID] = d
	}
	var out []models.RoadList
	for _, d := range after {
		p, existed := prior[d.ID]
		switch {
		case !always.IsZero() && d.ID == always:
			out = append(out, d)
		case !existed:
			out = append(out, d)
		case p.StartFuel != d.StartFuel || !p.StartHours.Equal(d.StartHours):
			out = append(out, d)
		}
	}
	return out
}
